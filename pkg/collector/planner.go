package collector

import (
	"time"

	"github.com/quantfold/harvest/pkg/series"
	"github.com/quantfold/harvest/pkg/source"
)

// Plan turns a watermark into the ordered list of sub-windows to fetch.
// Returns nil when the watermark already covers the last complete period
// for the series frequency. Windows are contiguous, inclusive on both
// ends, and each spans at most Constraints.MaxSpanDays days.
func Plan(wm Watermark, now time.Time, c source.Constraints, s *series.Series) []Window {
	today := series.Day(now)

	if !wm.Empty && !wm.Time.Before(series.LastCompletePeriod(today, s.Frequency)) {
		return nil
	}

	var start time.Time
	if wm.Empty {
		start = s.DefaultStart(today)
	} else {
		start = s.NextPeriod(wm.Time)
	}
	if start.After(today) {
		return nil
	}

	span := c.MaxSpanDays
	if span <= 0 {
		return []Window{{Start: start, End: today}}
	}

	var windows []Window
	for cur := start; !cur.After(today); {
		end := cur.AddDate(0, 0, span-1)
		if end.After(today) {
			end = today
		}
		windows = append(windows, Window{Start: cur, End: end})
		cur = end.AddDate(0, 0, 1)
	}
	return windows
}
