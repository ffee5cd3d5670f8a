// Package multpl scrapes current S&P 500 valuation ratios from
// multpl.com. The site publishes only the present value on its pages,
// so the series grows one row per day.
package multpl

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/quantfold/harvest/pkg/clients"
	"github.com/quantfold/harvest/pkg/config"
	"github.com/quantfold/harvest/pkg/errors"
	"github.com/quantfold/harvest/pkg/models"
	"github.com/quantfold/harvest/pkg/series"
	"github.com/quantfold/harvest/pkg/source"
)

// pages maps value columns to the multpl.com page publishing them
var pages = []struct {
	Column string
	URL    string
}{
	{"sp500_pe", "https://www.multpl.com/s-p-500-pe-ratio"},
	{"sp500_shiller_pe", "https://www.multpl.com/shiller-pe"},
}

var numberPattern = regexp.MustCompile(`[\d.]+`)

// Adapter scrapes the current P/E and Shiller P/E
type Adapter struct {
	client *clients.HTTPClient
	logger *zap.Logger
	now    func() time.Time
}

// New builds a multpl.com adapter
func New(cfg *config.Config, log *zap.Logger) *Adapter {
	httpCfg := clients.DefaultHTTPConfig()
	httpCfg.RequestTimeout = cfg.Timeouts.Request
	client := clients.NewHTTPClient(httpCfg, log)
	client.SetRateLimiter(clients.NewProviderLimiter(cfg.Reliability.CallsPerMinute))

	return &Adapter{client: client, logger: log, now: time.Now}
}

func (a *Adapter) Name() string { return "multpl" }

func (a *Adapter) Constraints() source.Constraints {
	return source.Constraints{CallsPerMinute: 5}
}

// Fetch scrapes today's values. The site has no history endpoint, so
// the requested window only matters to downstream clipping. A row is
// emitted as long as at least one page yields a value.
func (a *Adapter) Fetch(ctx context.Context, start, end time.Time) ([]source.RawRow, error) {
	row := source.RawRow{"date": a.now().UTC().Format(models.DateLayout)}

	scraped := 0
	for _, page := range pages {
		value, err := a.scrapeCurrent(ctx, page.URL)
		if err != nil {
			a.logger.Warn("failed to scrape ratio page",
				zap.String("url", page.URL), zap.Error(err))
			continue
		}
		row[page.Column] = value
		scraped++
	}
	if scraped == 0 {
		return nil, errors.New(errors.ErrorTypeSourceUnavailable, "no multpl page yielded a value")
	}

	return []source.RawRow{row}, nil
}

// scrapeCurrent extracts the leading number from the page's #current element
func (a *Adapter) scrapeCurrent(ctx context.Context, pageURL string) (string, error) {
	resp, err := a.client.Get(ctx, pageURL, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeSourceUnavailable, "multpl request failed")
	}
	if err := source.CheckStatus(resp, "multpl"); err != nil {
		resp.Body.Close()
		return "", err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeMalformedResponse, "unparseable multpl page")
	}

	text := strings.TrimSpace(doc.Find("#current").First().Text())
	match := numberPattern.FindString(text)
	if match == "" {
		return "", errors.Newf(errors.ErrorTypeMalformedResponse, "no current value found on %s", pageURL)
	}
	return match, nil
}

// Normalize emits one observation carrying whichever ratios scraped
func (a *Adapter) Normalize(rows []source.RawRow, s *series.Series) *source.NormalizeResult {
	res := &source.NormalizeResult{}

	for _, row := range rows {
		date, err := source.ParseDate(row["date"], models.DateLayout)
		if err != nil {
			res.Drop("bad_date")
			continue
		}

		obs := models.NewObservation(date, a.Name())
		values := 0
		for _, col := range s.ValueColumns {
			raw, ok := row[col]
			if !ok || raw == "" {
				continue
			}
			v, err := source.ParseFloat(raw)
			if err != nil {
				continue
			}
			obs.SetValue(col, v)
			values++
		}
		if values == 0 {
			res.Drop("no_values")
			continue
		}
		res.Observations = append(res.Observations, obs)
	}
	return res
}
