// Package investing fetches daily OHLC history from investing.com's
// TVC charting endpoint. One adapter spans a set of instruments, each
// mapped to a dimension value (swap maturities, ETF tickers). The
// endpoint answers parallel arrays of epoch-second timestamps and
// prices and wants browser-shaped headers.
package investing

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/quantfold/harvest/pkg/clients"
	"github.com/quantfold/harvest/pkg/config"
	"github.com/quantfold/harvest/pkg/errors"
	"github.com/quantfold/harvest/pkg/models"
	"github.com/quantfold/harvest/pkg/series"
	"github.com/quantfold/harvest/pkg/source"
)

const historyURL = "https://tvc4.investing.com/%x/0/0/0/0/history"

// Instrument binds an investing.com numeric ticker ID to a dimension
type Instrument struct {
	TickerID  string
	Dimension string
}

// Adapter fetches a set of instruments into one dimensioned series
type Adapter struct {
	instruments []Instrument
	client      *clients.HTTPClient
	logger      *zap.Logger
	session     uint64
}

// New builds an investing.com adapter
func New(cfg *config.Config, log *zap.Logger, instruments ...Instrument) (*Adapter, error) {
	if len(instruments) == 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "investing adapter needs at least one instrument")
	}

	httpCfg := clients.DefaultHTTPConfig()
	httpCfg.RequestTimeout = cfg.Timeouts.Request
	client := clients.NewHTTPClient(httpCfg, log)
	client.SetRateLimiter(clients.NewProviderLimiter(cfg.Reliability.CallsPerMinute))

	return &Adapter{
		instruments: instruments,
		client:      client,
		logger:      log,
		// The endpoint embeds an arbitrary session token in the path
		session: rand.Uint64(),
	}, nil
}

func (a *Adapter) Name() string { return "investing" }

func (a *Adapter) Constraints() source.Constraints {
	return source.Constraints{CallsPerMinute: 10}
}

type historyResponse struct {
	Status     string    `json:"s"`
	Timestamps []int64   `json:"t"`
	Opens      []float64 `json:"o"`
	Highs      []float64 `json:"h"`
	Lows       []float64 `json:"l"`
	Closes     []float64 `json:"c"`
}

// Fetch pulls daily history for every instrument across the window
func (a *Adapter) Fetch(ctx context.Context, start, end time.Time) ([]source.RawRow, error) {
	var rows []source.RawRow

	for _, inst := range a.instruments {
		params := url.Values{}
		params.Set("symbol", inst.TickerID)
		params.Set("resolution", "D")
		params.Set("from", strconv.FormatInt(start.Unix(), 10))
		params.Set("to", strconv.FormatInt(end.Add(24*time.Hour).Unix(), 10))

		headers := map[string]string{
			"User-Agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
			"Referer":    "https://tvc-invdn-com.investing.com/",
			"Accept":     "application/json",
		}

		endpoint := fmt.Sprintf(historyURL, a.session)
		resp, err := a.client.Get(ctx, endpoint+"?"+params.Encode(), headers)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeSourceUnavailable, "investing request failed").
				WithDetail("ticker_id", inst.TickerID)
		}
		if err := source.CheckStatus(resp, "investing"); err != nil {
			resp.Body.Close()
			return nil, err
		}

		var decoded historyResponse
		if err := source.DecodeJSON(resp, "investing", &decoded); err != nil {
			return nil, err
		}
		if decoded.Status == "no_data" {
			a.logger.Debug("no history for instrument in window",
				zap.String("ticker_id", inst.TickerID))
			continue
		}
		if decoded.Status != "ok" {
			return nil, errors.Newf(errors.ErrorTypeMalformedResponse,
				"investing history status %q for ticker %s", decoded.Status, inst.TickerID)
		}
		if len(decoded.Opens) != len(decoded.Timestamps) ||
			len(decoded.Highs) != len(decoded.Timestamps) ||
			len(decoded.Lows) != len(decoded.Timestamps) ||
			len(decoded.Closes) != len(decoded.Timestamps) {
			return nil, errors.New(errors.ErrorTypeMalformedResponse, "investing history arrays are uneven")
		}

		for i, ts := range decoded.Timestamps {
			rows = append(rows, source.RawRow{
				"date":      time.Unix(ts, 0).UTC().Format(models.DateLayout),
				"open":      formatPrice(decoded.Opens[i]),
				"high":      formatPrice(decoded.Highs[i]),
				"low":       formatPrice(decoded.Lows[i]),
				"close":     formatPrice(decoded.Closes[i]),
				"dimension": inst.Dimension,
			})
		}
	}
	return rows, nil
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Normalize maps OHLC rows onto the series value columns. The column
// names differ per series (rates vs prices) but always arrive in
// open/high/low/close order.
func (a *Adapter) Normalize(rows []source.RawRow, s *series.Series) *source.NormalizeResult {
	res := &source.NormalizeResult{}

	if len(s.ValueColumns) != 4 {
		res.Dropped = len(rows)
		return res
	}
	fields := []string{"open", "high", "low", "close"}

	for _, row := range rows {
		date, err := source.ParseDate(row["date"], models.DateLayout)
		if err != nil {
			res.Drop("bad_date")
			continue
		}

		obs := models.NewDimensionObservation(date, row["dimension"], a.Name())
		bad := false
		for i, col := range s.ValueColumns {
			v, err := source.ParseFloat(row[fields[i]])
			if err != nil {
				bad = true
				break
			}
			obs.SetValue(col, v)
		}
		if bad {
			res.Drop("bad_value")
			continue
		}
		res.Observations = append(res.Observations, obs)
	}
	return res
}
