// Package alphavantage fetches daily FX rates from Alpha Vantage. The
// free tier is tightly throttled (5 calls/minute), and output size is
// picked per window: compact covers the last 100 points, full covers
// the complete history.
package alphavantage

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/quantfold/harvest/pkg/clients"
	"github.com/quantfold/harvest/pkg/config"
	"github.com/quantfold/harvest/pkg/errors"
	"github.com/quantfold/harvest/pkg/models"
	"github.com/quantfold/harvest/pkg/series"
	"github.com/quantfold/harvest/pkg/source"
)

const (
	baseURL = "https://www.alphavantage.co/query"

	// compact responses carry the latest 100 data points
	compactSpanDays = 100
)

// Adapter fetches one currency pair
type Adapter struct {
	fromSymbol string
	toSymbol   string
	apiKey     string
	client     *clients.HTTPClient
	logger     *zap.Logger
}

// New builds an Alpha Vantage FX adapter. ALPHAVANTAGE_API_KEY is required.
func New(cfg *config.Config, log *zap.Logger, fromSymbol, toSymbol string) (*Adapter, error) {
	apiKey, err := config.APIKey("ALPHAVANTAGE_API_KEY", true)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "alphavantage adapter needs an API key")
	}

	httpCfg := clients.DefaultHTTPConfig()
	httpCfg.RequestTimeout = cfg.Timeouts.Request
	client := clients.NewHTTPClient(httpCfg, log)
	client.SetRateLimiter(clients.NewProviderLimiter(cfg.Reliability.CallsPerMinute))

	return &Adapter{
		fromSymbol: fromSymbol,
		toSymbol:   toSymbol,
		apiKey:     apiKey,
		client:     client,
		logger:     log,
	}, nil
}

func (a *Adapter) Name() string { return "alphavantage" }

func (a *Adapter) Constraints() source.Constraints {
	return source.Constraints{CallsPerMinute: 5, CallsPerDay: 500, RequiresAPIKey: true}
}

type fxResponse struct {
	TimeSeries map[string]struct {
		Open  string `json:"1. open"`
		High  string `json:"2. high"`
		Low   string `json:"3. low"`
		Close string `json:"4. close"`
	} `json:"Time Series (FX Daily)"`
	Note         string `json:"Note"`
	ErrorMessage string `json:"Error Message"`
}

// Fetch pulls the daily FX series, choosing compact output when the
// window fits inside the latest 100 points.
func (a *Adapter) Fetch(ctx context.Context, start, end time.Time) ([]source.RawRow, error) {
	outputSize := "compact"
	if end.Sub(start) > compactSpanDays*24*time.Hour {
		outputSize = "full"
	}

	params := url.Values{}
	params.Set("function", "FX_DAILY")
	params.Set("from_symbol", a.fromSymbol)
	params.Set("to_symbol", a.toSymbol)
	params.Set("apikey", a.apiKey)
	params.Set("outputsize", outputSize)

	resp, err := a.client.Get(ctx, baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSourceUnavailable, "alphavantage request failed")
	}
	if err := source.CheckStatus(resp, "alphavantage"); err != nil {
		resp.Body.Close()
		return nil, err
	}

	var decoded fxResponse
	if err := source.DecodeJSON(resp, "alphavantage", &decoded); err != nil {
		return nil, err
	}
	// Alpha Vantage reports throttling as a 200 with a Note
	if decoded.Note != "" {
		return nil, errors.Newf(errors.ErrorTypeRateLimited, "alphavantage throttled the request: %s", decoded.Note)
	}
	if decoded.ErrorMessage != "" {
		return nil, errors.Newf(errors.ErrorTypeValidation, "alphavantage rejected the request: %s", decoded.ErrorMessage)
	}

	var rows []source.RawRow
	for date, daily := range decoded.TimeSeries {
		rows = append(rows, source.RawRow{
			"date":  date,
			"open":  daily.Open,
			"high":  daily.High,
			"low":   daily.Low,
			"close": daily.Close,
		})
	}

	a.logger.Debug("fetched fx series",
		zap.String("pair", a.fromSymbol+"/"+a.toSymbol),
		zap.String("outputsize", outputSize),
		zap.Int("rows", len(rows)))
	return rows, nil
}

// Normalize stores the closing rate for each day
func (a *Adapter) Normalize(rows []source.RawRow, s *series.Series) *source.NormalizeResult {
	res := &source.NormalizeResult{}

	for _, row := range rows {
		date, err := source.ParseDate(row["date"], models.DateLayout)
		if err != nil {
			res.Drop("bad_date")
			continue
		}
		value, err := source.ParseFloat(row["close"])
		if err != nil {
			res.Drop("bad_value")
			continue
		}

		obs := models.NewObservation(date, a.Name())
		for _, col := range s.ValueColumns {
			obs.SetValue(col, value)
		}
		res.Observations = append(res.Observations, obs)
	}
	return res
}
