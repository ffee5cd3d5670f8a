// Package fred fetches observations from the St. Louis Fed FRED API.
// One adapter can span multiple FRED series; each series maps to a
// dimension value so a yield curve fits one table.
package fred

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

const baseURL = "https://api.stlouisfed.org/fred/series/observations"

// SeriesSpec binds one FRED series ID to a dimension value. Dimension
// is empty for single-series adapters.
type SeriesSpec struct {
	ID        string
	Dimension string
}

// Adapter fetches one or more FRED series
type Adapter struct {
	specs  []SeriesSpec
	apiKey string
	client *clients.HTTPClient
	logger *zap.Logger
}

// New builds a FRED adapter. FRED refuses unauthenticated calls, so a
// missing FRED_API_KEY fails construction.
func New(cfg *config.Config, log *zap.Logger, specs ...SeriesSpec) (*Adapter, error) {
	apiKey, err := config.APIKey("FRED_API_KEY", true)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "fred adapter needs an API key")
	}
	if len(specs) == 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "fred adapter needs at least one series")
	}

	httpCfg := clients.DefaultHTTPConfig()
	httpCfg.RequestTimeout = cfg.Timeouts.Request
	client := clients.NewHTTPClient(httpCfg, log)
	client.SetRateLimiter(clients.NewProviderLimiter(cfg.Reliability.CallsPerMinute))

	return &Adapter{specs: specs, apiKey: apiKey, client: client, logger: log}, nil
}

func (a *Adapter) Name() string { return "fred" }

func (a *Adapter) Constraints() source.Constraints {
	// FRED allows 120 requests/minute; stay well under it
	return source.Constraints{CallsPerMinute: 60, RequiresAPIKey: true}
}

// fredResponse is the observations envelope FRED returns
type fredResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// Fetch pulls every configured series across the window. A failure on
// any series fails the whole window so retry covers all of them.
func (a *Adapter) Fetch(ctx context.Context, start, end time.Time) ([]source.RawRow, error) {
	var rows []source.RawRow

	for _, spec := range a.specs {
		params := url.Values{}
		params.Set("series_id", spec.ID)
		params.Set("api_key", a.apiKey)
		params.Set("file_type", "json")
		params.Set("observation_start", start.Format(models.DateLayout))
		params.Set("observation_end", end.Format(models.DateLayout))
		params.Set("sort_order", "asc")

		resp, err := a.client.Get(ctx, baseURL+"?"+params.Encode(), nil)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeSourceUnavailable, "fred request failed").
				WithDetail("series_id", spec.ID)
		}
		if err := source.CheckStatus(resp, "fred"); err != nil {
			resp.Body.Close()
			return nil, err
		}

		var payload fredResponse
		if err := source.DecodeJSON(resp, "fred", &payload); err != nil {
			return nil, err
		}

		a.logger.Debug("fetched fred series",
			zap.String("series_id", spec.ID),
			zap.Int("observations", len(payload.Observations)))

		for _, obs := range payload.Observations {
			rows = append(rows, source.RawRow{
				"date":      obs.Date,
				"value":     obs.Value,
				"dimension": spec.Dimension,
			})
		}
	}
	return rows, nil
}

// Normalize maps raw rows to observations. FRED publishes "." for
// dates without a value (market holidays); those rows are dropped, not
// failed. Every value column of the series receives the same figure,
// which folds close-only feeds into OHLC tables.
func (a *Adapter) Normalize(rows []source.RawRow, s *series.Series) *source.NormalizeResult {
	res := &source.NormalizeResult{}

	for _, row := range rows {
		if row["value"] == "." {
			res.Drop("missing_value")
			continue
		}

		date, err := source.ParseDate(row["date"], models.DateLayout)
		if err != nil {
			res.Drop("bad_date")
			continue
		}
		value, err := source.ParseFloat(row["value"])
		if err != nil {
			res.Drop("bad_value")
			continue
		}

		obs := models.NewDimensionObservation(date, row["dimension"], a.Name())
		for _, col := range s.ValueColumns {
			obs.SetValue(col, value)
		}
		res.Observations = append(res.Observations, obs)
	}
	return res
}
