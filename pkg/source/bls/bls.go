// Package bls fetches monthly series from the Bureau of Labor
// Statistics v2 API. Requests POST a JSON payload naming the series
// and a year range; an API key is optional but raises the daily quota.
package bls

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/quantfold/harvest/pkg/clients"
	"github.com/quantfold/harvest/pkg/config"
	"github.com/quantfold/harvest/pkg/errors"
	"github.com/quantfold/harvest/pkg/models"
	"github.com/quantfold/harvest/pkg/series"
	"github.com/quantfold/harvest/pkg/source"
)

const baseURL = "https://api.bls.gov/publicAPI/v2/timeseries/data"

// Adapter fetches one BLS series
type Adapter struct {
	seriesID string
	apiKey   string
	client   *clients.HTTPClient
	logger   *zap.Logger
}

// New builds a BLS adapter. BLS_API_KEY is optional.
func New(cfg *config.Config, log *zap.Logger, seriesID string) (*Adapter, error) {
	apiKey, _ := config.APIKey("BLS_API_KEY", false)
	if seriesID == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "bls adapter needs a series ID")
	}

	httpCfg := clients.DefaultHTTPConfig()
	httpCfg.RequestTimeout = cfg.Timeouts.Request
	client := clients.NewHTTPClient(httpCfg, log)
	client.SetRateLimiter(clients.NewProviderLimiter(cfg.Reliability.CallsPerMinute))

	return &Adapter{seriesID: seriesID, apiKey: apiKey, client: client, logger: log}, nil
}

func (a *Adapter) Name() string { return "bls" }

func (a *Adapter) Constraints() source.Constraints {
	// Unregistered users get 25 requests/day; spacing keeps bursts polite
	return source.Constraints{CallsPerMinute: 20, CallsPerDay: 500}
}

type blsRequest struct {
	SeriesID        []string `json:"seriesid"`
	StartYear       string   `json:"startyear"`
	EndYear         string   `json:"endyear"`
	RegistrationKey string   `json:"registrationkey,omitempty"`
}

type blsResponse struct {
	Status  string   `json:"status"`
	Message []string `json:"message"`
	Results struct {
		Series []struct {
			Data []struct {
				Year   string `json:"year"`
				Period string `json:"period"`
				Value  string `json:"value"`
			} `json:"data"`
		} `json:"series"`
	} `json:"Results"`
}

// Fetch posts a year-range query covering the window
func (a *Adapter) Fetch(ctx context.Context, start, end time.Time) ([]source.RawRow, error) {
	payload := blsRequest{
		SeriesID:        []string{a.seriesID},
		StartYear:       strconv.Itoa(start.Year()),
		EndYear:         strconv.Itoa(end.Year()),
		RegistrationKey: a.apiKey,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "encoding bls request")
	}

	resp, err := a.client.Post(ctx, baseURL, bytes.NewReader(body),
		map[string]string{"Content-Type": "application/json"})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSourceUnavailable, "bls request failed").
			WithDetail("series_id", a.seriesID)
	}
	if err := source.CheckStatus(resp, "bls"); err != nil {
		resp.Body.Close()
		return nil, err
	}

	var decoded blsResponse
	if err := source.DecodeJSON(resp, "bls", &decoded); err != nil {
		return nil, err
	}
	if decoded.Status != "REQUEST_SUCCEEDED" {
		return nil, errors.Newf(errors.ErrorTypeSourceUnavailable, "bls request not accepted: %v", decoded.Message)
	}
	if len(decoded.Results.Series) == 0 {
		return nil, errors.New(errors.ErrorTypeMalformedResponse, "bls response carries no series")
	}

	var rows []source.RawRow
	for _, item := range decoded.Results.Series[0].Data {
		rows = append(rows, source.RawRow{
			"year":   item.Year,
			"period": item.Period,
			"value":  item.Value,
		})
	}

	a.logger.Debug("fetched bls series",
		zap.String("series_id", a.seriesID),
		zap.Int("rows", len(rows)))
	return rows, nil
}

// Normalize turns year+period pairs into first-of-month observations.
// Only M01..M12 periods are monthly; M13 annual averages and quarterly
// periods are dropped.
func (a *Adapter) Normalize(rows []source.RawRow, s *series.Series) *source.NormalizeResult {
	res := &source.NormalizeResult{}

	for _, row := range rows {
		month, ok := monthlyPeriod(row["period"])
		if !ok {
			res.Drop("non_monthly_period")
			continue
		}
		year, err := strconv.Atoi(row["year"])
		if err != nil {
			res.Drop("bad_year")
			continue
		}
		value, err := source.ParseFloat(row["value"])
		if err != nil {
			res.Drop("bad_value")
			continue
		}

		date := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		obs := models.NewObservation(date, a.Name())
		for _, col := range s.ValueColumns {
			obs.SetValue(col, value)
		}
		res.Observations = append(res.Observations, obs)
	}
	return res
}

// monthlyPeriod parses an M01..M12 period code
func monthlyPeriod(period string) (int, bool) {
	var month int
	if _, err := fmt.Sscanf(period, "M%02d", &month); err != nil {
		return 0, false
	}
	if month < 1 || month > 12 {
		return 0, false
	}
	return month, true
}
