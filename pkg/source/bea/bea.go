// Package bea fetches quarterly GDP from the Bureau of Economic
// Analysis NIPA tables.
package bea

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
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
	baseURL = "https://apps.bea.gov/api/data"

	// The headline row of NIPA table T10101; other rows break GDP into
	// components and are skipped.
	gdpLineDescription = "Gross domestic product"
)

// Adapter fetches the NIPA T10101 quarterly GDP table
type Adapter struct {
	apiKey string
	client *clients.HTTPClient
	logger *zap.Logger
}

// New builds a BEA adapter. BEA_API_KEY is required.
func New(cfg *config.Config, log *zap.Logger) (*Adapter, error) {
	apiKey, err := config.APIKey("BEA_API_KEY", true)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "bea adapter needs an API key")
	}

	httpCfg := clients.DefaultHTTPConfig()
	httpCfg.RequestTimeout = cfg.Timeouts.Request
	client := clients.NewHTTPClient(httpCfg, log)
	client.SetRateLimiter(clients.NewProviderLimiter(cfg.Reliability.CallsPerMinute))

	return &Adapter{apiKey: apiKey, client: client, logger: log}, nil
}

func (a *Adapter) Name() string { return "bea" }

func (a *Adapter) Constraints() source.Constraints {
	return source.Constraints{CallsPerMinute: 30, RequiresAPIKey: true}
}

type beaResponse struct {
	BEAAPI struct {
		Results struct {
			Data []struct {
				LineDescription string `json:"LineDescription"`
				TimePeriod      string `json:"TimePeriod"`
				DataValue       string `json:"DataValue"`
			} `json:"Data"`
			Error *struct {
				Description string `json:"APIErrorDescription"`
			} `json:"Error"`
		} `json:"Results"`
	} `json:"BEAAPI"`
}

// Fetch requests the years spanned by the window. BEA filters by year
// only, so surplus quarters come back and are clipped downstream.
func (a *Adapter) Fetch(ctx context.Context, start, end time.Time) ([]source.RawRow, error) {
	years := make([]string, 0, end.Year()-start.Year()+1)
	for y := start.Year(); y <= end.Year(); y++ {
		years = append(years, strconv.Itoa(y))
	}

	params := url.Values{}
	params.Set("UserID", a.apiKey)
	params.Set("Method", "GetData")
	params.Set("datasetname", "NIPA")
	params.Set("TableName", "T10101")
	params.Set("Frequency", "Q")
	params.Set("Year", strings.Join(years, ","))
	params.Set("ResultFormat", "json")

	resp, err := a.client.Get(ctx, baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSourceUnavailable, "bea request failed")
	}
	if err := source.CheckStatus(resp, "bea"); err != nil {
		resp.Body.Close()
		return nil, err
	}

	var decoded beaResponse
	if err := source.DecodeJSON(resp, "bea", &decoded); err != nil {
		return nil, err
	}
	if decoded.BEAAPI.Results.Error != nil {
		return nil, errors.Newf(errors.ErrorTypeSourceUnavailable,
			"bea request not accepted: %s", decoded.BEAAPI.Results.Error.Description)
	}

	var rows []source.RawRow
	for _, item := range decoded.BEAAPI.Results.Data {
		rows = append(rows, source.RawRow{
			"line_description": item.LineDescription,
			"time_period":      item.TimePeriod,
			"data_value":       item.DataValue,
		})
	}

	a.logger.Debug("fetched bea table", zap.Int("rows", len(rows)))
	return rows, nil
}

// Normalize keeps the headline GDP rows and anchors each quarter at
// the first day of its final month (Q1 -> Mar 1), inside the quarter
// it describes.
func (a *Adapter) Normalize(rows []source.RawRow, s *series.Series) *source.NormalizeResult {
	res := &source.NormalizeResult{}

	for _, row := range rows {
		if row["line_description"] != gdpLineDescription {
			res.Drop("non_headline_line")
			continue
		}

		year, quarter, err := parseQuarter(row["time_period"])
		if err != nil {
			res.Drop("bad_period")
			continue
		}
		value, err := source.ParseFloat(row["data_value"])
		if err != nil {
			res.Drop("bad_value")
			continue
		}

		date := time.Date(year, time.Month(quarter*3), 1, 0, 0, 0, 0, time.UTC)
		obs := models.NewObservation(date, a.Name())
		for _, col := range s.ValueColumns {
			obs.SetValue(col, value)
		}
		res.Observations = append(res.Observations, obs)
	}
	return res
}

// parseQuarter accepts both "2023Q1" and "2023-Q1"
func parseQuarter(period string) (year, quarter int, err error) {
	period = strings.ReplaceAll(period, "-Q", "Q")
	if _, err := fmt.Sscanf(period, "%dQ%d", &year, &quarter); err != nil {
		return 0, 0, errors.Newf(errors.ErrorTypeValidation, "unparseable quarter %q", period)
	}
	if quarter < 1 || quarter > 4 {
		return 0, 0, errors.Newf(errors.ErrorTypeValidation, "quarter out of range in %q", period)
	}
	return year, quarter, nil
}
