// Package fiscaldata fetches the daily Treasury par yield curve from
// the Treasury FiscalData API. Each API record carries one column per
// maturity; normalization pivots them into one observation per
// (date, maturity) pair.
package fiscaldata

import (
	"context"
	"fmt"
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

const (
	baseURL  = "https://api.fiscaldata.treasury.gov/services/api/v1/accounting/od/daily_treasury_yield_curve"
	pageSize = 10000
)

// maturityFields maps API field names to curve point labels, in curve order
var maturityFields = []struct {
	Field    string
	Maturity string
}{
	{"1_mo", "1M"},
	{"2_mo", "2M"},
	{"3_mo", "3M"},
	{"4_mo", "4M"},
	{"6_mo", "6M"},
	{"1_yr", "1Y"},
	{"2_yr", "2Y"},
	{"3_yr", "3Y"},
	{"5_yr", "5Y"},
	{"7_yr", "7Y"},
	{"10_yr", "10Y"},
	{"20_yr", "20Y"},
	{"30_yr", "30Y"},
}

// Maturities returns the curve point labels in curve order
func Maturities() []string {
	out := make([]string, len(maturityFields))
	for i, m := range maturityFields {
		out[i] = m.Maturity
	}
	return out
}

// Adapter fetches the daily yield curve
type Adapter struct {
	client *clients.HTTPClient
	logger *zap.Logger
}

// New builds a FiscalData adapter; the API needs no key
func New(cfg *config.Config, log *zap.Logger) *Adapter {
	httpCfg := clients.DefaultHTTPConfig()
	httpCfg.RequestTimeout = cfg.Timeouts.Request
	client := clients.NewHTTPClient(httpCfg, log)
	client.SetRateLimiter(clients.NewProviderLimiter(cfg.Reliability.CallsPerMinute))

	return &Adapter{client: client, logger: log}
}

func (a *Adapter) Name() string { return "fiscaldata" }

func (a *Adapter) Constraints() source.Constraints {
	return source.Constraints{CallsPerMinute: 30}
}

type fiscalResponse struct {
	Data []map[string]interface{} `json:"data"`
	Meta struct {
		TotalPages int `json:"total-pages"`
	} `json:"meta"`
}

// Fetch pages through records filtered to the window
func (a *Adapter) Fetch(ctx context.Context, start, end time.Time) ([]source.RawRow, error) {
	filter := fmt.Sprintf("record_date:gte:%s,record_date:lte:%s",
		start.Format(models.DateLayout), end.Format(models.DateLayout))

	var rows []source.RawRow
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("format", "json")
		params.Set("sort", "record_date")
		params.Set("filter", filter)
		params.Set("page[size]", strconv.Itoa(pageSize))
		params.Set("page[number]", strconv.Itoa(page))

		resp, err := a.client.Get(ctx, baseURL+"?"+params.Encode(), nil)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeSourceUnavailable, "fiscaldata request failed")
		}
		if err := source.CheckStatus(resp, "fiscaldata"); err != nil {
			resp.Body.Close()
			return nil, err
		}

		var decoded fiscalResponse
		if err := source.DecodeJSON(resp, "fiscaldata", &decoded); err != nil {
			return nil, err
		}

		for _, record := range decoded.Data {
			row := source.RawRow{}
			for field, v := range record {
				if s, ok := v.(string); ok {
					row[field] = s
				}
			}
			rows = append(rows, row)
		}

		if page >= decoded.Meta.TotalPages || len(decoded.Data) == 0 {
			break
		}
	}

	a.logger.Debug("fetched yield curve records", zap.Int("records", len(rows)))
	return rows, nil
}

// Normalize pivots each curve record into per-maturity observations.
// Missing maturities (the 2-month bill only exists from late 2018, the
// 4-month from 2022) are simply absent, not dropped rows.
func (a *Adapter) Normalize(rows []source.RawRow, s *series.Series) *source.NormalizeResult {
	res := &source.NormalizeResult{}

	for _, row := range rows {
		date, err := source.ParseDate(row["record_date"], models.DateLayout)
		if err != nil {
			res.Drop("bad_date")
			continue
		}

		for _, m := range maturityFields {
			raw, ok := row[m.Field]
			if !ok || raw == "" || raw == "null" {
				continue
			}
			value, err := source.ParseFloat(raw)
			if err != nil {
				res.Drop("bad_value")
				continue
			}

			obs := models.NewDimensionObservation(date, m.Maturity, a.Name())
			for _, col := range s.ValueColumns {
				obs.SetValue(col, value)
			}
			res.Observations = append(res.Observations, obs)
		}
	}
	return res
}
