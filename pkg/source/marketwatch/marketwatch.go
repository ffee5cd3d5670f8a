// Package marketwatch downloads daily index OHLCV history as CSV from
// MarketWatch. The endpoint serves at most one year per request, so
// the adapter declares a 365-day span cap and lets the planner chunk
// longer gaps. MarketWatch rejects default Go user agents; requests go
// out with browser-shaped headers.
package marketwatch

import (
	"context"
	"encoding/csv"
	"net/url"
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
	downloadURL = "https://www.marketwatch.com/investing/index/%s/downloaddatapartial"

	requestTimeLayout = "01/02/2006 15:04:05"
)

// Adapter downloads one index's history
type Adapter struct {
	symbol      string
	countryCode string
	client      *clients.HTTPClient
	logger      *zap.Logger
}

// New builds a MarketWatch adapter for an index symbol (e.g. "ukx")
func New(cfg *config.Config, log *zap.Logger, symbol, countryCode string) (*Adapter, error) {
	if symbol == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "marketwatch adapter needs an index symbol")
	}

	httpCfg := clients.DefaultHTTPConfig()
	httpCfg.RequestTimeout = cfg.Timeouts.Request
	client := clients.NewHTTPClient(httpCfg, log)
	client.SetRateLimiter(clients.NewProviderLimiter(cfg.Reliability.CallsPerMinute))

	return &Adapter{symbol: symbol, countryCode: countryCode, client: client, logger: log}, nil
}

func (a *Adapter) Name() string { return "marketwatch" }

func (a *Adapter) Constraints() source.Constraints {
	// The download endpoint serves at most one year of history per call
	return source.Constraints{MaxSpanDays: 365, CallsPerMinute: 10}
}

// Fetch downloads the CSV covering the window
func (a *Adapter) Fetch(ctx context.Context, start, end time.Time) ([]source.RawRow, error) {
	params := url.Values{}
	params.Set("startdate", start.Format(requestTimeLayout))
	params.Set("enddate", end.Add(23*time.Hour).Format(requestTimeLayout))
	params.Set("frequency", "p1d")
	params.Set("csvdownload", "true")
	params.Set("downloadpartial", "false")
	params.Set("newdates", "false")
	if a.countryCode != "" {
		params.Set("countrycode", a.countryCode)
	}

	endpoint := strings.Replace(downloadURL, "%s", a.symbol, 1)
	headers := map[string]string{
		"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		"Accept":          "text/csv,text/plain,*/*",
		"Accept-Language": "en-US,en;q=0.9",
		"Referer":         "https://www.marketwatch.com/investing/index/" + a.symbol,
	}

	resp, err := a.client.Get(ctx, endpoint+"?"+params.Encode(), headers)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSourceUnavailable, "marketwatch request failed").
			WithDetail("symbol", a.symbol)
	}
	if err := source.CheckStatus(resp, "marketwatch"); err != nil {
		resp.Body.Close()
		return nil, err
	}

	body, err := source.ReadBody(resp)
	if err != nil {
		return nil, err
	}

	rows, err := ParseCSV(string(body))
	if err != nil {
		return nil, err
	}

	a.logger.Debug("downloaded marketwatch history",
		zap.String("symbol", a.symbol),
		zap.Int("rows", len(rows)))
	return rows, nil
}

// ParseCSV reads a MarketWatch download into raw rows keyed by header
func ParseCSV(content string) ([]source.RawRow, error) {
	if !strings.Contains(content, "Date") {
		return nil, errors.New(errors.ErrorTypeMalformedResponse, "marketwatch response is not a history CSV")
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeMalformedResponse, "unreadable marketwatch CSV")
	}
	if len(records) < 2 {
		return nil, nil
	}

	header := records[0]
	var rows []source.RawRow
	for _, record := range records[1:] {
		row := source.RawRow{}
		for i, field := range record {
			if i < len(header) {
				row[strings.TrimSpace(header[i])] = field
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Normalize parses OHLCV rows. Prices carry thousands separators and
// volume carries B/M/K suffixes; rows missing any price are dropped,
// while a bad volume degrades to zero the way a missing field does.
func (a *Adapter) Normalize(rows []source.RawRow, s *series.Series) *source.NormalizeResult {
	res := &source.NormalizeResult{}

	for _, row := range rows {
		date, err := source.ParseDate(row["Date"], "01/02/2006", models.DateLayout)
		if err != nil {
			res.Drop("bad_date")
			continue
		}

		prices := map[string]float64{}
		bad := false
		for col, field := range map[string]string{
			"open_price":  "Open",
			"high_price":  "High",
			"low_price":   "Low",
			"close_price": "Close",
		} {
			v, err := source.ParseFloat(row[field])
			if err != nil {
				bad = true
				break
			}
			prices[col] = v
		}
		if bad {
			res.Drop("missing_price")
			continue
		}

		volume := int64(0)
		if raw, ok := row["Volume"]; ok && raw != "" {
			if v, err := source.ParseVolume(raw); err == nil {
				volume = v
			}
		}

		obs := models.NewObservation(date, a.Name())
		for col, v := range prices {
			obs.SetValue(col, v)
		}
		obs.SetValue("volume", float64(volume))
		res.Observations = append(res.Observations, obs)
	}
	return res
}
