// Package ons downloads the ONS MM23 consumer price inflation dataset
// and extracts the all-items CPI, CPIH, and RPI index series. The
// download is one very wide CSV (sometimes zip-wrapped) carrying
// annual, quarterly, and monthly rows; only monthly rows like
// "1988 JAN" are kept. The file always spans the full history, so the
// window planner never needs to chunk it.
package ons

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"io"
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

const downloadURL = "https://www.ons.gov.uk/file?uri=/economy/inflationandpriceindices/datasets/consumerpriceindices/current/mm23.csv"

// indexColumns maps output columns to the header text that identifies
// them in the MM23 header row
var indexColumns = []struct {
	Column     string
	HeaderText string
}{
	{"cpi_index", "CPI INDEX 00: ALL ITEMS"},
	{"cpih_index", "CPIH INDEX 00: ALL ITEMS"},
	{"rpi_index", "RPI All Items Index: Jan 1987=100"},
}

var months = map[string]time.Month{
	"JAN": time.January, "FEB": time.February, "MAR": time.March,
	"APR": time.April, "MAY": time.May, "JUN": time.June,
	"JUL": time.July, "AUG": time.August, "SEP": time.September,
	"OCT": time.October, "NOV": time.November, "DEC": time.December,
}

// Adapter downloads and extracts the MM23 dataset
type Adapter struct {
	client *clients.HTTPClient
	logger *zap.Logger
}

// New builds an ONS adapter; the download needs no key
func New(cfg *config.Config, log *zap.Logger) *Adapter {
	httpCfg := clients.DefaultHTTPConfig()
	// the full MM23 file runs to tens of megabytes
	httpCfg.RequestTimeout = 5 * time.Minute
	client := clients.NewHTTPClient(httpCfg, log)
	client.SetRateLimiter(clients.NewProviderLimiter(cfg.Reliability.CallsPerMinute))

	return &Adapter{client: client, logger: log}
}

func (a *Adapter) Name() string { return "ons" }

func (a *Adapter) Constraints() source.Constraints {
	return source.Constraints{CallsPerMinute: 2}
}

// Fetch downloads the whole dataset; the window only drives clipping
func (a *Adapter) Fetch(ctx context.Context, start, end time.Time) ([]source.RawRow, error) {
	resp, err := a.client.Get(ctx, downloadURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSourceUnavailable, "ons download failed")
	}
	if err := source.CheckStatus(resp, "ons"); err != nil {
		resp.Body.Close()
		return nil, err
	}

	body, err := source.ReadBody(resp)
	if err != nil {
		return nil, err
	}
	if body, err = unwrapZip(body); err != nil {
		return nil, err
	}

	rows, err := ExtractRows(body)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("extracted mm23 monthly rows", zap.Int("rows", len(rows)))
	return rows, nil
}

// unwrapZip returns the first CSV member when the payload is a zip
// archive, or the payload unchanged when it is not.
func unwrapZip(body []byte) ([]byte, error) {
	if !bytes.HasPrefix(body, []byte("PK\x03\x04")) {
		return body, nil
	}

	reader, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeMalformedResponse, "unreadable ons zip archive")
	}
	for _, f := range reader.File {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeMalformedResponse, "unreadable ons zip member")
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, errors.New(errors.ErrorTypeMalformedResponse, "ons zip archive carries no CSV")
}

// ExtractRows locates the all-items index columns in the header row
// and emits one raw row per monthly data row.
func ExtractRows(body []byte) ([]source.RawRow, error) {
	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeMalformedResponse, "unreadable mm23 CSV")
	}
	if len(records) < 2 {
		return nil, errors.New(errors.ErrorTypeMalformedResponse, "mm23 CSV carries no data rows")
	}

	header := records[0]
	positions := map[string]int{}
	for _, ic := range indexColumns {
		for i, h := range header {
			if strings.Contains(h, ic.HeaderText) {
				positions[ic.Column] = i
				break
			}
		}
	}
	if _, ok := positions["cpi_index"]; !ok {
		return nil, errors.New(errors.ErrorTypeMalformedResponse, "mm23 CSV is missing the all-items CPI column")
	}

	var rows []source.RawRow
	for _, record := range records[1:] {
		if len(record) == 0 || !isMonthlyLabel(record[0]) {
			continue
		}
		row := source.RawRow{"date": strings.TrimSpace(record[0])}
		for col, pos := range positions {
			if pos < len(record) {
				row[col] = strings.TrimSpace(record[pos])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// isMonthlyLabel matches "1988 JAN" style row labels, skipping the
// annual and quarterly rows interleaved in the same column
func isMonthlyLabel(label string) bool {
	parts := strings.Fields(strings.TrimSpace(label))
	if len(parts) != 2 {
		return false
	}
	if _, err := strconv.Atoi(parts[0]); err != nil {
		return false
	}
	_, ok := months[strings.ToUpper(parts[1])]
	return ok
}

// Normalize turns "YYYY MMM" rows into first-of-month observations.
// CPIH starts later than CPI and RPI was frozen in 2023, so absent
// columns are left unset rather than dropping the row.
func (a *Adapter) Normalize(rows []source.RawRow, s *series.Series) *source.NormalizeResult {
	res := &source.NormalizeResult{}

	for _, row := range rows {
		date, ok := parseMonthlyLabel(row["date"])
		if !ok {
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

func parseMonthlyLabel(label string) (time.Time, bool) {
	parts := strings.Fields(strings.TrimSpace(label))
	if len(parts) != 2 {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, false
	}
	month, ok := months[strings.ToUpper(parts[1])]
	if !ok {
		return time.Time{}, false
	}
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC), true
}
