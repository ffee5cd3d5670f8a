package marketwatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/harvest/pkg/series"
	"github.com/quantfold/harvest/pkg/source"
)

const sampleCSV = `Date, Open, High, Low, Close, Volume
03/13/2026,"7,650.12","7,699.80","7,630.00","7,682.34",805.42M
03/12/2026,"7,601.00","7,660.45","7,590.10","7,650.12",1.02B
`

func indexSeries() *series.Series {
	return &series.Series{
		Key:          "ftse-100",
		ValueColumns: []string{"open_price", "high_price", "low_price", "close_price", "volume"},
	}
}

func TestParseCSV(t *testing.T) {
	rows, err := ParseCSV(sampleCSV)

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "03/13/2026", rows[0]["Date"])
	assert.Equal(t, "7,682.34", rows[0]["Close"])
	assert.Equal(t, "805.42M", rows[0]["Volume"])
}

func TestParseCSVRejectsNonCSVBody(t *testing.T) {
	_, err := ParseCSV("<html><body>Access Denied</body></html>")
	require.Error(t, err)
}

func TestParseCSVHeaderOnly(t *testing.T) {
	rows, err := ParseCSV("Date, Open, High, Low, Close, Volume\n")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestNormalizeParsesQuotedThousands(t *testing.T) {
	a := &Adapter{}
	rows, err := ParseCSV(sampleCSV)
	require.NoError(t, err)

	res := a.Normalize(rows, indexSeries())

	require.Len(t, res.Observations, 2)
	first := res.Observations[0]
	assert.Equal(t, time.Date(2026, time.March, 13, 0, 0, 0, 0, time.UTC), first.Date)

	v, _ := first.Value("close_price")
	assert.InDelta(t, 7682.34, v, 1e-9)
	v, _ = first.Value("volume")
	assert.InDelta(t, 805420000, v, 1)

	v, _ = res.Observations[1].Value("volume")
	assert.InDelta(t, 1020000000, v, 1)
}

func TestNormalizeDropsRowsMissingAnyPrice(t *testing.T) {
	a := &Adapter{}

	res := a.Normalize([]source.RawRow{
		{"Date": "03/13/2026", "Open": "7,650.12", "High": "", "Low": "7,630.00", "Close": "7,682.34", "Volume": "805.42M"},
	}, indexSeries())

	assert.Empty(t, res.Observations)
	assert.Equal(t, 1, res.DropReasons["missing_price"])
}

func TestNormalizeBadVolumeDegradesToZero(t *testing.T) {
	a := &Adapter{}

	res := a.Normalize([]source.RawRow{
		{"Date": "03/13/2026", "Open": "1", "High": "2", "Low": "0.5", "Close": "1.5", "Volume": "n/a"},
		{"Date": "03/12/2026", "Open": "1", "High": "2", "Low": "0.5", "Close": "1.5"},
	}, indexSeries())

	require.Len(t, res.Observations, 2)
	for _, obs := range res.Observations {
		v, ok := obs.Value("volume")
		require.True(t, ok)
		assert.Zero(t, v)
	}
}

func TestNormalizeAcceptsISODatesToo(t *testing.T) {
	a := &Adapter{}

	res := a.Normalize([]source.RawRow{
		{"Date": "2026-03-13", "Open": "1", "High": "2", "Low": "0.5", "Close": "1.5", "Volume": "1K"},
	}, indexSeries())

	require.Len(t, res.Observations, 1)
	assert.Equal(t, time.Date(2026, time.March, 13, 0, 0, 0, 0, time.UTC), res.Observations[0].Date)
}
