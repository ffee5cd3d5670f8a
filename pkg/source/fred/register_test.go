package fred

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/harvest/pkg/registry"
)

func TestCollectorsAreRegistered(t *testing.T) {
	for _, name := range []string{"fed-funds", "sp500", "vix", "fred-treasury-yields", "us-tips", "t5yifr"} {
		e, err := registry.Get(name)
		require.NoError(t, err, name)
		assert.Equal(t, "fred", e.Provider, name)
		assert.NotEmpty(t, e.Description, name)
		assert.NotNil(t, e.Factory, name)
	}
}

func TestTreasuryDimensionsMatchSpecs(t *testing.T) {
	dims := dimensions(treasurySpecs)
	require.Len(t, dims, len(treasurySpecs))
	assert.Contains(t, dims, "DGS10")
	assert.Contains(t, dims, "DGS1MO")
}

func TestTipsCurveCoversFullMaturityRange(t *testing.T) {
	dims := dimensions(tipsSpecs)
	require.Len(t, dims, 5)
	assert.Equal(t, []string{"5Y", "7Y", "10Y", "20Y", "30Y"}, dims)
}
