package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/shopkit/catq/internal/catalog"
)

var sampleListing = []catalog.ProductSummary{
	{ID: 1, Name: "Stoneware Vase", PriceCents: 4250, Category: "Ceramics", InStock: true},
	{ID: 2, Name: "Linen Throw", PriceCents: 8900, Category: "Textiles"},
}

func TestRenderJSONRoundtrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render(&buf, sampleListing, "json"))

	var decoded []catalog.ProductSummary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, sampleListing, decoded)
}

func TestRenderYAMLRoundtrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render(&buf, []string{"Ceramics", "Textiles"}, "yaml"))

	var decoded []string
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, []string{"Ceramics", "Textiles"}, decoded)
}

func TestRenderTableIsDefault(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render(&buf, sampleListing, ""))

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Stoneware Vase")
	assert.Contains(t, out, "$42.50")
}

func TestRenderProductDetailTable(t *testing.T) {
	var buf bytes.Buffer
	p := &catalog.Product{ID: 7, Name: "Bowl", PriceCents: 1999, Category: "Ceramics", Description: "Hand-thrown."}
	require.NoError(t, render(&buf, p, "table"))

	out := buf.String()
	assert.Contains(t, out, "Bowl")
	assert.Contains(t, out, "$19.99")
	assert.Contains(t, out, "Hand-thrown.")
}

func TestRenderUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := render(&buf, sampleListing, "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "$0.05", formatPrice(5))
	assert.Equal(t, "$1.00", formatPrice(100))
	assert.Equal(t, "$42.50", formatPrice(4250))
}
