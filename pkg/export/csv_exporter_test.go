package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRenderWritesBOMAndRows(t *testing.T) {
	exporter := NewCSVExporter()

	out, err := exporter.Render(Dataset{
		Headers: []string{"Judul", "Status"},
		Rows: []map[string]string{
			{"Judul": "Jalan berlubang", "Status": "pending"},
			{"Judul": "Lampu mati", "Status": "resolved"},
		},
	})
	require.NoError(t, err)

	text := string(out)
	assert.True(t, strings.HasPrefix(text, "\xEF\xBB\xBF"), "missing UTF-8 BOM")
	assert.Contains(t, text, "Judul,Status")
	assert.Contains(t, text, "Jalan berlubang,pending")
	assert.Contains(t, text, "Lampu mati,resolved")
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()

	_, err := exporter.Render(Dataset{})
	require.Error(t, err)
}
