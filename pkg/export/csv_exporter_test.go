package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRenderExcelFriendlyOutput(t *testing.T) {
	data := Dataset{
		Headers: []string{"LRN", "Name", "Grade"},
		Rows: []map[string]string{
			{"LRN": "123456789012", "Name": "Peñaflor, Niña", "Grade": "Grade 7"},
			{"Name": "Reyes, Ana"},
		},
	}

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)

	body := string(out)
	require.True(t, strings.HasPrefix(body, "\ufeff"), "output should open with a BOM")
	body = strings.TrimPrefix(body, "\ufeff")

	lines := strings.Split(strings.TrimSuffix(body, "\r\n"), "\r\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "LRN,Name,Grade", lines[0])
	assert.Equal(t, "123456789012,\"Peñaflor, Niña\",Grade 7", lines[1])
	// Missing keys render as empty cells in header order.
	assert.Equal(t, ",\"Reyes, Ana\",", lines[2])
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one header")
}
