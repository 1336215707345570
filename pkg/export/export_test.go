package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRoster() Roster {
	r := Roster{Title: "Hack Night attendance", Columns: []string{"Student", "Email", "Marked At"}}
	r.AddRow("Amina", "amina@campus.test", "2026-10-17T09:00:00Z")
	r.AddRow("Omar, Jr.", "omar@campus.test")
	return r
}

func TestRenderCSV(t *testing.T) {
	out, err := Render(FormatCSV, sampleRoster())
	require.NoError(t, err)
	assert.Equal(t, "Student,Email,Marked At\nAmina,amina@campus.test,2026-10-17T09:00:00Z\n\"Omar, Jr.\",omar@campus.test,\n", string(out))
}

func TestRenderPDF(t *testing.T) {
	out, err := Render(FormatPDF, sampleRoster())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderRequiresColumns(t *testing.T) {
	_, err := Render(FormatCSV, Roster{})
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)
	assert.Equal(t, "application/pdf", f.ContentType())

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "hack-night-attendance.csv", Filename("Hack Night attendance", FormatCSV))
	assert.Equal(t, "export.pdf", Filename("  ", FormatPDF))
}
