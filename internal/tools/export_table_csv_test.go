package tools

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSVRow_EscapesActiveCharacters(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	writeCSVRow(&sb, []string{"hello, world", `she said "hi"`, "line1\nline2"})

	want := "\"hello, world\",\"she said \"\"hi\"\"\",\"line1\nline2\"\n"
	assert.Equal(t, want, sb.String())
}

func TestCSVRoundTrip(t *testing.T) {
	t.Parallel()

	fields := []string{"plain", "hello, world", `quote "here"`, "multi\nline", ""}

	var sb strings.Builder
	writeCSVRow(&sb, fields)

	reader := csv.NewReader(strings.NewReader(sb.String()))

	got, err := reader.Read()
	require.NoError(t, err)
	assert.Equal(t, fields, got)
}

func TestEscapeCSVField_NoActiveCharactersPassesThrough(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "plain value", escapeCSVField("plain value"))
}
