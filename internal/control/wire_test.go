package control

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLineDecodesState(t *testing.T) {
	input := `{"version":1,"tags":"castle","width":64,"height":64,"cancel":[2,3]}` + "\n"
	r := NewReader(strings.NewReader(input))

	st, err := r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Version)
	assert.Equal(t, "castle", st.Tags)
	assert.Equal(t, 64, st.Width)
	assert.Equal(t, []int64{2, 3}, st.Cancel)
}

func TestReadLineSanitizesFreeText(t *testing.T) {
	input := `{"version":1,"positive":"<script>alert(1)</script>a castle"}` + "\n"
	r := NewReader(strings.NewReader(input))

	st, err := r.ReadLine()
	require.NoError(t, err)
	assert.NotContains(t, st.Positive, "<script>")
	assert.Contains(t, st.Positive, "a castle")
}

func TestReadLineMalformedReturnsParseError(t *testing.T) {
	r := NewReader(strings.NewReader("not json\n"))
	_, err := r.ReadLine()
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestReadLineEOF(t *testing.T) {
	r := NewReader(strings.NewReader(""))
	_, err := r.ReadLine()
	require.ErrorIs(t, err, io.EOF)
}

func TestWriterEmitsNewlineTerminatedJSON(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	err := w.Emit(ImageCompletion{Version: 1, Width: 64, Height: 64, Count: 3})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"version":1`)
}
