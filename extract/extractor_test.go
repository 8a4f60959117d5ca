package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF writes a minimal single-font PDF with one text line per page.
func buildPDF(t *testing.T, pages ...string) []byte {
	t.Helper()

	var buf bytes.Buffer
	var offsets []int
	writeObj := func(body string) int {
		offsets = append(offsets, buf.Len())
		id := len(offsets)
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", id, body)
		return id
	}

	buf.WriteString("%PDF-1.4\n")

	// Object ids: 1 catalog, 2 pages, 3 font, then page/content pairs.
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+i*2)
	}
	writeObj("<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	writeObj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	for i, text := range pages {
		content := "BT /F1 12 Tf 72 712 Td (" + text + ") Tj ET"
		writeObj(fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			5+i*2))
		writeObj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func newTestExtractor(t *testing.T, opts ...Option) *PDFExtractor {
	t.Helper()
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	e, err := NewPDFExtractor(opts...)
	require.NoError(t, err)
	return e
}

func TestNewPDFExtractor_Defaults(t *testing.T) {
	e := newTestExtractor(t)
	assert.Equal(t, DefaultChunkSize, e.chunkSize)
	assert.Equal(t, DefaultChunkOverlap, e.chunkOverlap)
}

func TestNewPDFExtractor_InvalidChunking(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"zero size", []Option{WithChunkSize(0)}},
		{"negative overlap", []Option{WithChunkOverlap(-1)}},
		{"overlap equals size", []Option{WithChunkSize(100), WithChunkOverlap(100)}},
		{"overlap larger than size", []Option{WithChunkSize(50), WithChunkOverlap(80)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPDFExtractor(tt.opts...)
			assert.ErrorIs(t, err, ErrInvalidChunking)
		})
	}
}

func TestExtract_NotPDF(t *testing.T) {
	e := newTestExtractor(t)

	_, err := e.Extract(context.Background(), []byte("just some text, no header"))
	assert.ErrorIs(t, err, ErrNotPDF)

	_, err = e.Extract(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotPDF)
}

func TestExtract_TruncatedPDF(t *testing.T) {
	e := newTestExtractor(t)

	data := []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")
	_, err := e.Extract(context.Background(), data)
	assert.ErrorIs(t, err, ErrMalformedPDF)
}

func TestExtract_CancelledContext(t *testing.T) {
	e := newTestExtractor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Extract(ctx, buildPDF(t, "hello"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtract_Pages(t *testing.T) {
	e := newTestExtractor(t)
	data := buildPDF(t, "Quarterly revenue grew", "Operating costs fell")

	chunks, err := e.Extract(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 1, chunks[0].Page)
	assert.Contains(t, chunks[0].Text, "Quarterly revenue grew")

	assert.Equal(t, 1, chunks[1].Index)
	assert.Equal(t, 2, chunks[1].Page)
	assert.Contains(t, chunks[1].Text, "Operating costs fell")
}

func TestExtract_BlankDocument(t *testing.T) {
	e := newTestExtractor(t)

	_, err := e.Extract(context.Background(), buildPDF(t, "   "))
	assert.ErrorIs(t, err, ErrNoText)
}

func TestSplit_SkipsEmptyPages(t *testing.T) {
	e := newTestExtractor(t)

	chunks, err := e.split([]Page{
		{Number: 1, Text: "first page"},
		{Number: 2, Text: "  \n\t "},
		{Number: 3, Text: "third page"},
	})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, 3, chunks[1].Page)
	assert.Equal(t, 1, chunks[1].Index)
}

func TestSplit_LongPageProducesOrderedChunks(t *testing.T) {
	e := newTestExtractor(t, WithChunkSize(40), WithChunkOverlap(0))

	words := make([]string, 60)
	for i := range words {
		words[i] = fmt.Sprintf("w%02d", i)
	}
	chunks, err := e.split([]Page{
		{Number: 1, Text: strings.Join(words, " ")},
		{Number: 2, Text: "tail"},
	})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 2)

	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.LessOrEqual(t, len(c.Text), 40)
	}
	assert.True(t, strings.HasPrefix(chunks[0].Text, "w00"))
	last := chunks[len(chunks)-1]
	assert.Equal(t, 2, last.Page)
	assert.Equal(t, "tail", last.Text)
}

func TestSplit_NoPages(t *testing.T) {
	e := newTestExtractor(t)

	_, err := e.split(nil)
	assert.ErrorIs(t, err, ErrNoText)
}
