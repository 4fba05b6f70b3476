package docs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divaparadises/studio/files"
	"github.com/divaparadises/studio/internal/genaiapi/genaiapitest"
)

func newProcessor(reply string) (*Processor, *genaiapitest.Models) {
	models := &genaiapitest.Models{GenerateContentFunc: genaiapitest.ReplyWith(genaiapitest.TextResponse(reply))}
	return NewProcessor(files.NewHandler(&genaiapitest.Files{}, time.Millisecond), models, ""), models
}

func writePDF(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7\n"), 0o600))
	return path
}

func TestAnalyze(t *testing.T) {
	p, models := newProcessor("A contract.")
	got, err := p.Analyze(context.Background(), writePDF(t, "contract.pdf"), "")
	require.NoError(t, err)
	assert.Equal(t, "A contract.", got)

	parts := models.LastCall().Contents[0].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, "application/pdf", parts[0].FileData.MIMEType)
	assert.Equal(t, "Summarize this document.", parts[1].Text)
}

func TestCompare(t *testing.T) {
	p, models := newProcessor("They differ.")
	got, err := p.Compare(context.Background(), []string{writePDF(t, "a.pdf"), writePDF(t, "b.pdf")}, "Differences?")
	require.NoError(t, err)
	assert.Equal(t, "They differ.", got)

	parts := models.LastCall().Contents[0].Parts
	require.Len(t, parts, 3)
	assert.Equal(t, "Differences?", parts[0].Text)
	assert.NotEqual(t, parts[1].FileData.FileURI, parts[2].FileData.FileURI)

	_, err = p.Compare(context.Background(), []string{writePDF(t, "a.pdf")}, "")
	assert.Error(t, err)
}
