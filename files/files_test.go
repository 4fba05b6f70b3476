package files

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/divaparadises/studio/internal/genaiapi/genaiapitest"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestUploadDetectsMIME(t *testing.T) {
	fake := &genaiapitest.Files{}
	h := NewHandler(fake, time.Millisecond)
	path := writeFile(t, "report.pdf", []byte("%PDF-1.4\n"))

	f, err := h.Upload(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", f.MIMEType)
	assert.Equal(t, "report.pdf", f.DisplayName)
	assert.Equal(t, []byte("%PDF-1.4\n"), fake.Data(f.Name))
}

func TestUploadOverrides(t *testing.T) {
	fake := &genaiapitest.Files{}
	h := NewHandler(fake, time.Millisecond)
	path := writeFile(t, "clip", []byte("raw"))

	f, err := h.Upload(context.Background(), path, &UploadOptions{MIMEType: "audio/pcm", DisplayName: "Clip"})
	require.NoError(t, err)
	assert.Equal(t, "audio/pcm", f.MIMEType)
	assert.Equal(t, "Clip", f.DisplayName)
}

func TestUploadAndWait(t *testing.T) {
	fake := &genaiapitest.Files{Progress: []genai.FileState{
		genai.FileStateProcessing, genai.FileStateProcessing, genai.FileStateActive,
	}}
	h := NewHandler(fake, time.Millisecond)
	path := writeFile(t, "movie.mp4", []byte("not really a movie"))

	f, err := h.UploadAndWait(context.Background(), path, &UploadOptions{MIMEType: "video/mp4"})
	require.NoError(t, err)
	assert.Equal(t, genai.FileStateActive, f.State)
}

func TestWaitActiveFailed(t *testing.T) {
	fake := &genaiapitest.Files{Progress: []genai.FileState{genai.FileStateProcessing, genai.FileStateFailed}}
	h := NewHandler(fake, time.Millisecond)
	path := writeFile(t, "movie.mp4", []byte("broken"))

	_, err := h.UploadAndWait(context.Background(), path, &UploadOptions{MIMEType: "video/mp4"})
	assert.ErrorIs(t, err, ErrProcessingFailed)
}

func TestWaitActiveCancelled(t *testing.T) {
	fake := &genaiapitest.Files{Progress: []genai.FileState{
		genai.FileStateProcessing, genai.FileStateProcessing, genai.FileStateProcessing,
		genai.FileStateProcessing, genai.FileStateProcessing,
	}}
	h := NewHandler(fake, time.Hour)
	path := writeFile(t, "movie.mp4", []byte("slow"))
	f, err := h.Upload(context.Background(), path, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.WaitActive(ctx, f)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListAndDelete(t *testing.T) {
	fake := &genaiapitest.Files{}
	h := NewHandler(fake, time.Millisecond)
	ctx := context.Background()

	a, err := h.Upload(ctx, writeFile(t, "a.txt", []byte("a")), nil)
	require.NoError(t, err)
	_, err = h.Upload(ctx, writeFile(t, "b.txt", []byte("b")), nil)
	require.NoError(t, err)

	list, err := h.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, h.Delete(ctx, a.Name))
	list, err = h.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, []string{a.Name}, fake.Deleted())

	assert.Error(t, h.Delete(ctx, "files/unknown"))
}

func TestPart(t *testing.T) {
	p := Part(&genai.File{URI: "https://x/files/1", MIMEType: "video/mp4"})
	require.NotNil(t, p.FileData)
	assert.Equal(t, "https://x/files/1", p.FileData.FileURI)
	assert.Equal(t, "video/mp4", p.FileData.MIMEType)
}
