package media

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		file string
		want string
	}{
		{"png by content", pngHeader, "photo.bin", "image/png"},
		{"pdf by content", []byte("%PDF-1.7\n"), "doc", "application/pdf"},
		{"markdown by extension", []byte("# Title\n"), "notes.md", "text/markdown"},
		{"plain text", []byte("hello"), "notes", "text/plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.data, tt.file))
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img")
	require.NoError(t, os.WriteFile(path, pngHeader, 0o600))

	data, mt, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
	assert.Equal(t, "image/png", mt)

	mt, err = DetectFile(path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mt)

	_, _, err = Load(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestExtensionAndKind(t *testing.T) {
	assert.Equal(t, ".png", Extension("image/png"))
	assert.Equal(t, ".wav", Extension("audio/wav"))
	assert.Equal(t, "", Extension("application/x-unknown-thing"))
	assert.Equal(t, "video", Kind("video/mp4"))
	assert.Equal(t, "audio", Kind("audio/pcm;rate=16000"))
}
