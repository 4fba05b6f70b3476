package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divaparadises/studio/audio"
	"github.com/divaparadises/studio/internal/config"
	"github.com/divaparadises/studio/storage"
)

// pngHeader is enough for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestParseSpeakers(t *testing.T) {
	speakers, err := parseSpeakers([]string{"Nova=Puck", "Zen=Charon"})
	require.NoError(t, err)
	assert.Equal(t, []audio.Speaker{{Name: "Nova", Voice: "Puck"}, {Name: "Zen", Voice: "Charon"}}, speakers)

	for _, bad := range []string{"Nova", "=Puck", "Nova="} {
		_, err := parseSpeakers([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestReadRequests(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.txt")
	require.NoError(t, os.WriteFile(path, []byte("first prompt\n\n  second prompt  \n"), 0o644))

	requests, err := readRequests(path)
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, "first prompt", requests[0].Contents[0].Parts[0].Text)
	assert.Equal(t, "second prompt", requests[1].Contents[0].Parts[0].Text)

	_, err = readRequests(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestKeep(t *testing.T) {
	cfg = config.Default()
	cfg.Storage.BaseDir = t.TempDir()

	require.NoError(t, keep(storage.Image, pngHeader, "a red fox", map[string]any{"path": "outputs/fox.png"}))

	st, err := storage.Open(cfg.Storage.BaseDir)
	require.NoError(t, err)
	items := st.List(storage.Image, 10, 0)
	require.Len(t, items, 1)
	assert.Equal(t, "a red fox", items[0].Prompt)
	assert.Equal(t, "png", items[0].Extension)
	assert.Equal(t, "outputs/fox.png", items[0].Extra["path"])
}

func TestStorageSaveCommand(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "store")
	cfgFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("storage:\n  base_dir: "+base+"\n"), 0o644))
	img := filepath.Join(dir, "cat.png")
	require.NoError(t, os.WriteFile(img, pngHeader, 0o644))

	rootCmd.SetArgs([]string{"--config", cfgFile, "storage", "save", "image", img, "--prompt", "a sleepy cat"})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	st, err := storage.Open(base)
	require.NoError(t, err)
	found := st.Search("sleepy", 10)
	require.Len(t, found, 1)
	assert.Equal(t, storage.Image, found[0].Kind)
}

func TestCommandTree(t *testing.T) {
	want := []string{"text", "image", "video", "audio", "embed", "files", "docs", "tokens", "models",
		"batch", "cache", "interact", "live", "music", "agent", "drive", "storage", "flow"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}
