package imaging

import (
	"context"
	"encoding/base64"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/divaparadises/studio/internal/genaiapi/genaiapitest"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func writePNG(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.png")
	require.NoError(t, os.WriteFile(path, pngBytes, 0o600))
	return path
}

func TestParseQuality(t *testing.T) {
	q, err := ParseQuality("PRO")
	require.NoError(t, err)
	assert.Equal(t, Pro, q)
	_, err = ParseQuality("ultra")
	assert.Error(t, err)
}

func TestGenerate(t *testing.T) {
	fake := &genaiapitest.Models{GenerateContentFunc: genaiapitest.ReplyWith(genaiapitest.PartsResponse(
		&genai.Part{Text: "Here is your diva."},
		&genai.Part{InlineData: &genai.Blob{MIMEType: "image/png", Data: pngBytes}},
	))}
	g := NewGenerator(fake, "", "", "")

	img, err := g.Generate(context.Background(), "a diva", Pro, "16:9")
	require.NoError(t, err)
	assert.Equal(t, pngBytes, img.Data)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, "Here is your diva.", img.Caption)

	call := fake.LastCall()
	assert.Equal(t, "gemini-3-pro-image-preview", call.Model)
	assert.Equal(t, []string{"TEXT", "IMAGE"}, call.Config.ResponseModalities)
	assert.Equal(t, "16:9", call.Config.ImageConfig.AspectRatio)

	out := filepath.Join(t.TempDir(), "out", "diva.png")
	require.NoError(t, img.Save(out))
	saved, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, saved)
}

func TestGenerateNoImage(t *testing.T) {
	fake := &genaiapitest.Models{GenerateContentFunc: genaiapitest.ReplyWith(genaiapitest.TextResponse("sorry"))}
	_, err := NewGenerator(fake, "flash-model", "", "").Generate(context.Background(), "x", Flash, "")
	assert.ErrorIs(t, err, ErrNoImage)
	assert.Equal(t, "flash-model", fake.LastCall().Model)
	assert.Nil(t, fake.LastCall().Config.ImageConfig)
}

func TestEdit(t *testing.T) {
	fake := &genaiapitest.Models{GenerateContentFunc: genaiapitest.ReplyWith(genaiapitest.PartsResponse(
		&genai.Part{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("new")}},
	))}
	img, err := NewGenerator(fake, "", "", "").Edit(context.Background(), "add a hat", writePNG(t), Flash)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), img.Data)

	parts := fake.LastCall().Contents[0].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, pngBytes, parts[0].InlineData.Data)
	assert.Equal(t, "add a hat", parts[1].Text)
}

func TestGenerateImagen(t *testing.T) {
	var gotCfg *genai.GenerateImagesConfig
	fake := &genaiapitest.Models{GenerateImagesFunc: func(_ context.Context, model, prompt string, cfg *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
		gotCfg = cfg
		return &genai.GenerateImagesResponse{GeneratedImages: []*genai.GeneratedImage{
			{Image: &genai.Image{ImageBytes: pngBytes}},
			{RAIFilteredReason: "filtered"},
			{Image: &genai.Image{ImageBytes: []byte("jpg"), MIMEType: "image/jpeg"}},
		}}, nil
	}}
	imgs, err := NewGenerator(fake, "", "", "").GenerateImagen(context.Background(), "stage", 3, "1:1")
	require.NoError(t, err)
	require.Len(t, imgs, 2)
	assert.Equal(t, "image/png", imgs[0].MIMEType)
	assert.Equal(t, "image/jpeg", imgs[1].MIMEType)
	assert.EqualValues(t, 3, gotCfg.NumberOfImages)
	assert.Equal(t, "1:1", gotCfg.AspectRatio)
}

func TestBoundingBoxRect(t *testing.T) {
	b := BoundingBox{Box2D: [4]int{100, 200, 500, 800}, Label: "guitar"}
	assert.Equal(t, image.Rect(200, 50, 800, 250), b.Rect(1000, 500))
}

func TestParseJSONBlock(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"```json\n[{\"label\":\"a\"}]\n```", `[{"label":"a"}]`},
		{"Sure!\n```\n[1]\n```\nDone", "[1]"},
		{"  [2]  ", "[2]"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseJSONBlock(tt.in))
	}
}

func TestDetectObjects(t *testing.T) {
	fake := &genaiapitest.Models{GenerateContentFunc: genaiapitest.ReplyWith(genaiapitest.TextResponse(
		"```json\n[{\"box_2d\":[10,20,30,40],\"label\":\"mic\"}]\n```"))}
	in := NewIntelligence(fake, "")

	boxes, err := in.DetectObjects(context.Background(), writePNG(t), "")
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, [4]int{10, 20, 30, 40}, boxes[0].Box2D)
	assert.Equal(t, "mic", boxes[0].Label)

	prompt := fake.LastCall().Contents[0].Parts[1].Text
	assert.Contains(t, prompt, "Detect all prominent items.")
	assert.Contains(t, prompt, "box_2d")
}

func TestSegmentObjects(t *testing.T) {
	mask := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
	fake := &genaiapitest.Models{GenerateContentFunc: genaiapitest.ReplyWith(genaiapitest.TextResponse(
		`[{"box_2d":[0,0,1000,1000],"label":"stage","mask":"` + mask + `"}]`))}
	in := NewIntelligence(fake, "gemini-2.5-pro")

	segs, err := in.SegmentObjects(context.Background(), writePNG(t), "Segment the stage.")
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, "stage", segs[0].Label)
	png, err := segs[0].MaskPNG()
	require.NoError(t, err)
	assert.Equal(t, pngBytes, png)

	cfg := fake.LastCall().Config
	assert.EqualValues(t, 0, *cfg.ThinkingConfig.ThinkingBudget)
}

func TestDetectObjectsBadJSON(t *testing.T) {
	fake := &genaiapitest.Models{GenerateContentFunc: genaiapitest.ReplyWith(genaiapitest.TextResponse("no boxes"))}
	_, err := NewIntelligence(fake, "").DetectObjects(context.Background(), writePNG(t), "")
	assert.Error(t, err)
}
