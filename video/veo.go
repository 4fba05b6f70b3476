// Package video renders clips with Veo and analyzes existing videos.
package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"google.golang.org/genai"

	"github.com/divaparadises/studio/internal/genaiapi"
	"github.com/divaparadises/studio/internal/log"
	"github.com/divaparadises/studio/internal/media"
	"github.com/divaparadises/studio/internal/poll"
)

// ErrNoVideo is returned when a finished operation holds no video.
var ErrNoVideo = errors.New("operation produced no video")

// DefaultModel is the Veo model used when none is configured.
const DefaultModel = "veo-3.1-generate-preview"

// Options shape a generated clip.
type Options struct {
	AspectRatio     string // "16:9" or "9:16"
	Resolution      string // "720p" or "1080p"
	NegativePrompt  string
	DurationSeconds int32
}

func (o *Options) config() *genai.GenerateVideosConfig {
	cfg := &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		AspectRatio:    "16:9",
		Resolution:     "720p",
	}
	if o == nil {
		return cfg
	}
	if o.AspectRatio != "" {
		cfg.AspectRatio = o.AspectRatio
	}
	if o.Resolution != "" {
		cfg.Resolution = o.Resolution
	}
	cfg.NegativePrompt = o.NegativePrompt
	if o.DurationSeconds > 0 {
		cfg.DurationSeconds = genai.Ptr(o.DurationSeconds)
	}
	return cfg
}

// Client generates videos with Veo.
type Client struct {
	sdk      genaiapi.SDK
	model    string
	interval time.Duration
}

// NewClient returns a Veo client checking operations every interval.
func NewClient(sdk genaiapi.SDK, model string, interval time.Duration) *Client {
	if model == "" {
		model = DefaultModel
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Client{sdk: sdk, model: model, interval: interval}
}

// Generate renders prompt and saves the first video to outPath.
func (c *Client) Generate(ctx context.Context, prompt string, opts *Options, outPath string) (string, error) {
	log.Infof("rendering video with %s", c.model)
	op, err := c.sdk.Models.GenerateVideos(ctx, c.model, prompt, nil, opts.config())
	if err != nil {
		return "", fmt.Errorf("starting video generation: %w", err)
	}
	return c.finish(ctx, op, outPath)
}

// Animate renders a clip that starts from the image at imagePath.
func (c *Client) Animate(ctx context.Context, imagePath, prompt string, opts *Options, outPath string) (string, error) {
	data, mimeType, err := media.Load(imagePath)
	if err != nil {
		return "", err
	}
	log.Infof("animating %s with %s", imagePath, c.model)
	img := &genai.Image{ImageBytes: data, MIMEType: mimeType}
	op, err := c.sdk.Models.GenerateVideos(ctx, c.model, prompt, img, opts.config())
	if err != nil {
		return "", fmt.Errorf("starting image-to-video generation: %w", err)
	}
	return c.finish(ctx, op, outPath)
}

func (c *Client) finish(ctx context.Context, op *genai.GenerateVideosOperation, outPath string) (string, error) {
	op, err := c.wait(ctx, op)
	if err != nil {
		return "", err
	}
	if err := c.save(ctx, op, outPath); err != nil {
		return "", err
	}
	return outPath, nil
}

func (c *Client) wait(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	start := time.Now()
	err := poll.Until(ctx, c.interval, func(ctx context.Context) (bool, error) {
		if op.Done {
			return true, nil
		}
		log.Infof("%s still rendering (%s elapsed)", op.Name, time.Since(start).Round(time.Second))
		next, err := c.sdk.Operations.GetVideosOperation(ctx, op, nil)
		if err != nil {
			return false, fmt.Errorf("checking %s: %w", op.Name, err)
		}
		op = next
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	if op.Error != nil {
		return nil, fmt.Errorf("video generation failed: %v", op.Error["message"])
	}
	return op, nil
}

func (c *Client) save(ctx context.Context, op *genai.GenerateVideosOperation, outPath string) error {
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 || op.Response.GeneratedVideos[0].Video == nil {
		if op.Response != nil && len(op.Response.RAIMediaFilteredReasons) > 0 {
			return fmt.Errorf("%w: filtered: %v", ErrNoVideo, op.Response.RAIMediaFilteredReasons)
		}
		return ErrNoVideo
	}
	gv := op.Response.GeneratedVideos[0]
	data := gv.Video.VideoBytes
	if len(data) == 0 {
		var err error
		data, err = c.sdk.Files.Download(ctx, genai.NewDownloadURIFromGeneratedVideo(gv), nil)
		if err != nil {
			return fmt.Errorf("downloading video: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return err
	}
	log.Infof("saved video to %s", outPath)
	return nil
}
