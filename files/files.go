// Package files uploads local media to the Gemini Files API and manages
// File Search stores.
package files

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

// ErrProcessingFailed is returned when the service could not process an
// uploaded file.
var ErrProcessingFailed = errors.New("file processing failed")

// DefaultPollInterval is how often processing state is checked.
const DefaultPollInterval = 2 * time.Second

// Handler uploads files and waits until they can be used in prompts.
type Handler struct {
	files    genaiapi.Files
	interval time.Duration
}

// NewHandler returns a Handler polling every interval while a file is
// processed.
func NewHandler(files genaiapi.Files, interval time.Duration) *Handler {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Handler{files: files, interval: interval}
}

// UploadOptions overrides what Upload infers from the path.
type UploadOptions struct {
	MIMEType    string
	DisplayName string
}

// Upload sends the file at path. The MIME type is sniffed from the content
// and the display name defaults to the base name.
func (h *Handler) Upload(ctx context.Context, path string, opts *UploadOptions) (*genai.File, error) {
	cfg := &genai.UploadFileConfig{DisplayName: filepath.Base(path)}
	if opts != nil {
		cfg.MIMEType = opts.MIMEType
		if opts.DisplayName != "" {
			cfg.DisplayName = opts.DisplayName
		}
	}
	if cfg.MIMEType == "" {
		mt, err := media.DetectFile(path)
		if err != nil {
			return nil, err
		}
		cfg.MIMEType = mt
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	file, err := h.files.Upload(ctx, f, cfg)
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", path, err)
	}
	log.Infof("uploaded %s as %s (%s)", path, file.Name, cfg.MIMEType)
	return file, nil
}

// WaitActive polls file until it leaves the PROCESSING state.
func (h *Handler) WaitActive(ctx context.Context, file *genai.File) (*genai.File, error) {
	current := file
	err := poll.Until(ctx, h.interval, func(ctx context.Context) (bool, error) {
		switch current.State {
		case genai.FileStateActive:
			return true, nil
		case genai.FileStateFailed:
			if current.Error != nil && current.Error.Message != "" {
				return false, fmt.Errorf("%w: %s: %s", ErrProcessingFailed, current.Name, current.Error.Message)
			}
			return false, fmt.Errorf("%w: %s", ErrProcessingFailed, current.Name)
		}
		log.Debugf("%s is %s, waiting", current.Name, current.State)
		next, err := h.files.Get(ctx, current.Name, nil)
		if err != nil {
			return false, fmt.Errorf("checking %s: %w", current.Name, err)
		}
		current = next
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return current, nil
}

// UploadAndWait uploads path and returns once the file is ACTIVE.
func (h *Handler) UploadAndWait(ctx context.Context, path string, opts *UploadOptions) (*genai.File, error) {
	file, err := h.Upload(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	return h.WaitActive(ctx, file)
}

// Get fetches file metadata.
func (h *Handler) Get(ctx context.Context, name string) (*genai.File, error) {
	return h.files.Get(ctx, name, nil)
}

// Delete removes an uploaded file.
func (h *Handler) Delete(ctx context.Context, name string) error {
	if _, err := h.files.Delete(ctx, name, nil); err != nil {
		return fmt.Errorf("deleting %s: %w", name, err)
	}
	return nil
}

// List returns every uploaded file, following pagination.
func (h *Handler) List(ctx context.Context) ([]*genai.File, error) {
	page, err := h.files.List(ctx, &genai.ListFilesConfig{PageSize: 100})
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	var out []*genai.File
	for {
		out = append(out, page.Items...)
		page, err = page.Next(ctx)
		if errors.Is(err, genai.ErrPageDone) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("listing files: %w", err)
		}
	}
}

// Part references an uploaded file in a prompt.
func Part(file *genai.File) *genai.Part {
	return genai.NewPartFromURI(file.URI, file.MIMEType)
}
