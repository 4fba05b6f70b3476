// Package genaiapitest provides in-memory fakes of the genaiapi interfaces.
package genaiapitest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"google.golang.org/genai"

	"github.com/divaparadises/studio/internal/genaiapi"
)

var errNotStubbed = errors.New("genaiapitest: call not stubbed")

// GenerateCall records one GenerateContent invocation.
type GenerateCall struct {
	Model    string
	Contents []*genai.Content
	Config   *genai.GenerateContentConfig
}

// Models is a fake genaiapi.Models. Unset funcs fail with an error.
type Models struct {
	GenerateContentFunc func(ctx context.Context, model string, contents []*genai.Content,
		config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateImagesFunc func(ctx context.Context, model, prompt string,
		config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
	GenerateVideosFunc func(ctx context.Context, model, prompt string, image *genai.Image,
		config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)
	EmbedContentFunc func(ctx context.Context, model string, contents []*genai.Content,
		config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
	CountTokensFunc func(ctx context.Context, model string, contents []*genai.Content,
		config *genai.CountTokensConfig) (*genai.CountTokensResponse, error)
	ListFunc func(ctx context.Context, config *genai.ListModelsConfig) (genai.Page[genai.Model], error)
	GetFunc  func(ctx context.Context, model string, config *genai.GetModelConfig) (*genai.Model, error)

	mu    sync.Mutex
	calls []GenerateCall
}

var _ genaiapi.Models = (*Models)(nil)

// Calls returns the GenerateContent calls seen so far.
func (m *Models) Calls() []GenerateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GenerateCall(nil), m.calls...)
}

// LastCall returns the most recent GenerateContent call.
func (m *Models) LastCall() GenerateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return GenerateCall{}
	}
	return m.calls[len(m.calls)-1]
}

func (m *Models) GenerateContent(ctx context.Context, model string, contents []*genai.Content,
	config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, GenerateCall{Model: model, Contents: contents, Config: config})
	m.mu.Unlock()
	if m.GenerateContentFunc == nil {
		return nil, errNotStubbed
	}
	return m.GenerateContentFunc(ctx, model, contents, config)
}

func (m *Models) GenerateImages(ctx context.Context, model, prompt string,
	config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	if m.GenerateImagesFunc == nil {
		return nil, errNotStubbed
	}
	return m.GenerateImagesFunc(ctx, model, prompt, config)
}

func (m *Models) GenerateVideos(ctx context.Context, model, prompt string, image *genai.Image,
	config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	if m.GenerateVideosFunc == nil {
		return nil, errNotStubbed
	}
	return m.GenerateVideosFunc(ctx, model, prompt, image, config)
}

func (m *Models) EmbedContent(ctx context.Context, model string, contents []*genai.Content,
	config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	if m.EmbedContentFunc == nil {
		return nil, errNotStubbed
	}
	return m.EmbedContentFunc(ctx, model, contents, config)
}

func (m *Models) CountTokens(ctx context.Context, model string, contents []*genai.Content,
	config *genai.CountTokensConfig) (*genai.CountTokensResponse, error) {
	if m.CountTokensFunc == nil {
		return nil, errNotStubbed
	}
	return m.CountTokensFunc(ctx, model, contents, config)
}

func (m *Models) List(ctx context.Context, config *genai.ListModelsConfig) (genai.Page[genai.Model], error) {
	if m.ListFunc == nil {
		return genai.Page[genai.Model]{}, errNotStubbed
	}
	return m.ListFunc(ctx, config)
}

func (m *Models) Get(ctx context.Context, model string, config *genai.GetModelConfig) (*genai.Model, error) {
	if m.GetFunc == nil {
		return nil, errNotStubbed
	}
	return m.GetFunc(ctx, model, config)
}

// Files is an in-memory fake genaiapi.Files. Uploaded files start in the
// states queued in Progress (consumed one per Get) and then settle ACTIVE.
type Files struct {
	// Progress is the sequence of states reported by Get for every file.
	Progress []genai.FileState
	// Downloads maps a URI to the bytes returned by Download.
	Downloads map[string][]byte

	mu      sync.Mutex
	seq     int
	files   map[string]*genai.File
	data    map[string][]byte
	polled  map[string]int
	deleted []string
}

var _ genaiapi.Files = (*Files)(nil)

// Data returns the bytes uploaded as name.
func (f *Files) Data(name string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[name]
}

// Deleted returns the names passed to Delete.
func (f *Files) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func (f *Files) Upload(_ context.Context, r io.Reader, config *genai.UploadFileConfig) (*genai.File, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.files == nil {
		f.files = map[string]*genai.File{}
		f.data = map[string][]byte{}
		f.polled = map[string]int{}
	}
	f.seq++
	name := fmt.Sprintf("files/%d", f.seq)
	file := &genai.File{
		Name:      name,
		URI:       "https://generativelanguage.googleapis.com/v1beta/" + name,
		SizeBytes: genai.Ptr(int64(len(b))),
		State:     genai.FileStateActive,
	}
	if config != nil {
		file.MIMEType = config.MIMEType
		file.DisplayName = config.DisplayName
	}
	if len(f.Progress) > 0 {
		file.State = f.Progress[0]
	}
	f.files[name] = file
	f.data[name] = b
	cp := *file
	return &cp, nil
}

func (f *Files) Get(_ context.Context, name string, _ *genai.GetFileConfig) (*genai.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[name]
	if !ok {
		return nil, fmt.Errorf("file %s not found", name)
	}
	f.polled[name]++
	if i := f.polled[name]; i < len(f.Progress) {
		file.State = f.Progress[i]
	} else if len(f.Progress) == 0 || f.Progress[len(f.Progress)-1] != genai.FileStateFailed {
		file.State = genai.FileStateActive
	} else {
		file.State = genai.FileStateFailed
	}
	cp := *file
	return &cp, nil
}

func (f *Files) Delete(_ context.Context, name string, _ *genai.DeleteFileConfig) (*genai.DeleteFileResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[name]; !ok {
		return nil, fmt.Errorf("file %s not found", name)
	}
	delete(f.files, name)
	f.deleted = append(f.deleted, name)
	return &genai.DeleteFileResponse{}, nil
}

func (f *Files) List(_ context.Context, _ *genai.ListFilesConfig) (genai.Page[genai.File], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var page genai.Page[genai.File]
	for i := 1; i <= f.seq; i++ {
		if file, ok := f.files[fmt.Sprintf("files/%d", i)]; ok {
			cp := *file
			page.Items = append(page.Items, &cp)
		}
	}
	return page, nil
}

func (f *Files) Download(_ context.Context, uri genai.DownloadURI, _ *genai.DownloadFileConfig) ([]byte, error) {
	var key string
	switch v := uri.(type) {
	case *genai.GeneratedVideo:
		key = v.Video.URI
	case *genai.Video:
		key = v.URI
	case *genai.File:
		key = v.URI
	}
	b, ok := f.Downloads[key]
	if !ok {
		return nil, fmt.Errorf("no download stubbed for %q", key)
	}
	return b, nil
}

// Operations is a fake genaiapi.Operations.
type Operations struct {
	GetVideosOperationFunc func(ctx context.Context, op *genai.GenerateVideosOperation,
		config *genai.GetOperationConfig) (*genai.GenerateVideosOperation, error)
}

var _ genaiapi.Operations = (*Operations)(nil)

func (o *Operations) GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation,
	config *genai.GetOperationConfig) (*genai.GenerateVideosOperation, error) {
	if o.GetVideosOperationFunc == nil {
		return nil, errNotStubbed
	}
	return o.GetVideosOperationFunc(ctx, op, config)
}

// TextResponse builds a single-candidate response with one text part per
// string.
func TextResponse(texts ...string) *genai.GenerateContentResponse {
	parts := make([]*genai.Part, 0, len(texts))
	for _, t := range texts {
		parts = append(parts, genai.NewPartFromText(t))
	}
	return PartsResponse(parts...)
}

// PartsResponse builds a single-candidate model response.
func PartsResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromParts(parts, genai.RoleModel),
		}},
	}
}

// ReplyWith returns a GenerateContentFunc answering each call with the next
// response in order, repeating the last one.
func ReplyWith(responses ...*genai.GenerateContentResponse) func(context.Context, string, []*genai.Content,
	*genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var mu sync.Mutex
	i := 0
	return func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		mu.Lock()
		defer mu.Unlock()
		r := responses[min(i, len(responses)-1)]
		i++
		return r, nil
	}
}
