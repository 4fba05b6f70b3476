// Package studio wires every Gemini client of the toolkit to one
// configuration and hosts the flows that chain several of them.
package studio

import (
	"context"
	"sync"

	"github.com/divaparadises/studio/agent"
	"github.com/divaparadises/studio/audio"
	"github.com/divaparadises/studio/batch"
	"github.com/divaparadises/studio/cache"
	"github.com/divaparadises/studio/docs"
	"github.com/divaparadises/studio/embed"
	"github.com/divaparadises/studio/files"
	"github.com/divaparadises/studio/imaging"
	"github.com/divaparadises/studio/interactions"
	"github.com/divaparadises/studio/internal/config"
	"github.com/divaparadises/studio/internal/genaiapi"
	"github.com/divaparadises/studio/internal/rest"
	"github.com/divaparadises/studio/live"
	"github.com/divaparadises/studio/models"
	"github.com/divaparadises/studio/storage"
	"github.com/divaparadises/studio/text"
	"github.com/divaparadises/studio/tokens"
	"github.com/divaparadises/studio/video"
)

// Studio holds one instance of each client.
type Studio struct {
	Config *config.Config
	SDK    genaiapi.SDK

	Text          *text.Client
	Images        *imaging.Generator
	Vision        *imaging.Intelligence
	Video         *video.Client
	VideoAnalyzer *video.Analyzer
	Speech        *audio.Generator
	Transcriber   *audio.Analyzer
	Embed         *embed.Client
	Files         *files.Handler
	SearchStores  *files.SearchStores
	Docs          *docs.Processor
	Tokens        *tokens.Counter
	Models        *models.Registry
	Batch         *batch.Client
	Cache         *cache.Client
	Interactions  *interactions.Client
	Live          *live.Client
	Music         *live.MusicClient

	// OutDir receives the files written by flows when no path is given.
	OutDir string

	storage func() (*storage.Store, error)
}

// New connects to the backend selected by cfg.
func New(ctx context.Context, cfg *config.Config) (*Studio, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := genaiapi.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewFromSDK(genaiapi.Wrap(client), cfg), nil
}

// NewFromSDK builds a studio over already constructed SDK services.
func NewFromSDK(sdk genaiapi.SDK, cfg *config.Config) *Studio {
	m := cfg.Models
	rc := rest.New(cfg.REST.BaseURL, cfg.APIKey,
		rest.WithMaxRetries(cfg.REST.MaxRetries),
		rest.WithTimeout(cfg.REST.Timeout))
	fh := files.NewHandler(sdk.Files, cfg.Polling.File)

	s := &Studio{
		Config:        cfg,
		SDK:           sdk,
		Text:          text.New(sdk.Models, text.WithModel(m.Text)),
		Images:        imaging.NewGenerator(sdk.Models, m.Image, m.ImagePro, m.Imagen),
		Vision:        imaging.NewIntelligence(sdk.Models, m.Vision),
		Video:         video.NewClient(sdk, m.Video, cfg.Polling.Video),
		VideoAnalyzer: video.NewAnalyzer(fh, sdk.Models, m.Text),
		Speech:        audio.NewGenerator(sdk.Models, m.TTS),
		Transcriber:   audio.NewAnalyzer(fh, sdk.Models, m.Text),
		Embed:         embed.NewClient(sdk.Models, m.Embedding),
		Files:         fh,
		SearchStores:  files.NewSearchStores(rc, cfg.Polling.File),
		Docs:          docs.NewProcessor(fh, sdk.Models, m.Text),
		Tokens:        tokens.NewCounter(sdk.Models, fh, m.Text),
		Models:        models.NewRegistry(sdk.Models),
		Batch:         batch.NewClient(rc, cfg.Polling.Batch),
		Cache:         cache.NewClient(rc),
		Interactions:  interactions.NewClient(rc, cfg.Polling.Interaction),
		Live:          live.NewClient(cfg.APIKey),
		Music:         live.NewMusicClient(cfg.APIKey, m.Music),
		OutDir:        "outputs",
	}
	s.storage = sync.OnceValues(func() (*storage.Store, error) {
		return storage.Open(cfg.Storage.BaseDir)
	})
	return s
}

// Storage opens the local media store on first use.
func (s *Studio) Storage() (*storage.Store, error) {
	return s.storage()
}

// Agent returns an orchestrator over the built-in tools, acting on home.
func (s *Studio) Agent(home *agent.Home) *agent.Orchestrator {
	o := agent.NewOrchestrator(s.SDK.Models, agent.DefaultRegistry(home))
	o.Model = s.Config.Models.Text
	return o
}
