package studio

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"

	"github.com/divaparadises/studio/audio"
	"github.com/divaparadises/studio/embed"
	"github.com/divaparadises/studio/imaging"
	"github.com/divaparadises/studio/internal/log"
	"github.com/divaparadises/studio/internal/media"
	"github.com/divaparadises/studio/text"
)

// ImagePrompt expands a short concept into a detailed image generation
// prompt.
func (s *Studio) ImagePrompt(ctx context.Context, concept string) (string, error) {
	out, err := s.Text.Generate(ctx, fmt.Sprintf(
		"Act as a professional prompt engineer. Create a detailed prompt for an image generator "+
			"(like Midjourney/Stable Diffusion) based on this concept: '%s'. Output ONLY the prompt.", concept), nil)
	return strings.TrimSpace(out), err
}

// ScriptToVideoPrompts turns a script into one video generation prompt per
// scene.
func (s *Studio) ScriptToVideoPrompts(ctx context.Context, script string) (string, error) {
	return s.Text.Generate(ctx,
		"Convert this script into a list of video generation prompts for each scene:\n\n"+script, nil)
}

// SongStructure writes lyrics and chord progressions for a song.
func (s *Studio) SongStructure(ctx context.Context, mood, genre string) (string, error) {
	return s.Text.Generate(ctx, fmt.Sprintf(
		"Act as a professional music producer. Create a song structure (Verse 1, Chorus, Verse 2) "+
			"with Lyrics and suggested Chord Progressions for a '%s' song in the '%s' genre.", mood, genre), nil)
}

// Podcast hosts.
var (
	Nova = audio.Speaker{Name: "Nova", Voice: "Puck"}
	Zen  = audio.Speaker{Name: "Zen", Voice: "Charon"}
)

// DefaultPodcastTopic is used when Podcast gets an empty topic.
const DefaultPodcastTopic = "The Rise of AI Music"

// PodcastResult is a recorded episode.
type PodcastResult struct {
	Script string
	Path   string
}

// Podcast scripts a short two host show about topic and records it with
// one voice per host. An empty outPath writes podcast_<topic>.wav to OutDir.
func (s *Studio) Podcast(ctx context.Context, topic, outPath string) (*PodcastResult, error) {
	if topic == "" {
		topic = DefaultPodcastTopic
	}
	if outPath == "" {
		outPath = filepath.Join(s.OutDir, "podcast_"+strings.ReplaceAll(topic, " ", "_")+".wav")
	}
	prompt := fmt.Sprintf("Write a short, engaging 2-person podcast script about '%s'. "+
		"Characters: %s (Energetic/Fun) and %s (Calm/Expert). "+
		"Format the output exactly like this:\n%s: Text...\n%s: Text...\n"+
		"Keep it under 100 words total. No sound effects cues.",
		topic, Nova.Name, Zen.Name, Nova.Name, Zen.Name)

	script, err := s.Text.Generate(ctx, prompt, &text.GenerateOptions{Temperature: genai.Ptr[float32](0.8)})
	if err != nil {
		return nil, fmt.Errorf("scripting podcast: %w", err)
	}
	if strings.TrimSpace(script) == "" {
		return nil, errors.New("scripting podcast: empty script")
	}
	log.Infof("podcast script ready (%d chars), recording", len(script))

	path, err := s.Speech.Podcast(ctx, script, []audio.Speaker{Nova, Zen}, outPath)
	if err != nil {
		return nil, fmt.Errorf("recording podcast: %w", err)
	}
	return &PodcastResult{Script: script, Path: path}, nil
}

// KnowledgeBase is the sample corpus of the RAG flow.
var KnowledgeBase = []embed.Document{
	{Title: "Project Diva", Text: "Divaparadises is a platform for AI-generated music videos."},
	{Title: "Gemini Model", Text: "Gemini 1.5 Pro has a 2 Million token context window."},
	{Title: "Embeddings", Text: "Embeddings are vector representations of text used for semantic search."},
	{Title: "Agentic AI", Text: "Agents can use tools to perform actions in the real world."},
}

// RAGAnswer is an answer with the document it was grounded on.
type RAGAnswer struct {
	Answer string
	Source embed.Result
}

// AskWithRAG retrieves the document of index closest to question and
// answers from it.
func (s *Studio) AskWithRAG(ctx context.Context, index *embed.Index, question string) (*RAGAnswer, error) {
	results, err := index.Search(ctx, question, 1)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}
	top := results[0]
	log.Infof("retrieved %q (score %.4f)", top.Document.Title, top.Score)

	answer, err := s.Text.GenerateWithContext(ctx, question, top.Document.Text)
	if err != nil {
		return nil, err
	}
	return &RAGAnswer{Answer: answer, Source: top}, nil
}

// NanoBananaOptions tune the draft and refine flow.
type NanoBananaOptions struct {
	// Drafts is the number of fast drafts, 4 by default.
	Drafts int
	// Select is the 1-based draft refined into the final image, 2 by default.
	Select int
	// OutDir defaults to the studio's OutDir.
	OutDir string
}

// NanoBananaResult lists the files written by NanoBanana.
type NanoBananaResult struct {
	Drafts      []string
	FinalPrompt string
	Final       string
}

func draftPrompt(concept string, i int) string {
	return fmt.Sprintf("Draft sketch of %s, variation %d", concept, i)
}

// NanoBanana renders quick drafts of concept with the flash image model,
// expands the selected draft into a detailed prompt and renders that with
// the pro model.
func (s *Studio) NanoBanana(ctx context.Context, concept string, opts *NanoBananaOptions) (*NanoBananaResult, error) {
	o := NanoBananaOptions{Drafts: 4, Select: 2, OutDir: s.OutDir}
	if opts != nil {
		if opts.Drafts > 0 {
			o.Drafts = opts.Drafts
		}
		if opts.Select > 0 {
			o.Select = opts.Select
		}
		if opts.OutDir != "" {
			o.OutDir = opts.OutDir
		}
	}
	if o.Select > o.Drafts {
		return nil, fmt.Errorf("selected draft %d of %d", o.Select, o.Drafts)
	}
	if concept == "" {
		concept = "Futuristic Banana Art"
	}

	res := &NanoBananaResult{Drafts: make([]string, o.Drafts)}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)
	for i := range o.Drafts {
		g.Go(func() error {
			img, err := s.Images.Generate(gctx, draftPrompt(concept, i+1), imaging.Flash, "")
			if err != nil {
				return fmt.Errorf("draft %d: %w", i+1, err)
			}
			path := filepath.Join(o.OutDir, fmt.Sprintf("draft_%d%s", i+1, extension(img.MIMEType)))
			if err := img.Save(path); err != nil {
				return err
			}
			res.Drafts[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	prompt, err := s.ImagePrompt(ctx, draftPrompt(concept, o.Select))
	if err != nil {
		return nil, fmt.Errorf("refining draft %d: %w", o.Select, err)
	}
	res.FinalPrompt = prompt
	img, err := s.Images.Generate(ctx, prompt, imaging.Pro, "")
	if err != nil {
		return nil, fmt.Errorf("final render: %w", err)
	}
	res.Final = filepath.Join(o.OutDir, "final_nano"+extension(img.MIMEType))
	if err := img.Save(res.Final); err != nil {
		return nil, err
	}
	return res, nil
}

func extension(mimeType string) string {
	if ext := media.Extension(mimeType); ext != "" {
		return ext
	}
	return ".png"
}
