// Package storage keeps generated images, videos and audio on local disk,
// indexed by a metadata.json file next to them.
package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/divaparadises/studio/internal/log"
)

// ErrNotFound is returned for unknown item IDs.
var ErrNotFound = errors.New("storage: item not found")

// Kind is the media type of an item.
type Kind string

const (
	Image Kind = "image"
	Video Kind = "video"
	Audio Kind = "audio"
)

// Kinds lists every kind in display order.
var Kinds = []Kind{Image, Video, Audio}

// Dir is the subdirectory holding items of kind k.
func (k Kind) Dir() string {
	switch k {
	case Image:
		return "images"
	case Video:
		return "videos"
	case Audio:
		return "audio"
	}
	return ""
}

func (k Kind) valid() bool { return k.Dir() != "" }

// Item describes one stored file.
type Item struct {
	ID          string         `json:"id"`
	Kind        Kind           `json:"kind"`
	Filename    string         `json:"filename"`
	Path        string         `json:"file_path"`
	Prompt      string         `json:"prompt"`
	OriginalURL string         `json:"original_url,omitempty"`
	ContentType string         `json:"content_type,omitempty"`
	Extension   string         `json:"extension"`
	Size        int64          `json:"file_size"`
	CreatedAt   time.Time      `json:"created_at"`
	Extra       map[string]any `json:"metadata,omitempty"`
}

// LocalURL is the path under which a web server exposing the base
// directory at /storage serves the item.
func (it *Item) LocalURL() string {
	return "/storage/" + it.Kind.Dir() + "/" + it.Filename
}

type index struct {
	Items   map[string]*Item `json:"items"`
	Created time.Time        `json:"created"`
}

// Stats summarizes the store.
type Stats struct {
	Counts      map[Kind]int `json:"counts"`
	Created     time.Time    `json:"created"`
	DiskUsage   int64        `json:"total_disk_usage"`
	DiskUsageMB float64      `json:"total_disk_usage_mb"`
}

// Store is a directory of media files plus their metadata. It is safe for
// concurrent use within one process.
type Store struct {
	base   string
	client *http.Client
	now    func() time.Time

	mu  sync.Mutex
	idx index
}

// Open creates the directory layout under base if needed and loads the
// metadata file.
func Open(base string) (*Store, error) {
	for _, k := range Kinds {
		if err := os.MkdirAll(filepath.Join(base, k.Dir()), 0o755); err != nil {
			return nil, err
		}
	}
	s := &Store{base: base, client: http.DefaultClient, now: time.Now}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) metadataPath() string { return filepath.Join(s.base, "metadata.json") }

func (s *Store) load() error {
	b, err := os.ReadFile(s.metadataPath())
	if errors.Is(err, fs.ErrNotExist) {
		s.idx = index{Items: map[string]*Item{}, Created: s.now()}
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, &s.idx); err != nil {
		return fmt.Errorf("parsing %s: %w", s.metadataPath(), err)
	}
	if s.idx.Items == nil {
		s.idx.Items = map[string]*Item{}
	}
	return nil
}

// save writes the index atomically. Callers hold mu.
func (s *Store) save() error {
	b, err := json.MarshalIndent(s.idx, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.metadataPath() + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.metadataPath())
}

// filename is {kind}_{timestamp}_{prompt md5[:8]}_{uuid[:8]}.{ext}.
func (s *Store) filename(kind Kind, prompt, ext string) string {
	sum := md5.Sum([]byte(prompt))
	return fmt.Sprintf("%s_%s_%s_%s.%s",
		kind, s.now().Format("20060102_150405"), hex.EncodeToString(sum[:])[:8], uuid.NewString()[:8], ext)
}

// Save writes data as a new item of kind. An empty ext is derived from the
// content. extra is stored alongside the item.
func (s *Store) Save(kind Kind, data []byte, prompt, ext string, extra map[string]any) (*Item, error) {
	return s.put(kind, data, prompt, ext, "", "", extra)
}

func (s *Store) put(kind Kind, data []byte, prompt, ext, url, contentType string, extra map[string]any) (*Item, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	mime := mimetype.Detect(data)
	if ext == "" {
		ext = strings.TrimPrefix(mime.Extension(), ".")
	}
	if ext == "" {
		ext = "bin"
	}
	if contentType == "" {
		contentType = mime.String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	name := s.filename(kind, prompt, ext)
	path := filepath.Join(s.base, kind.Dir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, err
	}
	it := &Item{
		ID:          uuid.NewString(),
		Kind:        kind,
		Filename:    name,
		Path:        path,
		Prompt:      prompt,
		OriginalURL: url,
		ContentType: contentType,
		Extension:   ext,
		Size:        int64(len(data)),
		CreatedAt:   s.now(),
		Extra:       extra,
	}
	s.idx.Items[it.ID] = it
	if err := s.save(); err != nil {
		delete(s.idx.Items, it.ID)
		os.Remove(path)
		return nil, err
	}
	log.Debugf("stored %s %s (%d bytes)", kind, name, it.Size)
	return it, nil
}

// SaveFromURL downloads url and stores it as an item of kind.
func (s *Store) SaveFromURL(ctx context.Context, kind Kind, url, prompt string, extra map[string]any) (*Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading %s: %s", url, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", url, err)
	}
	return s.put(kind, data, prompt, "", url, resp.Header.Get("Content-Type"), extra)
}

// Get returns the item with id.
func (s *Store) Get(id string) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.idx.Items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cp := *it
	return &cp, nil
}

// sorted returns copies of the items matching keep, newest first.
// Callers hold mu.
func (s *Store) sorted(keep func(*Item) bool) []*Item {
	var out []*Item
	for _, it := range s.idx.Items {
		if keep(it) {
			cp := *it
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *Item) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func page(items []*Item, limit, offset int) []*Item {
	if offset >= len(items) {
		return nil
	}
	items = items[max(offset, 0):]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// List returns items of kind, or of every kind when kind is empty, newest
// first. A limit of 0 means no limit.
func (s *Store) List(kind Kind, limit, offset int) []*Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return page(s.sorted(func(it *Item) bool { return kind == "" || it.Kind == kind }), limit, offset)
}

// Search returns the items whose prompt contains query, ignoring case and
// accents, newest first.
func (s *Store) Search(query string, limit int) []*Item {
	q := normalize(query)
	s.mu.Lock()
	defer s.mu.Unlock()
	return page(s.sorted(func(it *Item) bool { return strings.Contains(normalize(it.Prompt), q) }), limit, 0)
}

func normalize(s string) string {
	tr := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	normalized, _, err := transform.String(tr, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return normalized
}

// Delete removes the item with id and its file.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delete(id)
}

func (s *Store) delete(id string) error {
	it, ok := s.idx.Items[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := os.Remove(it.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	delete(s.idx.Items, id)
	return s.save()
}

// Stats counts the items per kind and the bytes used on disk.
func (s *Store) Stats() (Stats, error) {
	s.mu.Lock()
	st := Stats{Counts: map[Kind]int{}, Created: s.idx.Created}
	for _, it := range s.idx.Items {
		st.Counts[it.Kind]++
	}
	s.mu.Unlock()

	for _, k := range Kinds {
		err := filepath.WalkDir(filepath.Join(s.base, k.Dir()), func(_ string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			st.DiskUsage += info.Size()
			return nil
		})
		if err != nil {
			return st, err
		}
	}
	st.DiskUsageMB = float64(st.DiskUsage*100/(1<<20)) / 100
	return st, nil
}

// Cleanup deletes the items created more than olderThan ago and reports
// how many of each kind went.
func (s *Store) Cleanup(olderThan time.Duration) (map[Kind]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-olderThan)
	deleted := map[Kind]int{}
	for _, id := range slices.Sorted(maps.Keys(s.idx.Items)) {
		it := s.idx.Items[id]
		if !it.CreatedAt.Before(cutoff) {
			continue
		}
		kind := it.Kind
		if err := s.delete(id); err != nil {
			return deleted, err
		}
		deleted[kind]++
	}
	if len(deleted) > 0 {
		log.Infof("cleanup removed items older than %s", olderThan)
	}
	return deleted, nil
}
