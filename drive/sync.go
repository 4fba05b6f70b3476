package drive

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/divaparadises/studio/internal/log"
)

// uploadConcurrency bounds parallel uploads of one sync.
const uploadConcurrency = 4

// Store is the part of Manager used by Syncer and Workflow.
type Store interface {
	Upload(ctx context.Context, path, folderID, description string) (File, error)
	CreateFolder(ctx context.Context, name, parentID string) (File, error)
	EnsureFolder(ctx context.Context, name, parentID string) (File, error)
	List(ctx context.Context, folderID, query string) ([]File, error)
	Download(ctx context.Context, id, path string) error
}

var _ Store = (*Manager)(nil)

// Action of a sync log entry.
const (
	ActionUpload   = "upload"
	ActionDownload = "download"
)

// LogEntry records one transferred file.
type LogEntry struct {
	Action    string    `json:"action"`
	File      string    `json:"file"`
	DriveID   string    `json:"drive_id"`
	LocalPath string    `json:"local_path,omitempty"`
	Time      time.Time `json:"timestamp"`
}

// Syncer copies directory trees between the local disk and Drive.
type Syncer struct {
	store Store
	now   func() time.Time

	mu  sync.Mutex
	log []LogEntry
}

// NewSyncer returns a syncer over store.
func NewSyncer(store Store) *Syncer {
	return &Syncer{store: store, now: time.Now}
}

func (s *Syncer) record(e LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, e)
}

// Log returns the transfers recorded so far.
func (s *Syncer) Log() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LogEntry(nil), s.log...)
}

// ClearLog forgets the recorded transfers.
func (s *Syncer) ClearLog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = nil
}

// ToDrive creates a folder named after dir under parentID and uploads the
// tree below it, mirroring subdirectories. It returns the new folder's ID.
func (s *Syncer) ToDrive(ctx context.Context, dir, parentID string) (string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", dir)
	}
	root, err := s.store.CreateFolder(ctx, filepath.Base(dir), parentID)
	if err != nil {
		return "", err
	}

	// Folder IDs by path relative to dir.
	folders := map[string]string{".": root.ID}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if gctx.Err() != nil {
			return gctx.Err()
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if rel == "." {
				return nil
			}
			f, err := s.store.EnsureFolder(gctx, d.Name(), folders[filepath.Dir(rel)])
			if err != nil {
				return err
			}
			folders[rel] = f.ID
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		parent := folders[filepath.Dir(rel)]
		g.Go(func() error {
			desc := fmt.Sprintf("Synced from %s at %s", filepath.ToSlash(rel), s.now().Format(time.DateTime))
			f, err := s.store.Upload(gctx, path, parent, desc)
			if err != nil {
				return err
			}
			s.record(LogEntry{Action: ActionUpload, File: filepath.ToSlash(rel), DriveID: f.ID, Time: s.now()})
			return nil
		})
		return nil
	})
	if err := g.Wait(); err != nil {
		return root.ID, err
	}
	if walkErr != nil {
		return root.ID, walkErr
	}
	log.Infof("synced %s to drive folder %s", dir, root.ID)
	return root.ID, nil
}

// FromDrive downloads the files directly inside folderID into dir.
// Subfolders are skipped.
func (s *Syncer) FromDrive(ctx context.Context, folderID, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	files, err := s.store.List(ctx, folderID, "")
	if err != nil {
		return 0, err
	}
	n := 0
	for _, f := range files {
		if f.IsFolder() {
			continue
		}
		path := filepath.Join(dir, filepath.Base(f.Name))
		if err := s.store.Download(ctx, f.ID, path); err != nil {
			return n, err
		}
		s.record(LogEntry{Action: ActionDownload, File: f.Name, DriveID: f.ID, LocalPath: path, Time: s.now()})
		n++
	}
	log.Infof("downloaded %d files to %s", n, dir)
	return n, nil
}
