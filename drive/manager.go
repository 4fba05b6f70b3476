// Package drive backs generated content up to Google Drive: a thin manager
// over the Drive v3 API, a directory sync and a scheduled backup workflow.
package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/divaparadises/studio/internal/log"
)

// FolderMIMEType marks a Drive file as a folder.
const FolderMIMEType = "application/vnd.google-apps.folder"

// File is the subset of Drive file metadata studio uses.
type File struct {
	ID          string
	Name        string
	MIMEType    string
	Size        int64
	WebViewLink string
	CreatedTime string
}

// IsFolder reports whether f is a folder.
func (f File) IsFolder() bool { return f.MIMEType == FolderMIMEType }

func fileOf(f *drive.File) File {
	return File{
		ID:          f.Id,
		Name:        f.Name,
		MIMEType:    f.MimeType,
		Size:        f.Size,
		WebViewLink: f.WebViewLink,
		CreatedTime: f.CreatedTime,
	}
}

// Manager performs Drive file operations.
type Manager struct {
	srv *drive.Service
}

// NewManager connects to Drive. Pass the option returned by Authenticate,
// or option.WithEndpoint and option.WithoutAuthentication against a test
// server.
func NewManager(ctx context.Context, opts ...option.ClientOption) (*Manager, error) {
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}
	return &Manager{srv: srv}, nil
}

// Upload stores the local file at path under folderID, or at the Drive root
// when folderID is empty.
func (m *Manager) Upload(ctx context.Context, path, folderID, description string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, err
	}
	defer f.Close()

	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return File{}, err
	}
	meta := &drive.File{Name: filepath.Base(path), Description: description}
	if folderID != "" {
		meta.Parents = []string{folderID}
	}
	created, err := m.srv.Files.Create(meta).
		Media(f, googleapi.ContentType(mime.String())).
		Fields("id,name,size,mimeType,webViewLink").
		Context(ctx).Do()
	if err != nil {
		return File{}, fmt.Errorf("uploading %s: %w", path, err)
	}
	log.Infof("uploaded %s -> %s", meta.Name, created.WebViewLink)
	return fileOf(created), nil
}

// CreateFolder creates a folder named name under parentID.
func (m *Manager) CreateFolder(ctx context.Context, name, parentID string) (File, error) {
	meta := &drive.File{Name: name, MimeType: FolderMIMEType}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}
	created, err := m.srv.Files.Create(meta).
		Fields("id,name,mimeType,webViewLink").
		Context(ctx).Do()
	if err != nil {
		return File{}, fmt.Errorf("creating folder %s: %w", name, err)
	}
	log.Debugf("created folder %s (%s)", name, created.Id)
	return fileOf(created), nil
}

// List returns up to 100 untrashed files, restricted to the children of
// folderID and to names containing query when those are set.
func (m *Manager) List(ctx context.Context, folderID, query string) ([]File, error) {
	q := "trashed=false"
	if folderID != "" {
		q += fmt.Sprintf(" and '%s' in parents", escape(folderID))
	}
	if query != "" {
		q += fmt.Sprintf(" and name contains '%s'", escape(query))
	}
	return m.list(ctx, q)
}

// FindFolder returns the folder named exactly name under parentID.
// The boolean is false when there is none.
func (m *Manager) FindFolder(ctx context.Context, name, parentID string) (File, bool, error) {
	q := fmt.Sprintf("trashed=false and mimeType='%s' and name='%s'", FolderMIMEType, escape(name))
	if parentID != "" {
		q += fmt.Sprintf(" and '%s' in parents", escape(parentID))
	}
	files, err := m.list(ctx, q)
	if err != nil || len(files) == 0 {
		return File{}, false, err
	}
	return files[0], true, nil
}

// EnsureFolder returns the folder named name under parentID, creating it
// when missing.
func (m *Manager) EnsureFolder(ctx context.Context, name, parentID string) (File, error) {
	f, ok, err := m.FindFolder(ctx, name, parentID)
	if err != nil {
		return File{}, err
	}
	if ok {
		return f, nil
	}
	return m.CreateFolder(ctx, name, parentID)
}

func (m *Manager) list(ctx context.Context, q string) ([]File, error) {
	res, err := m.srv.Files.List().
		Q(q).
		PageSize(100).
		Fields("nextPageToken, files(id, name, mimeType, size, webViewLink, createdTime)").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	files := make([]File, 0, len(res.Files))
	for _, f := range res.Files {
		files = append(files, fileOf(f))
	}
	return files, nil
}

// Delete permanently removes the file with id.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.srv.Files.Delete(id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("deleting %s: %w", id, err)
	}
	return nil
}

// Download writes the content of the file with id to path.
func (m *Manager) Download(ctx context.Context, id, path string) error {
	resp, err := m.srv.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("downloading %s: %w", id, err)
	}
	defer resp.Body.Close()

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return fmt.Errorf("downloading %s: %w", id, err)
	}
	return out.Close()
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
