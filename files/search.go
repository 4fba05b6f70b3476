package files

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"google.golang.org/genai"

	"github.com/divaparadises/studio/internal/poll"
	"github.com/divaparadises/studio/internal/rest"
)

// Store is a File Search store: a managed index that models query through
// the fileSearch tool.
type Store struct {
	Name                  string     `json:"name"`
	DisplayName           string     `json:"displayName,omitempty"`
	CreateTime            time.Time  `json:"createTime,omitempty"`
	UpdateTime            time.Time  `json:"updateTime,omitempty"`
	ActiveDocumentsCount  rest.Int64 `json:"activeDocumentsCount,omitempty"`
	PendingDocumentsCount rest.Int64 `json:"pendingDocumentsCount,omitempty"`
	FailedDocumentsCount  rest.Int64 `json:"failedDocumentsCount,omitempty"`
	SizeBytes             rest.Int64 `json:"sizeBytes,omitempty"`
}

// Document is a file indexed in a Store.
type Document struct {
	Name        string     `json:"name"`
	DisplayName string     `json:"displayName,omitempty"`
	State       string     `json:"state,omitempty"`
	MIMEType    string     `json:"mimeType,omitempty"`
	SizeBytes   rest.Int64 `json:"sizeBytes,omitempty"`
	CreateTime  time.Time  `json:"createTime,omitempty"`
}

// SearchStores manages File Search stores over REST.
type SearchStores struct {
	rest     *rest.Client
	interval time.Duration
}

// NewSearchStores returns a store manager polling imports every interval.
func NewSearchStores(rc *rest.Client, interval time.Duration) *SearchStores {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &SearchStores{rest: rc, interval: interval}
}

// Create makes an empty store.
func (s *SearchStores) Create(ctx context.Context, displayName string) (*Store, error) {
	var store Store
	in := map[string]string{"displayName": displayName}
	if err := s.rest.Do(ctx, http.MethodPost, "fileSearchStores", nil, in, &store); err != nil {
		return nil, fmt.Errorf("creating file search store: %w", err)
	}
	return &store, nil
}

// List returns every store.
func (s *SearchStores) List(ctx context.Context) ([]Store, error) {
	var out []Store
	q := url.Values{"pageSize": {"20"}}
	for {
		var page struct {
			FileSearchStores []Store `json:"fileSearchStores"`
			NextPageToken    string  `json:"nextPageToken"`
		}
		if err := s.rest.Do(ctx, http.MethodGet, "fileSearchStores", q, nil, &page); err != nil {
			return nil, fmt.Errorf("listing file search stores: %w", err)
		}
		out = append(out, page.FileSearchStores...)
		if page.NextPageToken == "" {
			return out, nil
		}
		q.Set("pageToken", page.NextPageToken)
	}
}

// Get fetches one store.
func (s *SearchStores) Get(ctx context.Context, name string) (*Store, error) {
	var store Store
	if err := s.rest.Do(ctx, http.MethodGet, name, nil, nil, &store); err != nil {
		return nil, fmt.Errorf("getting %s: %w", name, err)
	}
	return &store, nil
}

// Delete removes a store. With force, its documents are deleted too.
func (s *SearchStores) Delete(ctx context.Context, name string, force bool) error {
	q := url.Values{"force": {strconv.FormatBool(force)}}
	if err := s.rest.Do(ctx, http.MethodDelete, name, q, nil, nil); err != nil {
		return fmt.Errorf("deleting %s: %w", name, err)
	}
	return nil
}

// ImportFile indexes an uploaded file (files/...) into store and waits
// for the import operation to finish.
func (s *SearchStores) ImportFile(ctx context.Context, store, fileName string) error {
	var op rest.Operation
	in := map[string]string{"fileName": fileName}
	if err := s.rest.Do(ctx, http.MethodPost, store+":importFile", nil, in, &op); err != nil {
		return fmt.Errorf("importing %s into %s: %w", fileName, store, err)
	}
	return poll.Until(ctx, s.interval, func(ctx context.Context) (bool, error) {
		if op.Done {
			if op.Error != nil {
				return false, op.Error
			}
			return true, nil
		}
		return false, s.rest.Do(ctx, http.MethodGet, op.Name, nil, nil, &op)
	})
}

// Documents lists the documents indexed in store.
func (s *SearchStores) Documents(ctx context.Context, store string) ([]Document, error) {
	var out []Document
	q := url.Values{"pageSize": {"20"}}
	for {
		var page struct {
			Documents     []Document `json:"documents"`
			NextPageToken string     `json:"nextPageToken"`
		}
		if err := s.rest.Do(ctx, http.MethodGet, store+"/documents", q, nil, &page); err != nil {
			return nil, fmt.Errorf("listing documents of %s: %w", store, err)
		}
		out = append(out, page.Documents...)
		if page.NextPageToken == "" {
			return out, nil
		}
		q.Set("pageToken", page.NextPageToken)
	}
}

// Tool lets a model retrieve from the named stores.
func Tool(storeNames ...string) *genai.Tool {
	return &genai.Tool{FileSearch: &genai.FileSearch{FileSearchStoreNames: storeNames}}
}
