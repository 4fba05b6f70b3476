// Package cache manages explicit context caches (cachedContents): large
// prompts stored once server-side and referenced by later requests at a
// reduced token price.
package cache

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/divaparadises/studio/internal/log"
	"github.com/divaparadises/studio/internal/rest"
)

// Entry is a cachedContents resource.
type Entry struct {
	Name          string    `json:"name"`
	DisplayName   string    `json:"displayName,omitempty"`
	Model         string    `json:"model,omitempty"`
	CreateTime    time.Time `json:"createTime,omitempty"`
	UpdateTime    time.Time `json:"updateTime,omitempty"`
	ExpireTime    time.Time `json:"expireTime,omitempty"`
	UsageMetadata struct {
		TotalTokenCount int32 `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// Config describes a cache to create. Set at most one of TTL and ExpireTime.
type Config struct {
	Model             string
	Contents          []*genai.Content
	TTL               time.Duration
	ExpireTime        time.Time
	DisplayName       string
	SystemInstruction *genai.Content
}

type createRequest struct {
	Model             string           `json:"model"`
	Contents          []*genai.Content `json:"contents,omitempty"`
	TTL               string           `json:"ttl,omitempty"`
	ExpireTime        string           `json:"expireTime,omitempty"`
	DisplayName       string           `json:"displayName,omitempty"`
	SystemInstruction *genai.Content   `json:"systemInstruction,omitempty"`
}

// ttl formats d as a protobuf Duration in whole seconds.
func ttl(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	return strconv.FormatInt(int64(d/time.Second), 10) + "s"
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// Client manages cached contents over REST.
type Client struct {
	rest *rest.Client
}

// NewClient returns a cache client.
func NewClient(rc *rest.Client) *Client {
	return &Client{rest: rc}
}

// Create stores cfg.Contents and returns the cache resource.
func (c *Client) Create(ctx context.Context, cfg Config) (*Entry, error) {
	if cfg.TTL > 0 && !cfg.ExpireTime.IsZero() {
		return nil, fmt.Errorf("creating cache: ttl and expire time are exclusive")
	}
	in := createRequest{
		Model:             rest.ModelPath(cfg.Model),
		Contents:          cfg.Contents,
		TTL:               ttl(cfg.TTL),
		ExpireTime:        timestamp(cfg.ExpireTime),
		DisplayName:       cfg.DisplayName,
		SystemInstruction: cfg.SystemInstruction,
	}
	var e Entry
	if err := c.rest.Do(ctx, http.MethodPost, "cachedContents", nil, in, &e); err != nil {
		return nil, fmt.Errorf("creating cache for %s: %w", in.Model, err)
	}
	log.Infof("created cache %s (%d tokens, expires %s)", e.Name, e.UsageMetadata.TotalTokenCount, e.ExpireTime.Format(time.RFC3339))
	return &e, nil
}

// List returns every cache.
func (c *Client) List(ctx context.Context) ([]Entry, error) {
	var out []Entry
	q := url.Values{"pageSize": {"50"}}
	for {
		var page struct {
			CachedContents []Entry `json:"cachedContents"`
			NextPageToken  string  `json:"nextPageToken"`
		}
		if err := c.rest.Do(ctx, http.MethodGet, "cachedContents", q, nil, &page); err != nil {
			return nil, fmt.Errorf("listing caches: %w", err)
		}
		out = append(out, page.CachedContents...)
		if page.NextPageToken == "" {
			return out, nil
		}
		q.Set("pageToken", page.NextPageToken)
	}
}

// Get fetches one cache ("cachedContents/abc").
func (c *Client) Get(ctx context.Context, name string) (*Entry, error) {
	var e Entry
	if err := c.rest.Do(ctx, http.MethodGet, name, nil, nil, &e); err != nil {
		return nil, fmt.Errorf("getting %s: %w", name, err)
	}
	return &e, nil
}

// Update changes the expiration of a cache, either relative (ttl) or
// absolute (expireTime). Exactly one must be set.
func (c *Client) Update(ctx context.Context, name string, newTTL time.Duration, expireTime time.Time) (*Entry, error) {
	in := map[string]string{}
	var mask []string
	if s := ttl(newTTL); s != "" {
		in["ttl"] = s
		mask = append(mask, "ttl")
	}
	if s := timestamp(expireTime); s != "" {
		in["expireTime"] = s
		mask = append(mask, "expireTime")
	}
	if len(mask) != 1 {
		return nil, fmt.Errorf("updating %s: set exactly one of ttl and expire time", name)
	}
	var e Entry
	q := url.Values{"updateMask": {strings.Join(mask, ",")}}
	if err := c.rest.Do(ctx, http.MethodPatch, name, q, in, &e); err != nil {
		return nil, fmt.Errorf("updating %s: %w", name, err)
	}
	return &e, nil
}

// Delete removes a cache.
func (c *Client) Delete(ctx context.Context, name string) error {
	if err := c.rest.Do(ctx, http.MethodDelete, name, nil, nil, nil); err != nil {
		return fmt.Errorf("deleting %s: %w", name, err)
	}
	return nil
}

// Generate answers prompt with model, reading the rest of the context from
// the cache.
func (c *Client) Generate(ctx context.Context, model, cacheName, prompt string) (*genai.GenerateContentResponse, error) {
	in := map[string]any{
		"contents":      genai.Text(prompt),
		"cachedContent": cacheName,
	}
	var resp genai.GenerateContentResponse
	path := rest.ModelPath(model) + ":generateContent"
	if err := c.rest.Do(ctx, http.MethodPost, path, nil, in, &resp); err != nil {
		return nil, fmt.Errorf("generating with %s: %w", cacheName, err)
	}
	if m := resp.UsageMetadata; m != nil {
		log.Debugf("cache %s served %d of %d prompt tokens", cacheName, m.CachedContentTokenCount, m.PromptTokenCount)
	}
	return &resp, nil
}
