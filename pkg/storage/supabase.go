package storage

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// SupabaseStore talks to the Supabase Storage REST API.
type SupabaseStore struct {
	client  *resty.Client
	baseURL string
	bucket  string
}

// NewSupabaseStore builds a client authenticated with the service role key.
func NewSupabaseStore(baseURL, serviceKey, bucket string, timeout time.Duration) (*SupabaseStore, error) {
	if baseURL == "" || serviceKey == "" {
		return nil, fmt.Errorf("supabase url and service key are required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("supabase bucket is required")
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(serviceKey).
		SetHeader("apikey", serviceKey).
		SetTimeout(timeout)
	return &SupabaseStore{client: client, baseURL: strings.TrimRight(baseURL, "/"), bucket: bucket}, nil
}

// Put uploads with x-upsert disabled; a duplicate path maps to ErrObjectExists.
func (s *SupabaseStore) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "false").
		SetHeader("Cache-Control", "max-age=3600").
		SetBody(data).
		Post(s.objectPath(path))
	if err != nil {
		return "", fmt.Errorf("upload object: %w", err)
	}
	if resp.StatusCode() == http.StatusConflict || isDuplicate(resp.String()) {
		return "", ErrObjectExists
	}
	if resp.IsError() {
		return "", fmt.Errorf("upload object: status %d: %s", resp.StatusCode(), resp.String())
	}
	return s.PublicURL(path), nil
}

// PublicURL is the unauthenticated download URL of a public bucket object.
func (s *SupabaseStore) PublicURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, escapePath(path))
}

// Delete removes the object. A 404 counts as success.
func (s *SupabaseStore) Delete(ctx context.Context, path string) error {
	resp, err := s.client.R().SetContext(ctx).Delete(s.objectPath(path))
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	if resp.IsError() && resp.StatusCode() != http.StatusNotFound {
		return fmt.Errorf("delete object: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

func (s *SupabaseStore) objectPath(path string) string {
	return fmt.Sprintf("/storage/v1/object/%s/%s", s.bucket, escapePath(path))
}

// Storage answers duplicates with HTTP 400 and a "Duplicate" error body.
func isDuplicate(body string) bool {
	return strings.Contains(body, "Duplicate") || strings.Contains(body, "already exists")
}
