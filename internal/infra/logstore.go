package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/Vovarama1992/storyreels/internal/models"
	"github.com/Vovarama1992/storyreels/internal/ports"
)

// HTTPLogStore talks to the external append-only log (a spreadsheet-backed
// web app): POST appends a record, GET ?mode=... reads back.
type HTTPLogStore struct {
	endpoint string
	client   *http.Client
}

func NewHTTPLogStore(endpoint string, client *http.Client) *HTTPLogStore {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPLogStore{
		endpoint: endpoint,
		client:   client,
	}
}

var _ ports.LogStore = (*HTTPLogStore)(nil)

type latestResponse struct {
	StoryURL string `json:"story_url"`
	ReelsURL string `json:"reels_url"`
}

type reelsResponse struct {
	URLs []string `json:"urls"`
}

func (s *HTTPLogStore) Append(ctx context.Context, rec models.MediaRecord) error {
	if s.endpoint == "" {
		return fmt.Errorf("%w: no log store endpoint", ports.ErrLogDelivery)
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ports.ErrLogDelivery, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ports.ErrLogDelivery, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ports.ErrLogDelivery, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: http %d", ports.ErrLogDelivery, resp.StatusCode)
	}
	return nil
}

func (s *HTTPLogStore) FetchLatest(ctx context.Context, category models.Category) (string, error) {
	key := category.StoryKey()
	if key == "" {
		return "", fmt.Errorf("log store: no latest query for category %q", category)
	}

	var out latestResponse
	if err := s.get(ctx, url.Values{"mode": {"latest"}, "story": {key}}, &out); err != nil {
		return "", err
	}

	if category == models.UserReel {
		return out.ReelsURL, nil
	}
	return out.StoryURL, nil
}

func (s *HTTPLogStore) FetchAllReels(ctx context.Context) ([]string, error) {
	var out reelsResponse
	if err := s.get(ctx, url.Values{"mode": {"all_reels"}}, &out); err != nil {
		return nil, err
	}
	if out.URLs == nil {
		return []string{}, nil
	}
	return out.URLs, nil
}

func (s *HTTPLogStore) get(ctx context.Context, query url.Values, out any) error {
	if s.endpoint == "" {
		return fmt.Errorf("log store: no endpoint")
	}

	u, err := url.Parse(s.endpoint)
	if err != nil {
		return fmt.Errorf("log store: parse endpoint: %w", err)
	}
	q := u.Query()
	for k, v := range query {
		q[k] = v
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("log store: build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("log store request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("log store read: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("log store http %d", resp.StatusCode)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("log store decode: %w", err)
	}
	return nil
}
