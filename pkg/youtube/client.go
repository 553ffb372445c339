// Package youtube is a client for the YouTube Data API v3 search and video
// statistics endpoints.
package youtube

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/matjip/internal/resilience"
)

const (
	defaultBaseURL = "https://www.googleapis.com/youtube/v3"

	// maxIDsPerCall is the videos.list id limit.
	maxIDsPerCall = 50
)

// ErrQuotaExceeded is matched by every quota error this client returns.
var ErrQuotaExceeded = resilience.ErrQuotaExceeded

// Client performs YouTube Data API operations.
type Client interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	VideoStatistics(ctx context.Context, ids []string) (map[string]Statistics, error)
}

// SearchRequest holds search.list parameters. Type is always video.
type SearchRequest struct {
	Query             string
	PageToken         string
	MaxResults        int
	Order             string
	RegionCode        string
	RelevanceLanguage string
	PublishedAfter    time.Time
}

// SearchResponse is the search.list response.
type SearchResponse struct {
	NextPageToken string       `json:"nextPageToken"`
	Items         []SearchItem `json:"items"`
}

// SearchItem is one search hit.
type SearchItem struct {
	ID      ResourceID `json:"id"`
	Snippet Snippet    `json:"snippet"`
}

// ResourceID identifies the hit.
type ResourceID struct {
	Kind    string `json:"kind"`
	VideoID string `json:"videoId"`
}

// Snippet carries the video metadata.
type Snippet struct {
	PublishedAt  time.Time  `json:"publishedAt"`
	ChannelID    string     `json:"channelId"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	ChannelTitle string     `json:"channelTitle"`
	Thumbnails   Thumbnails `json:"thumbnails"`
}

// Thumbnails holds the thumbnail variants.
type Thumbnails struct {
	Default Thumbnail `json:"default"`
	Medium  Thumbnail `json:"medium"`
	High    Thumbnail `json:"high"`
}

// Thumbnail is one thumbnail variant.
type Thumbnail struct {
	URL string `json:"url"`
}

// Best returns the highest resolution thumbnail URL available.
func (t Thumbnails) Best() string {
	for _, u := range []string{t.High.URL, t.Medium.URL, t.Default.URL} {
		if u != "" {
			return u
		}
	}
	return ""
}

// Statistics is the statistics part of videos.list.
type Statistics struct {
	ViewCount    string `json:"viewCount"`
	LikeCount    string `json:"likeCount"`
	CommentCount string `json:"commentCount"`
}

// Views parses ViewCount.
func (s Statistics) Views() int64 {
	n, _ := strconv.ParseInt(s.ViewCount, 10, 64)
	return n
}

type videosResponse struct {
	Items []struct {
		ID         string     `json:"id"`
		Statistics Statistics `json:"statistics"`
	} `json:"items"`
}

type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

func (e errorBody) hasReason(reasons ...string) bool {
	for _, d := range e.Error.Errors {
		for _, r := range reasons {
			if d.Reason == r {
				return true
			}
		}
	}
	return false
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimiter shares a token bucket across clients.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a YouTube Data API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("type", "video")
	q.Set("q", req.Query)
	if req.PageToken != "" {
		q.Set("pageToken", req.PageToken)
	}
	if req.MaxResults > 0 {
		q.Set("maxResults", strconv.Itoa(req.MaxResults))
	}
	if req.Order != "" {
		q.Set("order", req.Order)
	}
	if req.RegionCode != "" {
		q.Set("regionCode", req.RegionCode)
	}
	if req.RelevanceLanguage != "" {
		q.Set("relevanceLanguage", req.RelevanceLanguage)
	}
	if !req.PublishedAfter.IsZero() {
		q.Set("publishedAfter", req.PublishedAfter.UTC().Format(time.RFC3339))
	}

	var out SearchResponse
	if err := c.get(ctx, "/search", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) VideoStatistics(ctx context.Context, ids []string) (map[string]Statistics, error) {
	stats := make(map[string]Statistics, len(ids))
	for start := 0; start < len(ids); start += maxIDsPerCall {
		end := min(start+maxIDsPerCall, len(ids))

		q := url.Values{}
		q.Set("part", "statistics")
		q.Set("id", strings.Join(ids[start:end], ","))

		var out videosResponse
		if err := c.get(ctx, "/videos", q, &out); err != nil {
			return stats, err
		}
		for _, it := range out.Items {
			stats[it.ID] = it.Statistics
		}
	}
	return stats, nil
}

func (c *httpClient) get(ctx context.Context, path string, q url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "youtube: rate limit wait")
		}
	}
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "youtube: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "youtube: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "youtube: read response")
	}

	if resp.StatusCode != http.StatusOK {
		var eb errorBody
		_ = json.Unmarshal(body, &eb)
		switch {
		case eb.hasReason("quotaExceeded", "dailyLimitExceeded"):
			return resilience.NewQuotaError("youtube", eb.Error.Message)
		case eb.hasReason("rateLimitExceeded", "userRateLimitExceeded"):
			return resilience.NewTransientError(
				eris.Errorf("youtube: rate limited: %s", eb.Error.Message), resp.StatusCode)
		}
		return resilience.StatusError("youtube", resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "youtube: unmarshal response")
	}
	return nil
}
