// Package naver is a client for the Naver local and blog search APIs.
package naver

import (
	"context"
	"encoding/json"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/matjip/internal/resilience"
)

const (
	defaultBaseURL = "https://openapi.naver.com"

	// coordScale converts the integer mapx/mapy fields to degrees.
	coordScale = 1e7
)

// Client performs Naver search operations.
type Client interface {
	LocalSearch(ctx context.Context, req SearchRequest) (*LocalResponse, error)
	BlogSearch(ctx context.Context, req SearchRequest) (*BlogResponse, error)
}

// SearchRequest holds the common search parameters.
type SearchRequest struct {
	Query   string
	Display int
	Start   int
	// Sort is "random"/"comment" for local and "sim"/"date" for blog search.
	Sort string
}

// LocalItem is a local search result.
type LocalItem struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Telephone   string `json:"telephone"`
	Address     string `json:"address"`
	RoadAddress string `json:"roadAddress"`
	MapX        string `json:"mapx"`
	MapY        string `json:"mapy"`
}

// Name returns the title without markup.
func (i LocalItem) Name() string { return StripTags(i.Title) }

// Lng returns mapx in degrees.
func (i LocalItem) Lng() float64 { return scaled(i.MapX) }

// Lat returns mapy in degrees.
func (i LocalItem) Lat() float64 { return scaled(i.MapY) }

func scaled(s string) float64 {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return n / coordScale
}

// LocalResponse is the local search response.
type LocalResponse struct {
	Total   int         `json:"total"`
	Start   int         `json:"start"`
	Display int         `json:"display"`
	Items   []LocalItem `json:"items"`
}

// BlogItem is a blog search result.
type BlogItem struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
	BloggerName string `json:"bloggername"`
	BloggerLink string `json:"bloggerlink"`
	PostDate    string `json:"postdate"`
}

// BlogResponse is the blog search response.
type BlogResponse struct {
	Total   int        `json:"total"`
	Start   int        `json:"start"`
	Display int        `json:"display"`
	Items   []BlogItem `json:"items"`
}

type errorBody struct {
	ErrorMessage string `json:"errorMessage"`
	ErrorCode    string `json:"errorCode"`
}

var tagRe = regexp.MustCompile(`<[^>]*>`)

// StripTags removes HTML tags and unescapes entities.
func StripTags(s string) string {
	return strings.TrimSpace(html.UnescapeString(tagRe.ReplaceAllString(s, "")))
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
	clientID     string
	clientSecret string
	baseURL      string
	http         *http.Client
	limiter      *rate.Limiter
}

// NewClient creates a Naver search client.
func NewClient(clientID, clientSecret string, opts ...Option) Client {
	c := &httpClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SplitCredential splits an "id:secret" pool entry.
func SplitCredential(cred string) (id, secret string) {
	id, secret, _ = strings.Cut(cred, ":")
	return strings.TrimSpace(id), strings.TrimSpace(secret)
}

func (c *httpClient) LocalSearch(ctx context.Context, req SearchRequest) (*LocalResponse, error) {
	var out LocalResponse
	if err := c.get(ctx, "/v1/search/local.json", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) BlogSearch(ctx context.Context, req SearchRequest) (*BlogResponse, error) {
	var out BlogResponse
	if err := c.get(ctx, "/v1/search/blog.json", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) get(ctx context.Context, path string, sr SearchRequest, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "naver: rate limit wait")
		}
	}

	q := url.Values{}
	q.Set("query", sr.Query)
	if sr.Display > 0 {
		q.Set("display", strconv.Itoa(sr.Display))
	}
	if sr.Start > 0 {
		q.Set("start", strconv.Itoa(sr.Start))
	}
	if sr.Sort != "" {
		q.Set("sort", sr.Sort)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "naver: create request")
	}
	req.Header.Set("X-Naver-Client-Id", c.clientID)
	req.Header.Set("X-Naver-Client-Secret", c.clientSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "naver: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "naver: read response")
	}

	if resp.StatusCode != http.StatusOK {
		var eb errorBody
		_ = json.Unmarshal(body, &eb)
		if resp.StatusCode == http.StatusTooManyRequests && eb.ErrorCode == "012" {
			return resilience.NewQuotaError("naver", eb.ErrorMessage)
		}
		return resilience.StatusError("naver", resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "naver: unmarshal response")
	}
	return nil
}
