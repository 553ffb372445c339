// Package kakao is a client for the Kakao Local keyword search and Daum
// image search APIs.
package kakao

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/matjip/internal/resilience"
)

const (
	defaultBaseURL = "https://dapi.kakao.com"

	// CategoryRestaurant is the FD6 category group (음식점).
	CategoryRestaurant = "FD6"
	// CategoryCafe is the CE7 category group (카페).
	CategoryCafe = "CE7"
)

// Client performs Kakao API operations.
type Client interface {
	KeywordSearch(ctx context.Context, req KeywordRequest) (*KeywordResponse, error)
	ImageSearch(ctx context.Context, query string, size int) (*ImageResponse, error)
}

// KeywordRequest holds the parameters of a keyword place search.
type KeywordRequest struct {
	Query             string
	CategoryGroupCode string
	Size              int
	Page              int
	// Sort is "accuracy" (default) or "distance".
	Sort string
	// X and Y (longitude, latitude) with Radius in meters bias the search.
	X, Y   float64
	Radius int
}

// Meta is the paging block of every Kakao response.
type Meta struct {
	TotalCount    int  `json:"total_count"`
	PageableCount int  `json:"pageable_count"`
	IsEnd         bool `json:"is_end"`
}

// Place is a keyword search document.
type Place struct {
	ID                string `json:"id"`
	PlaceName         string `json:"place_name"`
	CategoryName      string `json:"category_name"`
	CategoryGroupCode string `json:"category_group_code"`
	Phone             string `json:"phone"`
	AddressName       string `json:"address_name"`
	RoadAddressName   string `json:"road_address_name"`
	X                 string `json:"x"`
	Y                 string `json:"y"`
	PlaceURL          string `json:"place_url"`
}

// Lng parses the X coordinate.
func (p Place) Lng() float64 {
	f, _ := strconv.ParseFloat(p.X, 64)
	return f
}

// Lat parses the Y coordinate.
func (p Place) Lat() float64 {
	f, _ := strconv.ParseFloat(p.Y, 64)
	return f
}

// KeywordResponse is the keyword search response.
type KeywordResponse struct {
	Meta      Meta    `json:"meta"`
	Documents []Place `json:"documents"`
}

// Image is an image search document.
type Image struct {
	Collection      string `json:"collection"`
	ThumbnailURL    string `json:"thumbnail_url"`
	ImageURL        string `json:"image_url"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	DisplaySitename string `json:"display_sitename"`
	DocURL          string `json:"doc_url"`
}

// ImageResponse is the image search response.
type ImageResponse struct {
	Meta      Meta    `json:"meta"`
	Documents []Image `json:"documents"`
}

type errorBody struct {
	ErrorType string `json:"errorType"`
	Message   string `json:"message"`
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

// WithRateLimiter shares a token bucket across clients of the same account.
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

// NewClient creates a Kakao REST API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) KeywordSearch(ctx context.Context, req KeywordRequest) (*KeywordResponse, error) {
	q := url.Values{}
	q.Set("query", req.Query)
	if req.CategoryGroupCode != "" {
		q.Set("category_group_code", req.CategoryGroupCode)
	}
	if req.Size > 0 {
		q.Set("size", strconv.Itoa(req.Size))
	}
	if req.Page > 0 {
		q.Set("page", strconv.Itoa(req.Page))
	}
	sort := req.Sort
	if sort == "" {
		sort = "accuracy"
	}
	q.Set("sort", sort)
	if req.X != 0 || req.Y != 0 {
		q.Set("x", strconv.FormatFloat(req.X, 'f', -1, 64))
		q.Set("y", strconv.FormatFloat(req.Y, 'f', -1, 64))
		if req.Radius > 0 {
			q.Set("radius", strconv.Itoa(req.Radius))
		}
	}

	var out KeywordResponse
	if err := c.get(ctx, "/v2/local/search/keyword.json", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) ImageSearch(ctx context.Context, query string, size int) (*ImageResponse, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("sort", "accuracy")
	if size > 0 {
		q.Set("size", strconv.Itoa(size))
	}

	var out ImageResponse
	if err := c.get(ctx, "/v2/search/image", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) get(ctx context.Context, path string, q url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "kakao: rate limit wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "kakao: create request")
	}
	req.Header.Set("Authorization", "KakaoAK "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "kakao: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "kakao: read response")
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusTooManyRequests {
			var eb errorBody
			_ = json.Unmarshal(body, &eb)
			return resilience.NewQuotaError("kakao", eb.Message)
		}
		return resilience.StatusError("kakao", resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "kakao: unmarshal response")
	}
	return nil
}
