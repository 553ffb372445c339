// Package google is a client for the Google Places web service (nearby,
// text search, details and photos).
package google

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

const defaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// DetailFields are the place detail fields requested by default.
var DetailFields = []string{
	"place_id", "name", "rating", "user_ratings_total", "reviews", "photos",
	"price_level", "opening_hours", "formatted_phone_number",
}

// Client performs Google Places API operations.
type Client interface {
	NearbySearch(ctx context.Context, req NearbyRequest) (*SearchResponse, error)
	TextSearch(ctx context.Context, req TextSearchRequest) (*SearchResponse, error)
	Details(ctx context.Context, placeID string, fields []string) (*DetailsResponse, error)
	PhotoURL(ref string, maxWidth int) string
}

// LatLng is a coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NearbyRequest searches around a point.
type NearbyRequest struct {
	Location LatLng
	Radius   int
	Type     string
	Keyword  string
}

// TextSearchRequest searches by free text, optionally biased to a point.
type TextSearchRequest struct {
	Query    string
	Location *LatLng
	Radius   int
}

// Geometry holds the place location.
type Geometry struct {
	Location LatLng `json:"location"`
}

// Place is a search result.
type Place struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address"`
	Vicinity         string   `json:"vicinity"`
	Geometry         Geometry `json:"geometry"`
	Rating           float64  `json:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total"`
	Types            []string `json:"types"`
}

// SearchResponse is the nearby/text search response.
type SearchResponse struct {
	Status        string  `json:"status"`
	ErrorMessage  string  `json:"error_message"`
	Results       []Place `json:"results"`
	NextPageToken string  `json:"next_page_token"`
}

// Review is a place review.
type Review struct {
	AuthorName              string `json:"author_name"`
	Rating                  int    `json:"rating"`
	Text                    string `json:"text"`
	Time                    int64  `json:"time"`
	RelativeTimeDescription string `json:"relative_time_description"`
}

// Photo references a place photo.
type Photo struct {
	PhotoReference string `json:"photo_reference"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
}

// OpeningHours is the opening hours block.
type OpeningHours struct {
	OpenNow     *bool    `json:"open_now"`
	WeekdayText []string `json:"weekday_text"`
}

// PlaceDetails is the details result.
type PlaceDetails struct {
	PlaceID              string        `json:"place_id"`
	Name                 string        `json:"name"`
	Rating               float64       `json:"rating"`
	UserRatingsTotal     int           `json:"user_ratings_total"`
	PriceLevel           *int          `json:"price_level"`
	FormattedPhoneNumber string        `json:"formatted_phone_number"`
	OpeningHours         *OpeningHours `json:"opening_hours"`
	Reviews              []Review      `json:"reviews"`
	Photos               []Photo       `json:"photos"`
}

// DetailsResponse is the details response.
type DetailsResponse struct {
	Status       string       `json:"status"`
	ErrorMessage string       `json:"error_message"`
	Result       PlaceDetails `json:"result"`
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

// WithLanguage sets the result language. Default: ko.
func WithLanguage(lang string) Option {
	return func(c *httpClient) {
		c.language = lang
	}
}

type httpClient struct {
	apiKey   string
	baseURL  string
	language string
	http     *http.Client
	limiter  *rate.Limiter
}

// NewClient creates a Google Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:   apiKey,
		baseURL:  defaultBaseURL,
		language: "ko",
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) NearbySearch(ctx context.Context, req NearbyRequest) (*SearchResponse, error) {
	q := url.Values{}
	q.Set("location", formatLatLng(req.Location))
	q.Set("radius", strconv.Itoa(req.Radius))
	if req.Type != "" {
		q.Set("type", req.Type)
	}
	if req.Keyword != "" {
		q.Set("keyword", req.Keyword)
	}

	var out SearchResponse
	if err := c.get(ctx, "/nearbysearch/json", q, &out); err != nil {
		return nil, err
	}
	if err := checkStatus(out.Status, out.ErrorMessage); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) TextSearch(ctx context.Context, req TextSearchRequest) (*SearchResponse, error) {
	q := url.Values{}
	q.Set("query", req.Query)
	if req.Location != nil {
		q.Set("location", formatLatLng(*req.Location))
		if req.Radius > 0 {
			q.Set("radius", strconv.Itoa(req.Radius))
		}
	}

	var out SearchResponse
	if err := c.get(ctx, "/textsearch/json", q, &out); err != nil {
		return nil, err
	}
	if err := checkStatus(out.Status, out.ErrorMessage); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) Details(ctx context.Context, placeID string, fields []string) (*DetailsResponse, error) {
	if len(fields) == 0 {
		fields = DetailFields
	}
	q := url.Values{}
	q.Set("place_id", placeID)
	q.Set("fields", strings.Join(fields, ","))

	var out DetailsResponse
	if err := c.get(ctx, "/details/json", q, &out); err != nil {
		return nil, err
	}
	if err := checkStatus(out.Status, out.ErrorMessage); err != nil {
		return nil, err
	}
	return &out, nil
}

// PhotoURL builds the photo URL for a photo reference.
func (c *httpClient) PhotoURL(ref string, maxWidth int) string {
	if ref == "" {
		return ""
	}
	if maxWidth <= 0 {
		maxWidth = 800
	}
	q := url.Values{}
	q.Set("maxwidth", strconv.Itoa(maxWidth))
	q.Set("photoreference", ref)
	q.Set("key", c.apiKey)
	return c.baseURL + "/photo?" + q.Encode()
}

func formatLatLng(l LatLng) string {
	return strconv.FormatFloat(l.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(l.Lng, 'f', -1, 64)
}

// checkStatus maps the body status field. ZERO_RESULTS is not an error.
func checkStatus(status, msg string) error {
	switch status {
	case "", "OK", "ZERO_RESULTS":
		return nil
	case "OVER_QUERY_LIMIT":
		return resilience.NewQuotaError("google", msg)
	case "UNKNOWN_ERROR":
		return resilience.NewTransientError(eris.Errorf("google: status %s: %s", status, msg), 0)
	}
	return eris.Errorf("google: status %s: %s", status, msg)
}

func (c *httpClient) get(ctx context.Context, path string, q url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "google: rate limit wait")
		}
	}
	if c.language != "" {
		q.Set("language", c.language)
	}
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "google: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "google: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "google: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return resilience.StatusError("google", resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "google: unmarshal response")
	}
	return nil
}
