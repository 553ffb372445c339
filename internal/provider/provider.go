// Package provider defines the contracts of the external collaborators
// (text sources, listing search, details, images, articles) and adapts the
// pkg API clients to them.
package provider

import (
	"context"
	"sync"

	"github.com/sells-group/matjip/internal/model"
)

// TextPage is one page of text source results.
type TextPage struct {
	Items         []model.TextItem `json:"items"`
	NextPageToken string           `json:"next_page_token,omitempty"`
}

// TextSource yields free-text documents for a query.
type TextSource interface {
	Search(ctx context.Context, query, pageToken string) (TextPage, error)
}

// ListingQuery narrows a listing search.
type ListingQuery struct {
	Category string
	Size     int
	Lat, Lng float64
	Radius   int
}

// ListingSearchProvider finds place listings for a query.
type ListingSearchProvider interface {
	Provider() model.Provider
	SearchListings(ctx context.Context, query string, q ListingQuery) ([]model.ProviderListing, error)
}

// DetailQuery identifies the restaurant to look up.
type DetailQuery struct {
	Name    string
	Address string
	Lat     float64
	Lng     float64
}

// DetailProvider resolves a restaurant to an extended detail record. A nil
// record with a nil error means no confident match.
type DetailProvider interface {
	LookupDetail(ctx context.Context, q DetailQuery) (*model.DetailRecord, error)
	PhotoURL(ref string, maxWidth int) string
}

// ImageSearchProvider returns ranked images for a query.
type ImageSearchProvider interface {
	SearchImages(ctx context.Context, query string, n int) ([]model.ImageRef, error)
}

// ArticleSearchProvider returns blog or article hits for a query.
type ArticleSearchProvider interface {
	SearchArticles(ctx context.Context, query string, n int) ([]model.Article, error)
}

// clientSet lazily builds one API client per credential.
type clientSet[C any] struct {
	mu    sync.Mutex
	build func(key string) C
	byKey map[string]C
}

func newClientSet[C any](build func(key string) C) *clientSet[C] {
	return &clientSet[C]{build: build, byKey: make(map[string]C)}
}

func (s *clientSet[C]) get(key string) C {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byKey[key]
	if !ok {
		c = s.build(key)
		s.byKey[key] = c
	}
	return c
}
