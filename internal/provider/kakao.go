package provider

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/matjip/internal/metrics"
	"github.com/sells-group/matjip/internal/model"
	"github.com/sells-group/matjip/internal/resilience"
	"github.com/sells-group/matjip/pkg/kakao"
)

const defaultListingSize = 5

// Kakao adapts the Kakao client to ListingSearchProvider and
// ImageSearchProvider.
type Kakao struct {
	guard   resilience.Guard
	clients *clientSet[kakao.Client]
}

// NewKakao creates the adapter. build returns the client for one API key.
func NewKakao(guard resilience.Guard, build func(key string) kakao.Client) *Kakao {
	return &Kakao{guard: guard, clients: newClientSet(build)}
}

// Provider implements ListingSearchProvider.
func (k *Kakao) Provider() model.Provider { return model.ProviderKakao }

// SearchListings runs a keyword search, restricted to the restaurant
// category unless q names another.
func (k *Kakao) SearchListings(ctx context.Context, query string, q ListingQuery) ([]model.ProviderListing, error) {
	req := kakao.KeywordRequest{
		Query:             query,
		CategoryGroupCode: q.Category,
		Size:              q.Size,
		X:                 q.Lng,
		Y:                 q.Lat,
		Radius:            q.Radius,
	}
	if req.CategoryGroupCode == "" {
		req.CategoryGroupCode = kakao.CategoryRestaurant
	}
	if req.Size <= 0 {
		req.Size = defaultListingSize
	}

	start := time.Now()
	resp, err := resilience.Call(ctx, k.guard, "keyword_search", func(ctx context.Context, key string) (*kakao.KeywordResponse, error) {
		return k.clients.get(key).KeywordSearch(ctx, req)
	})
	metrics.ObserveCall("kakao", "keyword_search", start, err)
	if err != nil {
		return nil, eris.Wrapf(err, "kakao: keyword search %q", query)
	}

	out := make([]model.ProviderListing, 0, len(resp.Documents))
	for _, d := range resp.Documents {
		out = append(out, model.ProviderListing{
			Provider:    model.ProviderKakao,
			ID:          d.ID,
			Name:        d.PlaceName,
			Address:     d.AddressName,
			RoadAddress: d.RoadAddressName,
			Lat:         d.Lat(),
			Lng:         d.Lng(),
			Category:    d.CategoryName,
			Phone:       d.Phone,
			URL:         d.PlaceURL,
		})
	}
	return out, nil
}

// SearchImages runs an image search and returns up to n hits.
func (k *Kakao) SearchImages(ctx context.Context, query string, n int) ([]model.ImageRef, error) {
	start := time.Now()
	resp, err := resilience.Call(ctx, k.guard, "image_search", func(ctx context.Context, key string) (*kakao.ImageResponse, error) {
		return k.clients.get(key).ImageSearch(ctx, query, n)
	})
	metrics.ObserveCall("kakao", "image_search", start, err)
	if err != nil {
		return nil, eris.Wrapf(err, "kakao: image search %q", query)
	}

	out := make([]model.ImageRef, 0, len(resp.Documents))
	for _, d := range resp.Documents {
		if n > 0 && len(out) == n {
			break
		}
		out = append(out, model.ImageRef{
			URL:          d.ImageURL,
			ThumbnailURL: d.ThumbnailURL,
			Width:        d.Width,
			Height:       d.Height,
			Source:       d.DisplaySitename,
		})
	}
	return out, nil
}
