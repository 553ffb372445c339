package provider

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/matjip/internal/metrics"
	"github.com/sells-group/matjip/internal/model"
	"github.com/sells-group/matjip/internal/resilience"
	"github.com/sells-group/matjip/internal/textsim"
	"github.com/sells-group/matjip/pkg/naver"
)

// Naver adapts the Naver client to ListingSearchProvider (local search) and
// ArticleSearchProvider (blog search). Pool entries are "id:secret".
type Naver struct {
	guard   resilience.Guard
	clients *clientSet[naver.Client]
}

// NewNaver creates the adapter.
func NewNaver(guard resilience.Guard, build func(id, secret string) naver.Client) *Naver {
	return &Naver{
		guard: guard,
		clients: newClientSet(func(cred string) naver.Client {
			return build(naver.SplitCredential(cred))
		}),
	}
}

// Provider implements ListingSearchProvider.
func (n *Naver) Provider() model.Provider { return model.ProviderNaver }

// SearchListings runs a local search and keeps restaurant and cafe hits.
// Naver listings have no native id; the id is derived from name and
// address.
func (n *Naver) SearchListings(ctx context.Context, query string, q ListingQuery) ([]model.ProviderListing, error) {
	req := naver.SearchRequest{Query: query, Display: q.Size, Sort: "random"}
	if req.Display <= 0 {
		req.Display = defaultListingSize
	}

	start := time.Now()
	resp, err := resilience.Call(ctx, n.guard, "local_search", func(ctx context.Context, cred string) (*naver.LocalResponse, error) {
		return n.clients.get(cred).LocalSearch(ctx, req)
	})
	metrics.ObserveCall("naver", "local_search", start, err)
	if err != nil {
		return nil, eris.Wrapf(err, "naver: local search %q", query)
	}

	out := make([]model.ProviderListing, 0, len(resp.Items))
	for _, it := range resp.Items {
		if !strings.Contains(it.Category, "음식점") && !strings.Contains(it.Category, "카페") {
			continue
		}
		name := it.Name()
		addr := it.RoadAddress
		if addr == "" {
			addr = it.Address
		}
		out = append(out, model.ProviderListing{
			Provider:    model.ProviderNaver,
			ID:          textsim.Normalize(name) + "@" + textsim.Normalize(addr),
			Name:        name,
			Address:     it.Address,
			RoadAddress: it.RoadAddress,
			Lat:         it.Lat(),
			Lng:         it.Lng(),
			Category:    it.Category,
			Phone:       it.Telephone,
			URL:         it.Link,
		})
	}
	return out, nil
}

// SearchArticles runs a blog search sorted by relevance.
func (n *Naver) SearchArticles(ctx context.Context, query string, limit int) ([]model.Article, error) {
	req := naver.SearchRequest{Query: query, Display: limit, Sort: "sim"}

	start := time.Now()
	resp, err := resilience.Call(ctx, n.guard, "blog_search", func(ctx context.Context, cred string) (*naver.BlogResponse, error) {
		return n.clients.get(cred).BlogSearch(ctx, req)
	})
	metrics.ObserveCall("naver", "blog_search", start, err)
	if err != nil {
		return nil, eris.Wrapf(err, "naver: blog search %q", query)
	}

	out := make([]model.Article, 0, len(resp.Items))
	for _, it := range resp.Items {
		out = append(out, model.Article{
			Title:         naver.StripTags(it.Title),
			URL:           it.Link,
			Snippet:       naver.StripTags(it.Description),
			Author:        it.BloggerName,
			PublishedDate: it.PostDate,
		})
	}
	return out, nil
}
