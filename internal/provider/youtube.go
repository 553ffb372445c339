package provider

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/matjip/internal/metrics"
	"github.com/sells-group/matjip/internal/model"
	"github.com/sells-group/matjip/internal/resilience"
	"github.com/sells-group/matjip/pkg/youtube"
)

const watchURL = "https://www.youtube.com/watch?v="

// YouTubeOptions tunes the video search.
type YouTubeOptions struct {
	MaxResults        int
	Lookback          time.Duration
	RegionCode        string
	RelevanceLanguage string
	Order             string
}

// DefaultYouTubeOptions searches the past year of Korean videos.
func DefaultYouTubeOptions() YouTubeOptions {
	return YouTubeOptions{
		MaxResults:        25,
		Lookback:          365 * 24 * time.Hour,
		RegionCode:        "KR",
		RelevanceLanguage: "ko",
		Order:             "relevance",
	}
}

// YouTube adapts the YouTube client to TextSource. Each video becomes a
// TextItem whose popularity is its view count.
type YouTube struct {
	guard   resilience.Guard
	clients *clientSet[youtube.Client]
	opts    YouTubeOptions
	now     func() time.Time
}

// NewYouTube creates the adapter.
func NewYouTube(guard resilience.Guard, build func(key string) youtube.Client, opts YouTubeOptions) *YouTube {
	def := DefaultYouTubeOptions()
	if opts.MaxResults <= 0 {
		opts.MaxResults = def.MaxResults
	}
	if opts.Lookback <= 0 {
		opts.Lookback = def.Lookback
	}
	if opts.RegionCode == "" {
		opts.RegionCode = def.RegionCode
	}
	if opts.RelevanceLanguage == "" {
		opts.RelevanceLanguage = def.RelevanceLanguage
	}
	if opts.Order == "" {
		opts.Order = def.Order
	}
	return &YouTube{guard: guard, clients: newClientSet(build), opts: opts, now: time.Now}
}

// Search implements TextSource. Missing view counts leave popularity at 0.
func (y *YouTube) Search(ctx context.Context, query, pageToken string) (TextPage, error) {
	req := youtube.SearchRequest{
		Query:             query,
		PageToken:         pageToken,
		MaxResults:        y.opts.MaxResults,
		Order:             y.opts.Order,
		RegionCode:        y.opts.RegionCode,
		RelevanceLanguage: y.opts.RelevanceLanguage,
		PublishedAfter:    y.now().Add(-y.opts.Lookback),
	}

	start := time.Now()
	resp, err := resilience.Call(ctx, y.guard, "search", func(ctx context.Context, key string) (*youtube.SearchResponse, error) {
		return y.clients.get(key).Search(ctx, req)
	})
	metrics.ObserveCall("youtube", "search", start, err)
	if err != nil {
		return TextPage{}, eris.Wrapf(err, "youtube: search %q", query)
	}

	ids := make([]string, 0, len(resp.Items))
	for _, it := range resp.Items {
		if it.ID.VideoID != "" {
			ids = append(ids, it.ID.VideoID)
		}
	}

	var stats map[string]youtube.Statistics
	if len(ids) > 0 {
		start = time.Now()
		stats, err = resilience.Call(ctx, y.guard, "video_statistics", func(ctx context.Context, key string) (map[string]youtube.Statistics, error) {
			return y.clients.get(key).VideoStatistics(ctx, ids)
		})
		metrics.ObserveCall("youtube", "video_statistics", start, err)
		if err != nil {
			zap.L().Warn("youtube: video statistics unavailable", zap.String("query", query), zap.Error(err))
		}
	}

	page := TextPage{NextPageToken: resp.NextPageToken, Items: make([]model.TextItem, 0, len(resp.Items))}
	for _, it := range resp.Items {
		if it.ID.VideoID == "" {
			continue
		}
		page.Items = append(page.Items, model.TextItem{
			Title:       it.Snippet.Title,
			Body:        it.Snippet.Description,
			Channel:     it.Snippet.ChannelTitle,
			ChannelID:   it.Snippet.ChannelID,
			VideoID:     it.ID.VideoID,
			URL:         watchURL + it.ID.VideoID,
			Thumbnail:   it.Snippet.Thumbnails.Best(),
			PublishedAt: it.Snippet.PublishedAt,
			Popularity:  stats[it.ID.VideoID].Views(),
		})
	}
	return page, nil
}
