// Package enrich gathers provider attributes for a resolved restaurant.
package enrich

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/matjip/internal/denylist"
	"github.com/sells-group/matjip/internal/model"
	"github.com/sells-group/matjip/internal/provider"
)

// Config tunes enrichment.
type Config struct {
	MaxPhotos     int    `yaml:"max_photos" mapstructure:"max_photos"`
	PhotoMaxWidth int    `yaml:"photo_max_width" mapstructure:"photo_max_width"`
	MaxImages     int    `yaml:"max_images" mapstructure:"max_images"`
	ImageSuffix   string `yaml:"image_suffix" mapstructure:"image_suffix"`
	MaxBlogs      int    `yaml:"max_blogs" mapstructure:"max_blogs"`
	// BlogFetch is how many blog hits are fetched before post-filtering.
	BlogFetch int `yaml:"blog_fetch" mapstructure:"blog_fetch"`
}

// DefaultConfig returns the default enrichment limits.
func DefaultConfig() Config {
	return Config{
		MaxPhotos:     10,
		PhotoMaxWidth: 800,
		MaxImages:     3,
		ImageSuffix:   "음식",
		MaxBlogs:      5,
		BlogFetch:     20,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxPhotos <= 0 {
		c.MaxPhotos = d.MaxPhotos
	}
	if c.PhotoMaxWidth <= 0 {
		c.PhotoMaxWidth = d.PhotoMaxWidth
	}
	if c.MaxImages <= 0 {
		c.MaxImages = d.MaxImages
	}
	if c.ImageSuffix == "" {
		c.ImageSuffix = d.ImageSuffix
	}
	if c.MaxBlogs <= 0 {
		c.MaxBlogs = d.MaxBlogs
	}
	if c.BlogFetch < c.MaxBlogs {
		c.BlogFetch = max(d.BlogFetch, c.MaxBlogs)
	}
	return c
}

// Enricher fans out to the attribute providers. Any provider may be nil,
// which leaves its attribute absent.
type Enricher struct {
	details  provider.DetailProvider
	images   provider.ImageSearchProvider
	articles provider.ArticleSearchProvider
	deny     *denylist.List
	cfg      Config
}

// New creates an Enricher.
func New(details provider.DetailProvider, images provider.ImageSearchProvider, articles provider.ArticleSearchProvider, deny *denylist.List, cfg Config) *Enricher {
	return &Enricher{
		details:  details,
		images:   images,
		articles: articles,
		deny:     deny,
		cfg:      cfg.withDefaults(),
	}
}

// Enrich runs the detail, image and blog lookups concurrently. Each is
// best-effort: a failure is logged and leaves that attribute empty. Photo
// URLs are derived from the detail record.
func (e *Enricher) Enrich(ctx context.Context, r model.CanonicalRestaurant) model.AttributeBag {
	log := zap.L().With(zap.String("restaurant_id", r.ID), zap.String("name", r.Name))
	var bag model.AttributeBag

	g, gctx := errgroup.WithContext(ctx)

	if e.details != nil {
		g.Go(func() error {
			rec, err := e.details.LookupDetail(gctx, provider.DetailQuery{
				Name:    r.Name,
				Address: fullAddress(r),
				Lat:     r.Lat,
				Lng:     r.Lng,
			})
			if err != nil {
				log.Warn("enrich: detail lookup failed", zap.Error(err))
				return nil
			}
			if rec == nil {
				log.Debug("enrich: no detail match")
				return nil
			}
			bag.Detail = rec
			bag.Photos = e.photoURLs(rec.PhotoRefs)
			return nil
		})
	}

	if e.images != nil {
		g.Go(func() error {
			imgs, err := e.images.SearchImages(gctx, r.Name+" "+e.cfg.ImageSuffix, e.cfg.MaxImages)
			if err != nil {
				log.Warn("enrich: image search failed", zap.Error(err))
				return nil
			}
			if len(imgs) > e.cfg.MaxImages {
				imgs = imgs[:e.cfg.MaxImages]
			}
			bag.Images = imgs
			return nil
		})
	}

	if e.articles != nil {
		g.Go(func() error {
			blogs, err := e.searchBlogs(gctx, r)
			if err != nil {
				log.Warn("enrich: blog search failed", zap.Error(err))
				return nil
			}
			bag.Blogs = blogs
			return nil
		})
	}

	_ = g.Wait()
	return bag
}

func (e *Enricher) photoURLs(refs []string) []string {
	var urls []string
	for _, ref := range refs {
		if len(urls) == e.cfg.MaxPhotos {
			break
		}
		if u := e.details.PhotoURL(ref, e.cfg.PhotoMaxWidth); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

func (e *Enricher) searchBlogs(ctx context.Context, r model.CanonicalRestaurant) ([]model.Article, error) {
	addr := fullAddress(r)
	localities := Localities(addr)
	query := BlogQuery(r.Name, addr, e.isCommon(r.Name))

	hits, err := e.articles.SearchArticles(ctx, query, e.cfg.BlogFetch)
	if err != nil {
		return nil, err
	}
	return FilterArticles(hits, r.Name, localities, e.cfg.MaxBlogs), nil
}

func (e *Enricher) isCommon(name string) bool {
	if e.deny == nil {
		return false
	}
	n := strings.TrimSpace(name)
	if e.deny.IsCommonName(n) || e.deny.IsGenericName(n) {
		return true
	}
	_, ok := e.deny.GenericSuffix(n)
	return ok && len([]rune(n)) <= 4
}

func fullAddress(r model.CanonicalRestaurant) string {
	if r.Address != "" {
		return r.Address
	}
	return r.RoadAddress
}
