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
	"github.com/sells-group/matjip/pkg/google"
)

// GoogleOptions tunes the detail lookup.
type GoogleOptions struct {
	// NearbyRadius is the nearby search radius in meters. Default: 100.
	NearbyRadius int
	// TextRadius biases the fallback text search. Default: 500.
	TextRadius int
	// MinNameMatch is the exclusive branch-insensitive Jaccard threshold a
	// nearby result must exceed. Default: 0.7.
	MinNameMatch float64
	// MaxReviews caps the reviews kept. Default: 5.
	MaxReviews int
}

// DefaultGoogleOptions returns the default lookup tuning.
func DefaultGoogleOptions() GoogleOptions {
	return GoogleOptions{NearbyRadius: 100, TextRadius: 500, MinNameMatch: 0.7, MaxReviews: 5}
}

// Google adapts the Places client to DetailProvider.
type Google struct {
	guard   resilience.Guard
	clients *clientSet[google.Client]
	opts    GoogleOptions
}

// NewGoogle creates the adapter.
func NewGoogle(guard resilience.Guard, build func(key string) google.Client, opts GoogleOptions) *Google {
	def := DefaultGoogleOptions()
	if opts.NearbyRadius <= 0 {
		opts.NearbyRadius = def.NearbyRadius
	}
	if opts.TextRadius <= 0 {
		opts.TextRadius = def.TextRadius
	}
	if opts.MinNameMatch <= 0 {
		opts.MinNameMatch = def.MinNameMatch
	}
	if opts.MaxReviews <= 0 {
		opts.MaxReviews = def.MaxReviews
	}
	return &Google{guard: guard, clients: newClientSet(build), opts: opts}
}

// LookupDetail finds the place by a nearby search around the restaurant's
// coordinates, falling back to a text search on name and address, then
// fetches its details.
func (g *Google) LookupDetail(ctx context.Context, q DetailQuery) (*model.DetailRecord, error) {
	placeID, err := g.findPlace(ctx, q)
	if err != nil || placeID == "" {
		return nil, err
	}

	start := time.Now()
	resp, err := resilience.Call(ctx, g.guard, "details", func(ctx context.Context, key string) (*google.DetailsResponse, error) {
		return g.clients.get(key).Details(ctx, placeID, google.DetailFields)
	})
	metrics.ObserveCall("google", "details", start, err)
	if err != nil {
		return nil, eris.Wrapf(err, "google: details %s", placeID)
	}
	return g.toDetail(resp.Result), nil
}

func (g *Google) findPlace(ctx context.Context, q DetailQuery) (string, error) {
	var loc *google.LatLng
	if q.Lat != 0 || q.Lng != 0 {
		loc = &google.LatLng{Lat: q.Lat, Lng: q.Lng}

		start := time.Now()
		resp, err := resilience.Call(ctx, g.guard, "nearby_search", func(ctx context.Context, key string) (*google.SearchResponse, error) {
			return g.clients.get(key).NearbySearch(ctx, google.NearbyRequest{
				Location: *loc,
				Radius:   g.opts.NearbyRadius,
				Type:     "restaurant",
			})
		})
		metrics.ObserveCall("google", "nearby_search", start, err)
		if err != nil {
			return "", eris.Wrapf(err, "google: nearby search %q", q.Name)
		}
		if id := g.bestNameMatch(q.Name, resp.Results); id != "" {
			return id, nil
		}
	}

	query := strings.TrimSpace(q.Name + " " + q.Address)
	start := time.Now()
	resp, err := resilience.Call(ctx, g.guard, "text_search", func(ctx context.Context, key string) (*google.SearchResponse, error) {
		return g.clients.get(key).TextSearch(ctx, google.TextSearchRequest{
			Query:    query,
			Location: loc,
			Radius:   g.opts.TextRadius,
		})
	})
	metrics.ObserveCall("google", "text_search", start, err)
	if err != nil {
		return "", eris.Wrapf(err, "google: text search %q", query)
	}
	if len(resp.Results) == 0 {
		return "", nil
	}
	return resp.Results[0].PlaceID, nil
}

// bestNameMatch returns the place whose branch-insensitive name overlaps
// name the most, if that overlap exceeds the threshold.
func (g *Google) bestNameMatch(name string, places []google.Place) string {
	target := textsim.CleanBranch(name)
	bestID, bestScore := "", 0.0
	for _, p := range places {
		s := textsim.CharJaccard(target, textsim.CleanBranch(p.Name))
		if s > bestScore {
			bestID, bestScore = p.PlaceID, s
		}
	}
	if bestScore > g.opts.MinNameMatch {
		return bestID
	}
	return ""
}

func (g *Google) toDetail(d google.PlaceDetails) *model.DetailRecord {
	rec := &model.DetailRecord{
		PlaceID:     d.PlaceID,
		Name:        d.Name,
		Rating:      d.Rating,
		ReviewCount: d.UserRatingsTotal,
		Phone:       d.FormattedPhoneNumber,
	}
	if d.PriceLevel != nil {
		rec.PriceLevel = *d.PriceLevel
	}
	if d.OpeningHours != nil {
		rec.OpeningHours = d.OpeningHours.WeekdayText
		rec.OpenNow = d.OpeningHours.OpenNow
	}
	for i, r := range d.Reviews {
		if i == g.opts.MaxReviews {
			break
		}
		rec.Reviews = append(rec.Reviews, model.Review{
			Author: r.AuthorName,
			Rating: float64(r.Rating),
			Text:   r.Text,
			Time:   time.Unix(r.Time, 0).UTC(),
		})
	}
	for _, p := range d.Photos {
		if p.PhotoReference != "" {
			rec.PhotoRefs = append(rec.PhotoRefs, p.PhotoReference)
		}
	}
	return rec
}

// PhotoURL builds a photo URL with the next pooled key.
func (g *Google) PhotoURL(ref string, maxWidth int) string {
	key := ""
	if g.guard.Keys != nil {
		k, err := g.guard.Keys.Acquire()
		if err != nil {
			return ""
		}
		key = k
	}
	return g.clients.get(key).PhotoURL(ref, maxWidth)
}
