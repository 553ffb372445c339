package store

import (
	"time"

	"github.com/sells-group/matjip/internal/model"
)

// MergePolicy is how an incoming field value combines with the stored one.
type MergePolicy int

const (
	// Overwrite replaces the stored value when the incoming one is set.
	Overwrite MergePolicy = iota
	// Additive sums stored and incoming values.
	Additive
	// Union keeps every distinct element of both, stored ones first.
	Union
	// Earliest keeps the earlier non-zero time.
	Earliest
	// Latest keeps the later time.
	Latest
	// Keep never changes a stored value.
	Keep
)

func (p MergePolicy) String() string {
	switch p {
	case Overwrite:
		return "overwrite"
	case Additive:
		return "additive"
	case Union:
		return "union"
	case Earliest:
		return "earliest"
	case Latest:
		return "latest"
	case Keep:
		return "keep"
	}
	return "unknown"
}

type fieldRule struct {
	field  string
	policy MergePolicy
	apply  func(dst, in *model.CanonicalRestaurant)
}

// rules is the merge policy table. Fields not listed here are identity
// fields (id, provider, provider_id) and never change.
var rules = []fieldRule{
	{"history.mention_count", Additive, func(d, in *model.CanonicalRestaurant) {
		d.History.MentionCount += in.History.MentionCount
	}},
	{"history.channels", Union, func(d, in *model.CanonicalRestaurant) {
		d.History.Channels = union(d.History.Channels, in.History.Channels)
	}},
	{"tags", Overwrite, func(d, in *model.CanonicalRestaurant) {
		if len(in.Tags) > 0 {
			d.Tags = append([]string(nil), in.Tags...)
		}
	}},
	{"history.first_seen", Earliest, func(d, in *model.CanonicalRestaurant) {
		d.History.FirstSeen = earliest(d.History.FirstSeen, in.History.FirstSeen)
	}},
	{"history.last_seen", Latest, func(d, in *model.CanonicalRestaurant) {
		if in.History.LastSeen.After(d.History.LastSeen) {
			d.History.LastSeen = in.History.LastSeen
		}
	}},
	{"created_at", Keep, func(d, in *model.CanonicalRestaurant) {
		if d.CreatedAt.IsZero() {
			d.CreatedAt = in.CreatedAt
		}
	}},
	{"history.recent_mentions", Overwrite, func(d, in *model.CanonicalRestaurant) {
		d.History.RecentMentions = in.History.RecentMentions
	}},
	{"history.trend_score", Overwrite, func(d, in *model.CanonicalRestaurant) {
		d.History.TrendScore = in.History.TrendScore
	}},
	{"history.consistency", Overwrite, func(d, in *model.CanonicalRestaurant) {
		d.History.Consistency = in.History.Consistency
	}},
	{"history.is_rising", Overwrite, func(d, in *model.CanonicalRestaurant) {
		d.History.IsRising = in.History.IsRising
	}},
	{"history.representative", Overwrite, func(d, in *model.CanonicalRestaurant) {
		if in.History.Representative != nil {
			d.History.Representative = in.History.Representative
		}
	}},
	{"name", Overwrite, overwriteString(func(r *model.CanonicalRestaurant) *string { return &r.Name })},
	{"address", Overwrite, overwriteString(func(r *model.CanonicalRestaurant) *string { return &r.Address })},
	{"road_address", Overwrite, overwriteString(func(r *model.CanonicalRestaurant) *string { return &r.RoadAddress })},
	{"category", Overwrite, overwriteString(func(r *model.CanonicalRestaurant) *string { return &r.Category })},
	{"category_raw", Overwrite, overwriteString(func(r *model.CanonicalRestaurant) *string { return &r.CategoryRaw })},
	{"phone", Overwrite, overwriteString(func(r *model.CanonicalRestaurant) *string { return &r.Phone })},
	{"place_url", Overwrite, overwriteString(func(r *model.CanonicalRestaurant) *string { return &r.PlaceURL })},
	{"image_url", Overwrite, overwriteString(func(r *model.CanonicalRestaurant) *string { return &r.ImageURL })},
	{"region", Overwrite, overwriteString(func(r *model.CanonicalRestaurant) *string { return &r.Region })},
	{"province", Overwrite, overwriteString(func(r *model.CanonicalRestaurant) *string { return &r.Province })},
	{"city", Overwrite, overwriteString(func(r *model.CanonicalRestaurant) *string { return &r.City })},
	{"source", Overwrite, overwriteString(func(r *model.CanonicalRestaurant) *string { return &r.Source })},
	{"location", Overwrite, func(d, in *model.CanonicalRestaurant) {
		if in.Lat != 0 || in.Lng != 0 {
			d.Lat, d.Lng = in.Lat, in.Lng
		}
	}},
	{"attributes.detail", Overwrite, func(d, in *model.CanonicalRestaurant) {
		if in.Attributes.Detail != nil {
			d.Attributes.Detail = in.Attributes.Detail
		}
	}},
	{"attributes.photos", Overwrite, func(d, in *model.CanonicalRestaurant) {
		if len(in.Attributes.Photos) > 0 {
			d.Attributes.Photos = in.Attributes.Photos
		}
	}},
	{"attributes.images", Overwrite, func(d, in *model.CanonicalRestaurant) {
		if len(in.Attributes.Images) > 0 {
			d.Attributes.Images = in.Attributes.Images
		}
	}},
	{"attributes.blogs", Overwrite, func(d, in *model.CanonicalRestaurant) {
		if len(in.Attributes.Blogs) > 0 {
			d.Attributes.Blogs = in.Attributes.Blogs
		}
	}},
	{"updated_at", Latest, func(d, in *model.CanonicalRestaurant) {
		if in.UpdatedAt.After(d.UpdatedAt) {
			d.UpdatedAt = in.UpdatedAt
		}
	}},
}

// Policy returns the merge policy of a field path such as
// "history.mention_count". Unknown fields report Overwrite.
func Policy(field string) MergePolicy {
	for _, r := range rules {
		if r.field == field {
			return r.policy
		}
	}
	return Overwrite
}

// ApplyPolicy merges incoming into existing and returns the result.
// A nil existing yields incoming unchanged.
func ApplyPolicy(existing *model.CanonicalRestaurant, incoming model.CanonicalRestaurant) model.CanonicalRestaurant {
	if existing == nil {
		return incoming
	}
	out := *existing
	out.History.Channels = append([]string(nil), existing.History.Channels...)
	out.Tags = append([]string(nil), existing.Tags...)
	for _, r := range rules {
		r.apply(&out, &incoming)
	}
	out.Mentions = incoming.Mentions
	return out
}

func overwriteString(field func(*model.CanonicalRestaurant) *string) func(d, in *model.CanonicalRestaurant) {
	return func(d, in *model.CanonicalRestaurant) {
		if v := *field(in); v != "" {
			*field(d) = v
		}
	}
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string(nil), a...), b...) {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func earliest(a, b time.Time) time.Time {
	switch {
	case a.IsZero():
		return b
	case b.IsZero():
		return a
	case b.Before(a):
		return b
	}
	return a
}
