package model

import "time"

// AttributeBag holds provider-specific enrichment sub-records. A nil or
// empty field means the attribute could not be obtained.
type AttributeBag struct {
	Detail *DetailRecord `json:"detail,omitempty"`
	Photos []string      `json:"photos,omitempty"`
	Images []ImageRef    `json:"images,omitempty"`
	Blogs  []Article     `json:"blogs,omitempty"`
}

// IsEmpty reports whether no enrichment attribute was obtained.
func (b AttributeBag) IsEmpty() bool {
	return b.Detail == nil && len(b.Photos) == 0 && len(b.Images) == 0 && len(b.Blogs) == 0
}

// MentionHistory is the accumulated social-proof record for a restaurant.
// MentionCount and Channels only ever grow across merges.
type MentionHistory struct {
	MentionCount   int       `json:"mention_count"`
	RecentMentions int       `json:"recent_mentions"`
	Channels       []string  `json:"channels"`
	FirstSeen      time.Time `json:"first_seen"`
	LastSeen       time.Time `json:"last_seen"`
	TrendScore     int       `json:"trend_score"`
	Consistency    int       `json:"consistency"`
	IsRising       bool      `json:"is_rising"`
	Representative *Mention  `json:"representative,omitempty"`
}

// CanonicalRestaurant is the resolved, durable restaurant entity.
type CanonicalRestaurant struct {
	ID          string         `json:"id"`
	Provider    Provider       `json:"provider"`
	ProviderID  string         `json:"provider_id"`
	Name        string         `json:"name"`
	Address     string         `json:"address"`
	RoadAddress string         `json:"road_address,omitempty"`
	Lat         float64        `json:"lat"`
	Lng         float64        `json:"lng"`
	Category    string         `json:"category"`
	CategoryRaw string         `json:"category_raw,omitempty"`
	Phone       string         `json:"phone,omitempty"`
	PlaceURL    string         `json:"place_url,omitempty"`
	ImageURL    string         `json:"image_url,omitempty"`
	Region      string         `json:"region"`
	Province    string         `json:"province,omitempty"`
	City        string         `json:"city,omitempty"`
	Attributes  AttributeBag   `json:"attributes"`
	History     MentionHistory `json:"history"`
	Tags        []string       `json:"tags,omitempty"`
	Source      string         `json:"source,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`

	// Mentions are the references observed in the current run. They are
	// persisted as separate rows, not as part of the document.
	Mentions []Mention `json:"-"`
}

// NewCanonicalRestaurant builds a restaurant stub from an accepted match.
func NewCanonicalRestaurant(m MatchResult, region string) CanonicalRestaurant {
	l := m.Listing
	return CanonicalRestaurant{
		ID:          CanonicalID(l.Provider, l.ID),
		Provider:    l.Provider,
		ProviderID:  l.ID,
		Name:        l.Name,
		Address:     l.Address,
		RoadAddress: l.RoadAddress,
		Lat:         l.Lat,
		Lng:         l.Lng,
		CategoryRaw: l.Category,
		Phone:       l.Phone,
		PlaceURL:    l.URL,
		Region:      region,
	}
}

// RunStatus is the lifecycle state of a crawl run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunStats counts per-region outcomes. Misses are counted, not raised.
type RunStats struct {
	Region        string         `json:"region"`
	TextItems     int            `json:"text_items"`
	Extracted     int            `json:"extracted"`
	Merged        int            `json:"merged"`
	Matched       int            `json:"matched"`
	Rejected      int            `json:"rejected"`
	Duplicates    int            `json:"duplicates"`
	Enriched      int            `json:"enriched"`
	Stored        int            `json:"stored"`
	Failed        int            `json:"failed"`
	RejectReasons map[string]int `json:"reject_reasons,omitempty"`
}

// Reject records a rejected name under reason.
func (s *RunStats) Reject(reason string) {
	s.Rejected++
	if s.RejectReasons == nil {
		s.RejectReasons = make(map[string]int)
	}
	s.RejectReasons[reason]++
}

// Run is a persisted crawl run.
type Run struct {
	ID         string     `json:"id"`
	Regions    []string   `json:"regions"`
	Status     RunStatus  `json:"status"`
	Stats      []RunStats `json:"stats,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
