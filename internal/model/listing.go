package model

import (
	"strings"
	"time"
)

// Provider identifies an external listing provider.
type Provider string

const (
	ProviderKakao  Provider = "kakao"
	ProviderGoogle Provider = "google"
	ProviderNaver  Provider = "naver"
)

// ProviderListing is one search result from a listing provider.
// Listings are immutable once fetched.
type ProviderListing struct {
	Provider    Provider `json:"provider"`
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	RoadAddress string   `json:"road_address,omitempty"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	Category    string   `json:"category,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	URL         string   `json:"url,omitempty"`
}

// HasCoordinates reports whether the listing carries a usable position.
func (l ProviderListing) HasCoordinates() bool {
	return l.Lat != 0 || l.Lng != 0
}

// FullAddress returns the road address when present, otherwise the lot address.
func (l ProviderListing) FullAddress() string {
	if l.RoadAddress != "" {
		return l.RoadAddress
	}
	return l.Address
}

// MatchResult is the accepted outcome of candidate matching.
type MatchResult struct {
	Listing        ProviderListing `json:"listing"`
	Score          float64         `json:"score"`
	NameSimilarity float64         `json:"name_similarity"`
	KeywordScore   float64         `json:"keyword_score"`
	LocationMatch  bool            `json:"location_match"`
}

// DetailRecord holds extended attributes from a detail provider.
type DetailRecord struct {
	PlaceID      string   `json:"place_id"`
	Name         string   `json:"name,omitempty"`
	Rating       float64  `json:"rating,omitempty"`
	ReviewCount  int      `json:"review_count,omitempty"`
	PriceLevel   int      `json:"price_level,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	OpeningHours []string `json:"opening_hours,omitempty"`
	OpenNow      *bool    `json:"open_now,omitempty"`
	Reviews      []Review `json:"reviews,omitempty"`
	PhotoRefs    []string `json:"photo_refs,omitempty"`
}

// Review is a single user review attached to a DetailRecord.
type Review struct {
	Author string    `json:"author"`
	Rating float64   `json:"rating"`
	Text   string    `json:"text"`
	Time   time.Time `json:"time"`
}

// ImageRef is a ranked image search hit.
type ImageRef struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	Source       string `json:"source,omitempty"`
}

// Article is a blog or article search hit.
type Article struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Snippet       string `json:"snippet,omitempty"`
	Author        string `json:"author,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
}

// CanonicalID derives the stable primary key for a restaurant from the
// winning listing's provider and native id.
func CanonicalID(p Provider, nativeID string) string {
	nativeID = strings.TrimSpace(nativeID)
	if nativeID == "" {
		return ""
	}
	return string(p) + ":" + nativeID
}
