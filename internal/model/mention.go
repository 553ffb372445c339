package model

import "time"

// TextItem is a free-text document yielded by a text source, e.g. a video
// title and description pair.
type TextItem struct {
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Channel     string    `json:"channel"`
	ChannelID   string    `json:"channel_id,omitempty"`
	VideoID     string    `json:"video_id,omitempty"`
	URL         string    `json:"url,omitempty"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	Popularity  int64     `json:"popularity"`
}

// Text returns the title and body joined for extraction.
func (t TextItem) Text() string {
	if t.Body == "" {
		return t.Title
	}
	return t.Title + "\n" + t.Body
}

// Mention is a single observed reference to a restaurant name.
type Mention struct {
	Channel     string    `json:"channel"`
	ChannelID   string    `json:"channel_id,omitempty"`
	VideoID     string    `json:"video_id,omitempty"`
	Title       string    `json:"title"`
	URL         string    `json:"url,omitempty"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	Popularity  int64     `json:"popularity"`
}

// MentionFromItem copies the provenance of a text item into a Mention.
func MentionFromItem(it TextItem) Mention {
	return Mention{
		Channel:     it.Channel,
		ChannelID:   it.ChannelID,
		VideoID:     it.VideoID,
		Title:       it.Title,
		URL:         it.URL,
		Thumbnail:   it.Thumbnail,
		PublishedAt: it.PublishedAt,
		Popularity:  it.Popularity,
	}
}

// MentionCandidate is a raw extracted name with its discovery provenance.
// Candidates are ephemeral and discarded after resolution.
type MentionCandidate struct {
	Name         string    `json:"name"`
	Source       string    `json:"source"`
	Text         string    `json:"text,omitempty"`
	DiscoveredAt time.Time `json:"discovered_at"`
	Mentions     []Mention `json:"mentions,omitempty"`
}
