package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		provider Provider
		id       string
		want     string
	}{
		{"kakao", ProviderKakao, "12345", "kakao:12345"},
		{"google", ProviderGoogle, "ChIJabc", "google:ChIJabc"},
		{"trims", ProviderKakao, " 99 ", "kakao:99"},
		{"empty", ProviderKakao, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CanonicalID(tt.provider, tt.id))
		})
	}
}

func TestNewCanonicalRestaurant(t *testing.T) {
	t.Parallel()

	m := MatchResult{
		Listing: ProviderListing{
			Provider:    ProviderKakao,
			ID:          "777",
			Name:        "명동교자 본점",
			Address:     "서울 중구 명동2가 25-2",
			RoadAddress: "서울 중구 명동10길 29",
			Lat:         37.5625,
			Lng:         126.9857,
			Category:    "음식점 > 한식 > 국수",
			Phone:       "02-776-5348",
			URL:         "http://place.map.kakao.com/777",
		},
		Score: 0.9,
	}

	r := NewCanonicalRestaurant(m, "서울")
	assert.Equal(t, "kakao:777", r.ID)
	assert.Equal(t, "777", r.ProviderID)
	assert.Equal(t, "명동교자 본점", r.Name)
	assert.Equal(t, "음식점 > 한식 > 국수", r.CategoryRaw)
	assert.Equal(t, "서울", r.Region)
	assert.Empty(t, r.Category)
}

func TestProviderListing_Helpers(t *testing.T) {
	t.Parallel()

	l := ProviderListing{Address: "lot"}
	assert.False(t, l.HasCoordinates())
	assert.Equal(t, "lot", l.FullAddress())

	l.RoadAddress = "road"
	l.Lat = 33.5
	assert.True(t, l.HasCoordinates())
	assert.Equal(t, "road", l.FullAddress())
}

func TestTextItem_Text(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "title", TextItem{Title: "title"}.Text())
	assert.Equal(t, "title\nbody", TextItem{Title: "title", Body: "body"}.Text())
}

func TestMentionFromItem(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	m := MentionFromItem(TextItem{
		Title:       "제주 맛집",
		Channel:     "먹방채널",
		VideoID:     "abc",
		PublishedAt: now,
		Popularity:  1200,
	})
	assert.Equal(t, "먹방채널", m.Channel)
	assert.Equal(t, "abc", m.VideoID)
	assert.Equal(t, now, m.PublishedAt)
	assert.Equal(t, int64(1200), m.Popularity)
}

func TestRunStats_Reject(t *testing.T) {
	t.Parallel()

	var s RunStats
	s.Reject("below_threshold")
	s.Reject("below_threshold")
	s.Reject("generic_name")

	assert.Equal(t, 3, s.Rejected)
	assert.Equal(t, 2, s.RejectReasons["below_threshold"])
	assert.Equal(t, 1, s.RejectReasons["generic_name"])
}

func TestAttributeBag_IsEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, AttributeBag{}.IsEmpty())
	assert.False(t, AttributeBag{Photos: []string{"p"}}.IsEmpty())
	assert.False(t, AttributeBag{Detail: &DetailRecord{}}.IsEmpty())
}
