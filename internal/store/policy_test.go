package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/matjip/internal/model"
	"github.com/sells-group/matjip/internal/trend"
)

func TestApplyPolicy_FirstWriteVerbatim(t *testing.T) {
	in := model.CanonicalRestaurant{ID: "kakao:1", Name: "하동관", History: model.MentionHistory{MentionCount: 3}}
	assert.Equal(t, in, ApplyPolicy(nil, in))
}

func TestApplyPolicy_HistoryAccumulates(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := &model.CanonicalRestaurant{
		ID:   "kakao:1",
		Name: "하동관 본점",
		History: model.MentionHistory{
			MentionCount: 3,
			Channels:     []string{"먹방TV", "성시경"},
			FirstSeen:    t0,
			LastSeen:     t0.AddDate(0, 1, 0),
			TrendScore:   40,
		},
		Tags:      []string{"#서울맛집"},
		CreatedAt: t0,
	}
	in := model.CanonicalRestaurant{
		ID:   "kakao:1",
		Name: "하동관",
		History: model.MentionHistory{
			MentionCount: 5,
			Channels:     []string{"성시경", "쯔양"},
			FirstSeen:    t0.AddDate(0, 2, 0),
			LastSeen:     t0.AddDate(0, 3, 0),
			TrendScore:   70,
		},
		Tags:      []string{"#한식", "#서울맛집"},
		CreatedAt: t0.AddDate(0, 3, 0),
	}

	out := ApplyPolicy(existing, in)
	assert.Equal(t, 8, out.History.MentionCount)
	assert.Equal(t, []string{"먹방TV", "성시경", "쯔양"}, out.History.Channels)
	assert.Equal(t, []string{"#한식", "#서울맛집"}, out.Tags)
	assert.Equal(t, t0, out.History.FirstSeen)
	assert.Equal(t, t0.AddDate(0, 3, 0), out.History.LastSeen)
	assert.Equal(t, 70, out.History.TrendScore)
	assert.Equal(t, "하동관", out.Name)
	assert.Equal(t, t0, out.CreatedAt)

	// existing is not mutated
	assert.Equal(t, []string{"먹방TV", "성시경"}, existing.History.Channels)
	assert.Equal(t, 3, existing.History.MentionCount)
}

func TestApplyPolicy_OverwriteOnlyWhenSet(t *testing.T) {
	rep := &model.Mention{VideoID: "v1"}
	existing := &model.CanonicalRestaurant{
		ID:       "kakao:1",
		Name:     "하동관",
		Address:  "서울 중구 명동9길 12",
		Phone:    "02-776-5656",
		Lat:      37.56,
		Lng:      126.98,
		Category: "한식",
		Attributes: model.AttributeBag{
			Photos: []string{"p1"},
			Detail: &model.DetailRecord{Rating: 4.2},
		},
		History: model.MentionHistory{Representative: rep},
	}
	in := model.CanonicalRestaurant{
		ID:      "kakao:1",
		Address: "서울 중구 명동9길 12 1층",
		Attributes: model.AttributeBag{
			Images: []model.ImageRef{{URL: "i1"}},
		},
	}

	out := ApplyPolicy(existing, in)
	assert.Equal(t, "하동관", out.Name)
	assert.Equal(t, "서울 중구 명동9길 12 1층", out.Address)
	assert.Equal(t, "02-776-5656", out.Phone)
	assert.InDelta(t, 37.56, out.Lat, 1e-9)
	assert.Equal(t, "한식", out.Category)
	assert.Equal(t, []string{"p1"}, out.Attributes.Photos)
	assert.Len(t, out.Attributes.Images, 1)
	assert.NotNil(t, out.Attributes.Detail)
	assert.Same(t, rep, out.History.Representative)
}

func TestApplyPolicy_TagsReplacedByLatestRun(t *testing.T) {
	existing := &model.CanonicalRestaurant{
		ID: "kakao:1",
		Tags: []string{
			"#유튜브단골", "#최근핫플", "#요즘대세", "#현지인단골집",
			"#숨은맛집", "#제주맛집", "#제주흑돼지", "#한식",
		},
	}
	in := model.CanonicalRestaurant{
		ID:   "kakao:1",
		Tags: []string{"#유튜브단골", "#검증된맛집", "#스테디셀러", "#한식"},
	}

	out := ApplyPolicy(existing, in)
	assert.Equal(t, in.Tags, out.Tags)
	assert.LessOrEqual(t, len(out.Tags), trend.MaxTags)
	assert.NotContains(t, out.Tags, "#요즘대세")
	assert.Len(t, existing.Tags, 8)

	// A run that derived no tags keeps the stored ones.
	out = ApplyPolicy(existing, model.CanonicalRestaurant{ID: "kakao:1"})
	assert.Equal(t, existing.Tags, out.Tags)
}

func TestApplyPolicy_MentionsFromIncoming(t *testing.T) {
	existing := &model.CanonicalRestaurant{ID: "kakao:1", Mentions: []model.Mention{{VideoID: "old"}}}
	in := model.CanonicalRestaurant{ID: "kakao:1", Mentions: []model.Mention{{VideoID: "new"}}}
	out := ApplyPolicy(existing, in)
	assert.Equal(t, []model.Mention{{VideoID: "new"}}, out.Mentions)
}

func TestPolicy(t *testing.T) {
	tests := []struct {
		field string
		want  MergePolicy
	}{
		{"history.mention_count", Additive},
		{"history.channels", Union},
		{"tags", Overwrite},
		{"history.first_seen", Earliest},
		{"history.last_seen", Latest},
		{"created_at", Keep},
		{"name", Overwrite},
		{"attributes.detail", Overwrite},
		{"no.such.field", Overwrite},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, Policy(tt.field))
		})
	}
}

func TestMergePolicy_String(t *testing.T) {
	assert.Equal(t, "additive", Additive.String())
	assert.Equal(t, "union", Union.String())
	assert.Equal(t, "overwrite", Overwrite.String())
	assert.Equal(t, "unknown", MergePolicy(42).String())
}

func TestEarliest(t *testing.T) {
	a := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := a.Add(time.Hour)
	assert.Equal(t, a, earliest(a, b))
	assert.Equal(t, a, earliest(b, a))
	assert.Equal(t, b, earliest(time.Time{}, b))
	assert.Equal(t, a, earliest(a, time.Time{}))
}
