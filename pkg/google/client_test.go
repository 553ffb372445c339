package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/matjip/internal/resilience"
)

func TestNearbySearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/nearbysearch/json", r.URL.Path)
		assert.Equal(t, "37.5625,126.9853", q.Get("location"))
		assert.Equal(t, "100", q.Get("radius"))
		assert.Equal(t, "restaurant", q.Get("type"))
		assert.Equal(t, "ko", q.Get("language"))
		assert.Equal(t, "test-key", q.Get("key"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(SearchResponse{
			Status: "OK",
			Results: []Place{{
				PlaceID:  "ChIJ-myeongdong",
				Name:     "명동교자 본점",
				Vicinity: "중구 명동10길 29",
				Geometry: Geometry{Location: LatLng{Lat: 37.5625, Lng: 126.9853}},
				Rating:   4.3,
			}},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.NearbySearch(context.Background(), NearbyRequest{
		Location: LatLng{Lat: 37.5625, Lng: 126.9853},
		Radius:   100,
		Type:     "restaurant",
	})

	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "ChIJ-myeongdong", resp.Results[0].PlaceID)
	assert.InDelta(t, 4.3, resp.Results[0].Rating, 0.001)
}

func TestTextSearch_LocationBias(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/textsearch/json", r.URL.Path)
		assert.Equal(t, "명동교자 서울 중구 명동10길 29", q.Get("query"))
		assert.Equal(t, "500", q.Get("radius"))
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.TextSearch(context.Background(), TextSearchRequest{
		Query:    "명동교자 서울 중구 명동10길 29",
		Location: &LatLng{Lat: 37.56, Lng: 126.98},
		Radius:   500,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestDetails_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/details/json", r.URL.Path)
		assert.Equal(t, "ChIJ-1", r.URL.Query().Get("place_id"))
		assert.Contains(t, r.URL.Query().Get("fields"), "user_ratings_total")
		_, _ = w.Write([]byte(`{"status":"OK","result":{
			"place_id":"ChIJ-1","name":"명동교자","rating":4.4,"user_ratings_total":5120,
			"price_level":1,"formatted_phone_number":"02-776-5348",
			"opening_hours":{"open_now":true,"weekday_text":["월요일: 10:30~21:00"]},
			"reviews":[{"author_name":"a","rating":5,"text":"칼국수 맛집","time":1700000000}],
			"photos":[{"photo_reference":"ref-1","width":800,"height":600}]}}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.Details(context.Background(), "ChIJ-1", nil)
	require.NoError(t, err)

	d := resp.Result
	assert.Equal(t, 5120, d.UserRatingsTotal)
	require.NotNil(t, d.PriceLevel)
	assert.Equal(t, 1, *d.PriceLevel)
	require.NotNil(t, d.OpeningHours)
	require.NotNil(t, d.OpeningHours.OpenNow)
	assert.True(t, *d.OpeningHours.OpenNow)
	require.Len(t, d.Photos, 1)
	assert.Equal(t, "ref-1", d.Photos[0].PhotoReference)
}

func TestPhotoURL(t *testing.T) {
	client := NewClient("k&y")
	u, err := url.Parse(client.PhotoURL("ref-1", 0))
	require.NoError(t, err)
	assert.Equal(t, "maps.googleapis.com", u.Host)
	assert.Equal(t, "/maps/api/place/photo", u.Path)
	assert.Equal(t, "800", u.Query().Get("maxwidth"))
	assert.Equal(t, "ref-1", u.Query().Get("photoreference"))
	assert.Equal(t, "k&y", u.Query().Get("key"))

	assert.Empty(t, client.PhotoURL("", 800))
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		httpCode  int
		quota     bool
		transient bool
	}{
		{"over query limit", `{"status":"OVER_QUERY_LIMIT","error_message":"daily"}`, 200, true, false},
		{"denied", `{"status":"REQUEST_DENIED","error_message":"bad key"}`, 200, false, false},
		{"unknown error", `{"status":"UNKNOWN_ERROR"}`, 200, false, true},
		{"http 503", `down`, 503, false, true},
		{"http 403", `{"error":"invalid API key"}`, 403, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.httpCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("k", WithBaseURL(srv.URL))
			resp, err := client.NearbySearch(context.Background(), NearbyRequest{Radius: 100})
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.Equal(t, tt.quota, resilience.IsQuota(err))
			assert.Equal(t, tt.transient, resilience.IsTransient(err))
		})
	}
}

func TestTextSearch_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.TextSearch(ctx, TextSearchRequest{Query: "test"})

	assert.Error(t, err)
	assert.Nil(t, resp)
}
