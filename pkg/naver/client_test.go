package naver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/matjip/internal/resilience"
)

func TestLocalSearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/search/local.json", r.URL.Path)
		assert.Equal(t, "id", r.Header.Get("X-Naver-Client-Id"))
		assert.Equal(t, "secret", r.Header.Get("X-Naver-Client-Secret"))
		assert.Equal(t, "제주 맛집", r.URL.Query().Get("query"))
		assert.Equal(t, "5", r.URL.Query().Get("display"))
		assert.Equal(t, "random", r.URL.Query().Get("sort"))

		_, _ = w.Write([]byte(`{"total":1,"start":1,"display":1,"items":[{
			"title":"<b>제주</b>은희네해장국",
			"category":"음식점>해장국",
			"telephone":"",
			"address":"제주특별자치도 제주시 도남동 1-2",
			"roadAddress":"제주특별자치도 제주시 고마로13길 8",
			"mapx":"1265301234",
			"mapy":"334987654"}]}`))
	}))
	defer srv.Close()

	client := NewClient("id", "secret", WithBaseURL(srv.URL))
	resp, err := client.LocalSearch(context.Background(), SearchRequest{Query: "제주 맛집", Display: 5, Sort: "random"})

	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	it := resp.Items[0]
	assert.Equal(t, "제주은희네해장국", it.Name())
	assert.InDelta(t, 126.5301234, it.Lng(), 1e-9)
	assert.InDelta(t, 33.4987654, it.Lat(), 1e-9)
}

func TestBlogSearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/search/blog.json", r.URL.Path)
		assert.Equal(t, "sim", r.URL.Query().Get("sort"))
		_, _ = w.Write([]byte(`{"items":[{"title":"<b>명동교자</b> 칼국수 &amp; 만두","link":"https://blog.naver.com/a/1","description":"중구 명동","bloggername":"a","postdate":"20240105"}]}`))
	}))
	defer srv.Close()

	client := NewClient("id", "secret", WithBaseURL(srv.URL))
	resp, err := client.BlogSearch(context.Background(), SearchRequest{Query: "명동교자 명동", Display: 10, Sort: "sim"})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "명동교자 칼국수 & 만두", StripTags(resp.Items[0].Title))
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		quota  bool
	}{
		{"quota", http.StatusTooManyRequests, `{"errorMessage":"Query limit exceeded","errorCode":"012"}`, true},
		{"throttle", http.StatusTooManyRequests, `{"errorMessage":"Rate limit","errorCode":"010"}`, false},
		{"auth", http.StatusUnauthorized, `{"errorMessage":"Authentication failed","errorCode":"024"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("id", "secret", WithBaseURL(srv.URL))
			_, err := client.LocalSearch(context.Background(), SearchRequest{Query: "x"})
			require.Error(t, err)
			assert.Equal(t, tt.quota, resilience.IsQuota(err))
		})
	}
}

func TestStripTagsAndCoordinates(t *testing.T) {
	assert.Equal(t, "해운대 암소갈비", StripTags(" <b>해운대</b> 암소갈비 "))
	assert.Equal(t, "", StripTags("<br/>"))
	assert.Zero(t, LocalItem{MapX: "abc"}.Lng())

	id, secret := SplitCredential(" id : sec:ret ")
	assert.Equal(t, "id", id)
	assert.Equal(t, "sec:ret", secret)
}
