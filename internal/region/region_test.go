package region

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/matjip/internal/denylist"
	"github.com/sells-group/matjip/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	return Default(denylist.Default())
}

func TestExtractRegionFromAddress(t *testing.T) {
	t.Parallel()

	v := newTestValidator(t)
	tests := []struct {
		address string
		want    string
		ok      bool
	}{
		{"제주특별자치도 제주시 애월읍 애월해안로 272", "제주도", true},
		{"제주 서귀포시 성산읍 일출로 284-12", "제주도", true},
		{"서울특별시 중구 명동10길 29", "서울", true},
		{"서울 마포구 와우산로 21", "서울", true},
		{"부산 해운대구 중동 1394-65", "부산", true},
		{"부산 강서구 명지동 3224", "부산", true},
		{"경북 경주시 황남동 282", "경주", true},
		{"경상북도 경주시 첨성로 81", "경주", true},
		{"대구 중구 동성로2길 80", "대구", true},
		{"강남구 테헤란로 152", "서울", true},
		{"강원 강릉시 창해로 14", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			t.Parallel()
			got, ok := v.ExtractRegionFromAddress(tt.address)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateByCoordinates(t *testing.T) {
	t.Parallel()

	v := newTestValidator(t)
	assert.True(t, v.ValidateByCoordinates("제주도", 33.4996, 126.5312))
	assert.True(t, v.ValidateByCoordinates("서울", 37.5636, 126.9850))
	assert.True(t, v.ValidateByCoordinates("부산", 35.1587, 129.1604))
	assert.True(t, v.ValidateByCoordinates("경주", 35.8347, 129.2190))
	assert.False(t, v.ValidateByCoordinates("서울", 35.1587, 129.1604))
	assert.False(t, v.ValidateByCoordinates("서울", 0, 0))
	assert.False(t, v.ValidateByCoordinates("대구", 35.87, 128.6))
	assert.False(t, v.ValidateByCoordinates("없는지역", 37.5, 127.0))
}

func TestValidateRegion(t *testing.T) {
	t.Parallel()

	v := newTestValidator(t)
	busan := model.ProviderListing{
		Name:    "해운대암소갈비집",
		Address: "부산 해운대구 중동 1225-1",
		Lat:     35.1631,
		Lng:     129.1636,
	}
	assert.True(t, v.ValidateRegion("부산", busan))
	assert.False(t, v.ValidateRegion("서울", busan))

	chain := busan
	chain.Name = "스타벅스 해운대점"
	assert.True(t, v.ValidateRegion("서울", chain))
}

func TestValidateRegion_CoordinateFallback(t *testing.T) {
	t.Parallel()

	v := newTestValidator(t)
	// The address names no region but the point lies inside the Jeju box.
	l := model.ProviderListing{Name: "바당국수", Address: "해맞이해안로 1234", Lat: 33.52, Lng: 126.85}
	assert.True(t, v.ValidateRegion("제주도", l))

	l.Lat, l.Lng = 0, 0
	l.Address = "알 수 없음"
	assert.False(t, v.ValidateRegion("제주도", l))
}

func TestValidateRegion_RoadAddress(t *testing.T) {
	t.Parallel()

	v := newTestValidator(t)
	l := model.ProviderListing{Name: "명동교자", RoadAddress: "서울 중구 명동10길 29"}
	assert.True(t, v.ValidateRegion("서울", l))
}

func TestValidateByAddress_UnknownRegion(t *testing.T) {
	t.Parallel()

	v := newTestValidator(t)
	assert.True(t, v.ValidateByAddress("강릉", "강원 강릉시 창해로 14"))
	assert.False(t, v.ValidateByAddress("강릉", "서울 중구 명동10길 29"))
	assert.False(t, v.ValidateByAddress("", "서울"))
}

func TestProvinceCityQueries(t *testing.T) {
	t.Parallel()

	v := newTestValidator(t)
	assert.Equal(t, "제주특별자치도", v.Province("제주도"))
	assert.Equal(t, "제주시", v.City("제주도"))
	assert.Equal(t, "경상북도", v.Province("경주"))
	assert.Equal(t, "경주시", v.City("경주"))
	assert.Equal(t, "서울특별시", v.City("서울"))
	assert.Equal(t, "강릉", v.Province("강릉"))
	assert.Len(t, v.Queries("제주도"), 20)
	assert.Nil(t, v.Queries("강릉"))
	assert.Equal(t, []string{"제주도", "서울", "부산", "경주"}, v.Names())

	r, ok := v.Region("부산")
	require.True(t, ok)
	assert.Equal(t, "부산광역시", r.Province)
	_, ok = v.Region("강릉")
	assert.False(t, ok)
}

func TestLoad_CustomCatalog(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "regions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`regions:
  - name: 강릉
    province: 강원특별자치도
    city: 강릉시
    keywords: [강릉]
    bounds: {min_lat: 37.6, max_lat: 37.9, min_lng: 128.7, max_lng: 129.1}
    queries: [강릉 맛집]
`), 0o644))

	v, err := Load(path, denylist.Default())
	require.NoError(t, err)
	assert.True(t, v.ValidateRegion("강릉", model.ProviderListing{Address: "강원 강릉시 창해로 14"}))
	assert.True(t, v.ValidateByCoordinates("강릉", 37.77, 128.94))
	assert.Equal(t, []string{"강릉"}, v.Names())
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("regions: []\n"), 0o644))
	_, err = Load(empty, nil)
	require.Error(t, err)
}
