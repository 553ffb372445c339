package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/matjip/internal/denylist"
	"github.com/sells-group/matjip/internal/extract"
	"github.com/sells-group/matjip/internal/model"
	"github.com/sells-group/matjip/internal/provider"
	"github.com/sells-group/matjip/internal/provider/mocks"
	"github.com/sells-group/matjip/internal/resilience"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type staticQueries map[string][]string

func (s staticQueries) Queries(region string) []string { return s[region] }

func page(token string, titles ...string) provider.TextPage {
	p := provider.TextPage{NextPageToken: token}
	for _, t := range titles {
		p.Items = append(p.Items, model.TextItem{Title: t})
	}
	return p
}

func TestCollector_PaginatesAndRanks(t *testing.T) {
	text := mocks.NewMockTextSource(t)
	text.On("Search", mock.Anything, "서울 맛집", "").Return(page("p2", "#하동관", "#명동교자 #하동관"), nil)
	text.On("Search", mock.Anything, "서울 맛집", "p2").Return(page("p3", "#명동교자"), nil)
	text.On("Search", mock.Anything, "명동 맛집", "").Return(page("", "#명동교자"), nil)

	ex := extract.New(denylist.Default(), extract.WithSource("youtube"))
	c := NewCollector(text, "youtube", nil, ex,
		staticQueries{"서울": {"서울 맛집", "명동 맛집"}},
		CollectorConfig{PagesPerQuery: 2, TopN: 1})

	col, err := c.Collect(context.Background(), "서울")
	require.NoError(t, err)
	assert.Equal(t, 4, col.TextItems)
	assert.Equal(t, 2, col.Extracted)
	require.Len(t, col.Sources, 1)
	require.Len(t, col.Sources[0].Candidates, 1)
	assert.Equal(t, "명동교자", col.Sources[0].Candidates[0].Name)
	assert.Len(t, col.Sources[0].Candidates[0].Mentions, 3)
}

func TestCollector_QuotaStopsTextPass(t *testing.T) {
	text := mocks.NewMockTextSource(t)
	text.On("Search", mock.Anything, "q1", "").Return(page("", "#명동교자"), nil).Once()
	text.On("Search", mock.Anything, "q2", "").Return(provider.TextPage{}, resilience.NewQuotaError("youtube", "")).Once()

	ex := extract.New(denylist.Default())
	c := NewCollector(text, "youtube", nil, ex, staticQueries{"서울": {"q1", "q2", "q3"}}, CollectorConfig{})

	col, err := c.Collect(context.Background(), "서울")
	require.NoError(t, err)
	assert.Equal(t, 1, col.Extracted)
}

func TestCollector_FailedQueryIsSkipped(t *testing.T) {
	text := mocks.NewMockTextSource(t)
	text.On("Search", mock.Anything, "q1", "").Return(provider.TextPage{}, errors.New("boom"))
	text.On("Search", mock.Anything, "q2", "").Return(page("", "#하동관"), nil)

	c := NewCollector(text, "youtube", nil, extract.New(denylist.Default()),
		staticQueries{"서울": {"q1", "q2"}}, CollectorConfig{})

	col, err := c.Collect(context.Background(), "서울")
	require.NoError(t, err)
	require.Len(t, col.Sources[0].Candidates, 1)
	assert.Equal(t, "하동관", col.Sources[0].Candidates[0].Name)
}

func TestCollector_SecondaryNames(t *testing.T) {
	text := mocks.NewMockTextSource(t)
	text.On("Search", mock.Anything, "서울 맛집", "").Return(page(""), nil)

	secondary := mocks.NewMockListingSearchProvider(t)
	secondary.On("Provider").Return(model.ProviderNaver)
	secondary.On("SearchListings", mock.Anything, "서울 맛집", provider.ListingQuery{Size: DefaultSecondarySize}).
		Return([]model.ProviderListing{
			{Name: "하동관"},
			{Name: "하동관"},
			{Name: "맛집"},
		}, nil)

	c := NewCollector(text, "youtube", secondary, extract.New(denylist.Default()),
		staticQueries{"서울": {"서울 맛집"}}, CollectorConfig{})

	col, err := c.Collect(context.Background(), "서울")
	require.NoError(t, err)
	require.Len(t, col.Sources, 2)
	assert.Equal(t, "naver", col.Sources[1].Source)
	require.Len(t, col.Sources[1].Candidates, 1)
	assert.Equal(t, "하동관", col.Sources[1].Candidates[0].Name)
}

func TestCollector_UnknownRegion(t *testing.T) {
	c := NewCollector(mocks.NewMockTextSource(t), "youtube", nil, extract.New(denylist.Default()), staticQueries{}, CollectorConfig{})
	_, err := c.Collect(context.Background(), "화성")
	assert.Error(t, err)
}

func TestCollector_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewCollector(mocks.NewMockTextSource(t), "youtube", nil, extract.New(denylist.Default()),
		staticQueries{"서울": {"q"}}, CollectorConfig{})
	_, err := c.Collect(ctx, "서울")
	assert.ErrorIs(t, err, context.Canceled)
}
