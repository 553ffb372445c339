// Package mocks provides test doubles for the provider contracts.
package mocks

import (
	"context"

	model "github.com/sells-group/matjip/internal/model"
	provider "github.com/sells-group/matjip/internal/provider"
	mock "github.com/stretchr/testify/mock"
)

// MockTextSource is a mock type for the TextSource type.
type MockTextSource struct {
	mock.Mock
}

// Search provides a mock function with given fields: ctx, query, pageToken
func (_m *MockTextSource) Search(ctx context.Context, query string, pageToken string) (provider.TextPage, error) {
	ret := _m.Called(ctx, query, pageToken)

	if len(ret) == 0 {
		panic("no return value specified for Search")
	}

	var r0 provider.TextPage
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string) (provider.TextPage, error)); ok {
		return rf(ctx, query, pageToken)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, string) provider.TextPage); ok {
		r0 = rf(ctx, query, pageToken)
	} else {
		r0 = ret.Get(0).(provider.TextPage)
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, string) error); ok {
		r1 = rf(ctx, query, pageToken)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockTextSource creates a new instance of MockTextSource. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockTextSource(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTextSource {
	m := &MockTextSource{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// MockListingSearchProvider is a mock type for the ListingSearchProvider type.
type MockListingSearchProvider struct {
	mock.Mock
}

// Provider provides a mock function with given fields:
func (_m *MockListingSearchProvider) Provider() model.Provider {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Provider")
	}

	var r0 model.Provider
	if rf, ok := ret.Get(0).(func() model.Provider); ok {
		r0 = rf()
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(model.Provider)
		}
	}

	return r0
}

// SearchListings provides a mock function with given fields: ctx, query, q
func (_m *MockListingSearchProvider) SearchListings(ctx context.Context, query string, q provider.ListingQuery) ([]model.ProviderListing, error) {
	ret := _m.Called(ctx, query, q)

	if len(ret) == 0 {
		panic("no return value specified for SearchListings")
	}

	var r0 []model.ProviderListing
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, provider.ListingQuery) ([]model.ProviderListing, error)); ok {
		return rf(ctx, query, q)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, provider.ListingQuery) []model.ProviderListing); ok {
		r0 = rf(ctx, query, q)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.ProviderListing)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, provider.ListingQuery) error); ok {
		r1 = rf(ctx, query, q)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockListingSearchProvider creates a new instance of MockListingSearchProvider. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockListingSearchProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockListingSearchProvider {
	m := &MockListingSearchProvider{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// MockDetailProvider is a mock type for the DetailProvider type.
type MockDetailProvider struct {
	mock.Mock
}

// LookupDetail provides a mock function with given fields: ctx, q
func (_m *MockDetailProvider) LookupDetail(ctx context.Context, q provider.DetailQuery) (*model.DetailRecord, error) {
	ret := _m.Called(ctx, q)

	if len(ret) == 0 {
		panic("no return value specified for LookupDetail")
	}

	var r0 *model.DetailRecord
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, provider.DetailQuery) (*model.DetailRecord, error)); ok {
		return rf(ctx, q)
	}
	if rf, ok := ret.Get(0).(func(context.Context, provider.DetailQuery) *model.DetailRecord); ok {
		r0 = rf(ctx, q)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.DetailRecord)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, provider.DetailQuery) error); ok {
		r1 = rf(ctx, q)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// PhotoURL provides a mock function with given fields: ref, maxWidth
func (_m *MockDetailProvider) PhotoURL(ref string, maxWidth int) string {
	ret := _m.Called(ref, maxWidth)

	if len(ret) == 0 {
		panic("no return value specified for PhotoURL")
	}

	var r0 string
	if rf, ok := ret.Get(0).(func(string, int) string); ok {
		r0 = rf(ref, maxWidth)
	} else {
		r0 = ret.Get(0).(string)
	}

	return r0
}

// NewMockDetailProvider creates a new instance of MockDetailProvider. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockDetailProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockDetailProvider {
	m := &MockDetailProvider{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// MockImageSearchProvider is a mock type for the ImageSearchProvider type.
type MockImageSearchProvider struct {
	mock.Mock
}

// SearchImages provides a mock function with given fields: ctx, query, n
func (_m *MockImageSearchProvider) SearchImages(ctx context.Context, query string, n int) ([]model.ImageRef, error) {
	ret := _m.Called(ctx, query, n)

	if len(ret) == 0 {
		panic("no return value specified for SearchImages")
	}

	var r0 []model.ImageRef
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, int) ([]model.ImageRef, error)); ok {
		return rf(ctx, query, n)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, int) []model.ImageRef); ok {
		r0 = rf(ctx, query, n)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.ImageRef)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, int) error); ok {
		r1 = rf(ctx, query, n)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockImageSearchProvider creates a new instance of MockImageSearchProvider. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockImageSearchProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockImageSearchProvider {
	m := &MockImageSearchProvider{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// MockArticleSearchProvider is a mock type for the ArticleSearchProvider type.
type MockArticleSearchProvider struct {
	mock.Mock
}

// SearchArticles provides a mock function with given fields: ctx, query, n
func (_m *MockArticleSearchProvider) SearchArticles(ctx context.Context, query string, n int) ([]model.Article, error) {
	ret := _m.Called(ctx, query, n)

	if len(ret) == 0 {
		panic("no return value specified for SearchArticles")
	}

	var r0 []model.Article
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, int) ([]model.Article, error)); ok {
		return rf(ctx, query, n)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, int) []model.Article); ok {
		r0 = rf(ctx, query, n)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.Article)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, int) error); ok {
		r1 = rf(ctx, query, n)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockArticleSearchProvider creates a new instance of MockArticleSearchProvider. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockArticleSearchProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockArticleSearchProvider {
	m := &MockArticleSearchProvider{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
