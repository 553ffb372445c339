// Package mocks provides test doubles for the youtube client.
package mocks

import (
	"context"

	youtube "github.com/sells-group/matjip/pkg/youtube"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client type.
type MockClient struct {
	mock.Mock
}

// Search provides a mock function with given fields: ctx, req
func (_m *MockClient) Search(ctx context.Context, req youtube.SearchRequest) (*youtube.SearchResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for Search")
	}

	var r0 *youtube.SearchResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, youtube.SearchRequest) (*youtube.SearchResponse, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, youtube.SearchRequest) *youtube.SearchResponse); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*youtube.SearchResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, youtube.SearchRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// VideoStatistics provides a mock function with given fields: ctx, ids
func (_m *MockClient) VideoStatistics(ctx context.Context, ids []string) (map[string]youtube.Statistics, error) {
	ret := _m.Called(ctx, ids)

	if len(ret) == 0 {
		panic("no return value specified for VideoStatistics")
	}

	var r0 map[string]youtube.Statistics
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, []string) (map[string]youtube.Statistics, error)); ok {
		return rf(ctx, ids)
	}
	if rf, ok := ret.Get(0).(func(context.Context, []string) map[string]youtube.Statistics); ok {
		r0 = rf(ctx, ids)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(map[string]youtube.Statistics)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, []string) error); ok {
		r1 = rf(ctx, ids)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
