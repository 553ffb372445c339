// Package mocks provides test doubles for the naver client.
package mocks

import (
	"context"

	naver "github.com/sells-group/matjip/pkg/naver"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client type.
type MockClient struct {
	mock.Mock
}

// LocalSearch provides a mock function with given fields: ctx, req
func (_m *MockClient) LocalSearch(ctx context.Context, req naver.SearchRequest) (*naver.LocalResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for LocalSearch")
	}

	var r0 *naver.LocalResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, naver.SearchRequest) (*naver.LocalResponse, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, naver.SearchRequest) *naver.LocalResponse); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*naver.LocalResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, naver.SearchRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// BlogSearch provides a mock function with given fields: ctx, req
func (_m *MockClient) BlogSearch(ctx context.Context, req naver.SearchRequest) (*naver.BlogResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for BlogSearch")
	}

	var r0 *naver.BlogResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, naver.SearchRequest) (*naver.BlogResponse, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, naver.SearchRequest) *naver.BlogResponse); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*naver.BlogResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, naver.SearchRequest) error); ok {
		r1 = rf(ctx, req)
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
