// Package mocks provides test doubles for the kakao client.
package mocks

import (
	"context"

	kakao "github.com/sells-group/matjip/pkg/kakao"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// KeywordSearch provides a mock function with given fields: ctx, req
func (_m *MockClient) KeywordSearch(ctx context.Context, req kakao.KeywordRequest) (*kakao.KeywordResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for KeywordSearch")
	}

	var r0 *kakao.KeywordResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, kakao.KeywordRequest) (*kakao.KeywordResponse, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, kakao.KeywordRequest) *kakao.KeywordResponse); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*kakao.KeywordResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, kakao.KeywordRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// ImageSearch provides a mock function with given fields: ctx, query, size
func (_m *MockClient) ImageSearch(ctx context.Context, query string, size int) (*kakao.ImageResponse, error) {
	ret := _m.Called(ctx, query, size)

	if len(ret) == 0 {
		panic("no return value specified for ImageSearch")
	}

	var r0 *kakao.ImageResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, int) (*kakao.ImageResponse, error)); ok {
		return rf(ctx, query, size)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, int) *kakao.ImageResponse); ok {
		r0 = rf(ctx, query, size)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*kakao.ImageResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, int) error); ok {
		r1 = rf(ctx, query, size)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
