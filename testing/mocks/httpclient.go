package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gaborage/keyrelay/http"
)

// MockHTTPClient is a testify mock of http.Client.
type MockHTTPClient struct {
	mock.Mock
}

var _ http.Client = (*MockHTTPClient)(nil)

// Get implements http.Client.
func (m *MockHTTPClient) Get(ctx context.Context, req *http.Request) (*http.Response, error) {
	args := m.Called(ctx, req)
	return responseArg(args), args.Error(1)
}

// Post implements http.Client.
func (m *MockHTTPClient) Post(ctx context.Context, req *http.Request) (*http.Response, error) {
	args := m.Called(ctx, req)
	return responseArg(args), args.Error(1)
}

// Do implements http.Client.
func (m *MockHTTPClient) Do(ctx context.Context, method string, req *http.Request) (*http.Response, error) {
	args := m.Called(ctx, method, req)
	return responseArg(args), args.Error(1)
}

// ExpectPost answers every POST whose request matches with resp and err.
// A nil match accepts any request.
func (m *MockHTTPClient) ExpectPost(match func(*http.Request) bool, resp *http.Response, err error) *mock.Call {
	return m.On("Post", mock.Anything, requestMatcher(match)).Return(resp, err)
}

// ExpectGet answers every GET whose request matches with resp and err.
// A nil match accepts any request.
func (m *MockHTTPClient) ExpectGet(match func(*http.Request) bool, resp *http.Response, err error) *mock.Call {
	return m.On("Get", mock.Anything, requestMatcher(match)).Return(resp, err)
}

func requestMatcher(match func(*http.Request) bool) any {
	if match == nil {
		return mock.Anything
	}
	return mock.MatchedBy(match)
}

func responseArg(args mock.Arguments) *http.Response {
	resp, _ := args.Get(0).(*http.Response)
	return resp
}
