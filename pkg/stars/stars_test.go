package stars_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/star-sizes/internal/testutil"
	"github.com/Sternrassler/star-sizes/pkg/client"
	"github.com/Sternrassler/star-sizes/pkg/pagination"
	"github.com/Sternrassler/star-sizes/pkg/stars"
)

func newClient(t *testing.T, baseURL string) *client.Client {
	t.Helper()

	cfg := client.DefaultConfig("test-token", "TestApp/1.0.0")
	cfg.BaseURL = baseURL
	cfg.Timeout = 5 * time.Second

	c, err := client.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestDecodePage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []stars.Record
	}{
		{
			name: "kilobytes converted to bytes",
			body: `[{"full_name":"octocat/hello","size":5}]`,
			want: []stars.Record{{Name: "octocat/hello", SizeBytes: 5120}},
		},
		{
			name: "null size is zero",
			body: `[{"full_name":"octocat/null","size":null}]`,
			want: []stars.Record{{Name: "octocat/null", SizeBytes: 0}},
		},
		{
			name: "missing size is zero",
			body: `[{"full_name":"octocat/missing","id":1}]`,
			want: []stars.Record{{Name: "octocat/missing", SizeBytes: 0}},
		},
		{
			name: "negative size clamped",
			body: `[{"full_name":"octocat/odd","size":-3}]`,
			want: []stars.Record{{Name: "octocat/odd", SizeBytes: 0}},
		},
		{
			name: "order preserved",
			body: `[{"full_name":"a/a","size":1},{"full_name":"b/b","size":2}]`,
			want: []stars.Record{{Name: "a/a", SizeBytes: 1024}, {Name: "b/b", SizeBytes: 2048}},
		},
		{
			name: "empty page",
			body: `[]`,
			want: []stars.Record{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := stars.DecodePage([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodePage_NotAnArray(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"object", `{"message":"Not Found"}`},
		{"null", `null`},
		{"null with whitespace", " null\n"},
		{"empty body", ``},
		{"string", `"repos"`},
		{"number", `42`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := stars.DecodePage([]byte(tt.body))

			var decodeErr *stars.DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.ErrorIs(t, err, stars.ErrNotAnArray)
			assert.Contains(t, err.Error(), "decode repositories")
			assert.Nil(t, records)
		})
	}
}

func TestDecodePage_EmptyArray(t *testing.T) {
	records, err := stars.DecodePage([]byte(" []\n"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "/user/starred", stars.Endpoint(""))
	assert.Equal(t, "/users/octocat/starred", stars.Endpoint("octocat"))
	assert.Equal(t, "/users/a%2Fb/starred", stars.Endpoint("a/b"))
}

func TestFetchAll_Pagination(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetPages("/user/starred",
		testutil.NewPageResponse(
			testutil.Repo{FullName: "a/one", Size: testutil.Size(1)},
			testutil.Repo{FullName: "a/two", Size: testutil.Size(2)},
		),
		testutil.NewPageResponse(
			testutil.Repo{FullName: "b/three", Size: nil},
		),
		testutil.NewPageResponse(),
		testutil.NewPageResponse(testutil.Repo{FullName: "never/fetched", Size: testutil.Size(9)}),
	)

	records, err := stars.FetchAll(context.Background(), newClient(t, mock.URL()), "/user/starred", 2)
	require.NoError(t, err)

	assert.Equal(t, []stars.Record{
		{Name: "a/one", SizeBytes: 1024},
		{Name: "a/two", SizeBytes: 2048},
		{Name: "b/three", SizeBytes: 0},
	}, records)
	assert.Equal(t, []int{1, 2, 3}, mock.GetRequestedPages())
	assert.Equal(t, "2", mock.LastQuery["per_page"])
}

func TestFetchAll_EmptyCollection(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetPages("/users/octocat/starred", testutil.NewPageResponse())

	records, err := stars.FetchAll(context.Background(), newClient(t, mock.URL()), stars.Endpoint("octocat"), 100)
	require.NoError(t, err)

	assert.Empty(t, records)
	assert.Equal(t, []int{1}, mock.GetRequestedPages())
}

func TestFetchAll_FailsOnRateLimit(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetPages("/user/starred",
		testutil.NewPageResponse(testutil.Repo{FullName: "a/one", Size: testutil.Size(1)}),
		testutil.NewRateLimitResponse(),
	)

	records, err := stars.FetchAll(context.Background(), newClient(t, mock.URL()), "/user/starred", 100)
	require.Error(t, err)
	assert.Nil(t, records, "records from earlier pages are discarded")

	var pageErr *pagination.PageError
	require.ErrorAs(t, err, &pageErr)
	assert.Equal(t, 2, pageErr.Page)

	var httpErr *client.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 403, httpErr.StatusCode)
	assert.Equal(t, client.ErrorClassRateLimit, httpErr.Class)
	assert.JSONEq(t, `{"message":"API rate limit exceeded"}`, string(httpErr.Body))

	assert.Equal(t, []int{1, 2}, mock.GetRequestedPages(), "no retry and no further pages")
}

func TestFetchAll_TransportError(t *testing.T) {
	mock := testutil.NewMockGitHub()
	url := mock.URL()
	mock.Close()

	_, err := stars.FetchAll(context.Background(), newClient(t, url), "/user/starred", 100)

	var transportErr *client.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, client.StatusUnreachable, transportErr.Status())
}

func TestFetchAll_DecodeError(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetPages("/user/starred", testutil.MockResponse{StatusCode: 200, Body: `{"unexpected":true}`})

	_, err := stars.FetchAll(context.Background(), newClient(t, mock.URL()), "/user/starred", 100)

	var decodeErr *stars.DecodeError
	require.ErrorAs(t, err, &decodeErr)

	var httpErr *client.HTTPError
	assert.False(t, errors.As(err, &httpErr))
}

func TestFetchAll_NullBody(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetPages("/user/starred",
		testutil.NewPageResponse(testutil.Repo{FullName: "a/a", Size: testutil.Size(1)}),
		testutil.MockResponse{StatusCode: 200, Body: `null`},
	)

	records, err := stars.FetchAll(context.Background(), newClient(t, mock.URL()), "/user/starred", 100)

	var pageErr *pagination.PageError
	require.ErrorAs(t, err, &pageErr)
	assert.Equal(t, 2, pageErr.Page)
	assert.ErrorIs(t, err, stars.ErrNotAnArray)
	assert.Nil(t, records)
	assert.Equal(t, []int{1, 2}, mock.GetRequestedPages())
}

func TestFetchAll_InvalidPageSize(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()

	_, err := stars.FetchAll(context.Background(), newClient(t, mock.URL()), "/user/starred", 101)
	require.Error(t, err)
	assert.Zero(t, mock.GetRequestCount())
}
