package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreNormalizes(t *testing.T) {
	store := NewStore([]Exchange{
		{
			Method: "get",
			URL:    "https://api.example.com/users/123?page=2&sort=asc",
			RequestHeaders: map[string]string{
				"Content-Type":  "application/json",
				"Authorization": "Bearer abc",
			},
		},
	})

	require.Equal(t, 1, store.Len())
	ex := store.At(0)
	assert.Equal(t, "GET", ex.Method)
	assert.Equal(t, "/users/123", ex.Path())
	assert.Equal(t, "2", ex.Query().Get("page"))
	assert.Equal(t, "asc", ex.Query().Get("sort"))
	assert.Equal(t, "application/json", ex.RequestHeaders["content-type"])
	assert.Equal(t, "Bearer abc", ex.RequestHeaders["authorization"])
}

func TestStoreByMethod(t *testing.T) {
	store := NewStore([]Exchange{
		{Method: "GET", URL: "https://x/a"},
		{Method: "POST", URL: "https://x/b"},
		{Method: "GET", URL: "https://x/c"},
	})

	assert.Equal(t, []int{0, 2}, store.ByMethod("GET"))
	assert.Equal(t, []int{1}, store.ByMethod("post"))
	assert.Nil(t, store.ByMethod("DELETE"))
}

func TestStoreAtOutOfRange(t *testing.T) {
	store := NewStore(nil)
	assert.Nil(t, store.At(0))
	assert.Nil(t, store.At(-1))
}

func TestLoadBytesSessionLog(t *testing.T) {
	data := []byte(`{
		"session": "checkout-flow",
		"requests": [
			{
				"method": "GET",
				"url": "https://api.example.com/users/123",
				"req_headers": {"Accept": "application/json"},
				"status": 200,
				"resp_headers": {"Content-Type": "application/json"},
				"resp_body": "{\"id\":123,\"name\":\"John\"}",
				"duration_ms": 42.5,
				"timestamp": "2025-11-02T10:00:00Z"
			}
		]
	}`)

	store, err := LoadBytes(data)
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	ex := store.At(0)
	assert.Equal(t, 200, ex.Status)
	assert.Equal(t, `{"id":123,"name":"John"}`, ex.ResponseBody)
	assert.InDelta(t, 42.5, float64(ex.Duration.Microseconds())/1000, 0.01)
	assert.Equal(t, 2025, ex.Timestamp.Year())
}

func TestLoadBytesBareArray(t *testing.T) {
	data := []byte(`[{"method":"POST","url":"https://x/orders","status":201}]`)
	store, err := LoadBytes(data)
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())
	assert.Equal(t, "POST", store.At(0).Method)
}

func TestLoadBytesEmpty(t *testing.T) {
	_, err := LoadBytes([]byte("   "))
	assert.Error(t, err)
}

func TestExportRoundTrip(t *testing.T) {
	original := []Exchange{
		{Method: "GET", URL: "https://x/a?k=v", Status: 200, ResponseBody: "ok"},
	}
	data, err := ExportSessionLog("export-test", original)
	require.NoError(t, err)

	store, err := LoadBytes(data)
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())
	assert.Equal(t, "ok", store.At(0).ResponseBody)
	assert.Equal(t, "/a", store.At(0).Path())
}
