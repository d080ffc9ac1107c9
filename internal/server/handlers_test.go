package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeBody(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestListBooks(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doGet(t, srv, "/v1/books")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec.Body.Bytes())
	books := body["books"].([]any)
	require.Len(t, books, 6)

	first := books[0].(map[string]any)
	assert.Equal(t, "159059725", first["isbn"])
	assert.Equal(t, float64(2), first["num_authors"])

	last := books[5].(map[string]any)
	assert.Equal(t, "155860191", last["isbn"])
	assert.Equal(t, float64(1), last["num_authors"])
}

func TestListBooksMinRating(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doGet(t, srv, "/v1/books?min_rating=4.5")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec.Body.Bytes())
	books := body["books"].([]any)
	require.Len(t, books, 2)
	assert.Equal(t, float64(4.5), books[0].(map[string]any)["rating"])
	assert.Equal(t, float64(5), books[1].(map[string]any)["rating"])
}

func TestListBooksBadRating(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doGet(t, srv, "/v1/books?min_rating=very")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetBook(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doGet(t, srv, "/v1/books/2")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec.Body.Bytes())
	assert.Equal(t, "Sams Teach Yourself Django in 24 Hours", body["title"])
	assert.Equal(t, "Sams", body["publisher"])
	assert.Equal(t, float64(528), body["pages"])
}

func TestGetBookNotFound(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doGet(t, srv, "/v1/books/99")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")
}

func TestGetBookBadID(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doGet(t, srv, "/v1/books/abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookStats(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doGet(t, srv, "/v1/books/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec.Body.Bytes())
	assert.Equal(t, float64(6), body["count"])
	assert.Equal(t, float64(3703), body["total_pages"])
	assert.InDelta(t, 4.0, body["avg_rating"].(float64), 0.001)
}

func TestListPublishers(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doGet(t, srv, "/v1/publishers")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec.Body.Bytes())
	pubs := body["publishers"].([]any)
	require.Len(t, pubs, 4)
	assert.Equal(t, "Apress", pubs[0].(map[string]any)["name"])
	assert.Equal(t, "Sams", pubs[3].(map[string]any)["name"])
}
