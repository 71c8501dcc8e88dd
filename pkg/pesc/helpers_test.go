package pesc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.October, 19, 15, 4, 5, 0, time.UTC)

func newTestSession(t *testing.T, h http.HandlerFunc) *Session {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	sess, err := NewSession(ts.URL+"/application", ts.Client())
	require.NoError(t, err)
	sess.now = func() time.Time { return testNow }
	return sess
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func readJSONBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	assert.Equal(t, "application/json; charset=utf-8", r.Header.Get("Content-Type"))
	var body map[string]any
	assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func testAccount(sess *Session) *Account {
	return &Account{
		sess:        sess,
		ID:          "123",
		Provider:    "p1",
		ServiceType: "electricity",
	}
}
