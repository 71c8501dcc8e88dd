package pesc

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMeter(sess *Session) *Meter {
	return &Meter{
		sess:        sess,
		AccountID:   "123",
		Provider:    "p1",
		ServiceType: "electricity",
		ID:          Identifier("42"),
		Number:      Identifier(`"0112233"`),
	}
}

func TestMeter(t *testing.T) {
	ctx := context.Background()

	t.Run("Info", func(t *testing.T) {
		sess := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/application/accounts/p1/meters/42" && r.Method == "GET" {
				writeJSON(w, map[string]any{"meterId": 42, "scales": []string{"DAY", "NIGHT"}})
				return
			}
			http.Error(w, "not found: "+r.URL.Path, 404)
		})
		m := testMeter(sess)

		first, err := m.Info(ctx)
		require.NoError(t, err)
		assert.JSONEq(t, `{"meterId":42,"scales":["DAY","NIGHT"]}`, string(first))

		second, err := m.Info(ctx)
		require.NoError(t, err)
		assert.JSONEq(t, string(first), string(second))
	})

	t.Run("Info Missing Id", func(t *testing.T) {
		var requests int
		sess := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
			requests++
			writeJSON(w, []map[string]any{{"meterId": 1}})
		})
		m := testMeter(sess)
		m.ID = nil

		res, err := m.Info(ctx)
		assert.ErrorIs(t, err, ErrMissingField)
		assert.Nil(t, res)
		assert.Equal(t, 0, requests, "the meter list endpoint must not be hit")
	})

	t.Run("Info Escaped Id", func(t *testing.T) {
		sess := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/application/accounts/p1/meters/m%2F7", r.URL.EscapedPath())
			writeJSON(w, map[string]any{})
		})
		m := testMeter(sess)
		m.ID = Identifier(`"m/7"`)

		_, err := m.Info(ctx)
		require.NoError(t, err)
	})

	t.Run("Dot Provider", func(t *testing.T) {
		var requests int
		sess := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
			requests++
			writeJSON(w, map[string]any{})
		})
		m := testMeter(sess)
		m.Provider = ".."

		_, err := m.Info(ctx)
		assert.ErrorIs(t, err, ErrInvalidPathSegment)
		_, err = m.Indications(ctx, DateRange{})
		assert.ErrorIs(t, err, ErrInvalidPathSegment)
		_, err = m.PostIndication(ctx, Indication{Day: 1})
		assert.ErrorIs(t, err, ErrInvalidPathSegment)
		assert.Equal(t, 0, requests)
	})

	t.Run("Indications", func(t *testing.T) {
		sess := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/application/accounts/p1/indications" && r.Method == "POST" {
				body := readJSONBody(t, r)
				assert.Equal(t, map[string]any{
					"meterId":  float64(42),
					"dateFrom": "01-01-2026",
					"dateTo":   "19-10-2026",
				}, body)
				writeJSON(w, []map[string]any{{"scale": "DAY", "value": 1200}})
				return
			}
			http.Error(w, "not found: "+r.URL.Path, 404)
		})
		m := testMeter(sess)

		res, err := m.Indications(ctx, DateRange{})
		require.NoError(t, err)
		assert.JSONEq(t, `[{"scale":"DAY","value":1200}]`, string(res))
	})

	t.Run("Indications Range", func(t *testing.T) {
		sess := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
			body := readJSONBody(t, r)
			assert.Equal(t, "15-03-2026", body["dateFrom"])
			assert.Equal(t, "19-10-2026", body["dateTo"])
			writeJSON(w, []any{})
		})
		m := testMeter(sess)

		_, err := m.Indications(ctx, DateRange{From: time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)})
		require.NoError(t, err)
	})

	t.Run("PostIndication", func(t *testing.T) {
		sess := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/application/accounts/p1/indication/new" && r.Method == "POST" {
				body := readJSONBody(t, r)
				assert.Equal(t, map[string]any{
					"account":     map[string]any{"accountNumber": "123"},
					"serviceType": "electricity",
					"meterId":     float64(42),
					"indication": []any{
						map[string]any{"scale": "DAY", "value": float64(100)},
						map[string]any{"scale": "NIGHT", "value": float64(50)},
					},
				}, body)
				writeJSON(w, map[string]any{"success": true})
				return
			}
			http.Error(w, "not found: "+r.URL.Path, 404)
		})
		m := testMeter(sess)

		res, err := m.PostIndication(ctx, Indication{Day: 100, Night: 50})
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":true}`, string(res))
	})

	t.Run("PostIndication Default Night", func(t *testing.T) {
		sess := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
			body := readJSONBody(t, r)
			ind, ok := body["indication"].([]any)
			if assert.True(t, ok) && assert.Len(t, ind, 2) {
				assert.Equal(t, map[string]any{"scale": "NIGHT", "value": float64(0)}, ind[1])
			}
			writeJSON(w, map[string]any{"success": true})
		})
		m := testMeter(sess)

		_, err := m.PostIndication(ctx, Indication{Day: 7})
		require.NoError(t, err)
	})

	t.Run("PostIndication Rejected", func(t *testing.T) {
		sess := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{
				"errors": []map[string]any{{"code": 41, "message": "indication is lower than the previous one"}},
			})
		})
		m := testMeter(sess)

		_, err := m.PostIndication(ctx, Indication{Day: 1, Night: 1})
		var re *ResponseError
		require.ErrorAs(t, err, &re)
		assert.True(t, re.HasCode(41))
	})
}

func TestIdentifier(t *testing.T) {
	var v struct {
		A Identifier `json:"a"`
		B Identifier `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 42, "b": "0042"}`), &v))
	assert.Equal(t, "42", v.A.String())
	assert.Equal(t, "0042", v.B.String())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":42,"b":"0042"}`, string(out))

	var empty struct {
		ID Identifier `json:"id"`
	}
	out, err = json.Marshal(empty)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":null}`, string(out))
	assert.True(t, empty.ID.IsZero())
	assert.True(t, Identifier("null").IsZero())
	assert.False(t, v.A.IsZero())
}
