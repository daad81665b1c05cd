package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/anuvad/internal/tutor"
)

const testLearner = "rina"

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return New(ts.URL+"/", WithTimeout(2*time.Second))
}

func TestGenerateSendsJSON(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/generate-sentence", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, testLearner, body["learnerId"])
		assert.EqualValues(t, 25, body["level"])

		_, _ = io.WriteString(w, `{"sentence":"আমি বই পড়ি।","trackingCode":"abc","progress":4,"sentenceType":"declarative","topic":"books"}`)
	})

	res, err := c.Generate(context.Background(), testLearner, 25)
	require.NoError(t, err)
	assert.Equal(t, "আমি বই পড়ি।", res.Sentence)
	assert.Equal(t, "abc", res.TrackingCode)
	assert.Equal(t, 4, res.Progress)
}

func TestEvaluateAndProgress(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/evaluate-translation":
			_, _ = io.WriteString(w, `{"learnerId":"rina","status":"incorrect","message":"","errors":[{"category":"tense","detail":"read vs reads"}],
"why":{"incorrect_reason":"কাল ভুল","correction_explanation":"reads"},"correctTranslation":"She reads a book.","progress":3,"weaknesses":{"tense":1}}`)
		case "/progress-report":
			_, _ = io.WriteString(w, `{"learnerId":"rina","progress":3,"weaknesses":{"tense":1},"attemptLog":[],"sentenceTypeUsage":{"declarative":2}}`)
		default:
			http.NotFound(w, r)
		}
	})

	ev, err := c.Evaluate(context.Background(), "abc", "She read a book.")
	require.NoError(t, err)
	assert.Equal(t, "incorrect", ev.Status)
	require.Len(t, ev.Errors, 1)
	assert.Equal(t, "tense", ev.Errors[0].Category)
	assert.Equal(t, 1, ev.Weaknesses["tense"])

	rep, err := c.Progress(context.Background(), testLearner)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Progress)
	assert.Equal(t, 2, rep.TypeUsage["declarative"])
}

func TestAPIErrorDecoding(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"kind":"NotFoundError","message":"tracking code \"x\" is invalid or expired","retryable":false}}`)
	})

	_, err := c.Evaluate(context.Background(), "x", "anything")
	require.Error(t, err)

	var ae *APIError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, http.StatusBadRequest, ae.Status)
	assert.Equal(t, "NotFoundError", ae.Kind)
	assert.False(t, ae.Retryable)
	assert.True(t, IsKind(err, tutor.KindNotFound))
	assert.Contains(t, err.Error(), "HTTP 400")
}

func TestNonJSONError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Chat(context.Background(), testLearner, "hello")
	var ae *APIError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, http.StatusBadGateway, ae.Status)
	assert.Empty(t, ae.Kind)
	assert.True(t, ae.Retryable)
	assert.Equal(t, "Bad Gateway", ae.Message)
}

func TestHealthUsesGet(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = io.WriteString(w, `{"status":"alive","version":"v1.4.0"}`)
	})

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alive", h.Status)
	assert.Equal(t, "v1.4.0", h.Version)
}

func TestCheckCompatible(t *testing.T) {
	tests := []struct {
		client, server string
		ok             bool
	}{
		{"v1.2.0", "v1.9.3", true},
		{"1.2.0", "v1.0.0", true},
		{"v1.2.0", "v2.0.0", false},
		{"v0.3.1", "v0.4.0", true},
		{"(devel)", "v3.0.0", true},
		{"v1.0.0", "", true},
	}
	for _, tt := range tests {
		err := CheckCompatible(tt.client, tt.server)
		if tt.ok {
			assert.NoError(t, err, "%s vs %s", tt.client, tt.server)
		} else {
			assert.ErrorIs(t, err, ErrIncompatible, "%s vs %s", tt.client, tt.server)
		}
	}
}
