package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Asdafers/contenitzer-sub001/internal/faults"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "test-key", "tts-test", "alloy")
}

func TestGenerateSpeechWritesFile(t *testing.T) {
	audio := []byte("fake-mp3-bytes")
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/speech", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tts-test", req["model"])
		assert.Equal(t, "alloy", req["voice"])
		assert.Equal(t, "mp3", req["response_format"])

		w.Header().Set("X-Request-Id", "oa-1")
		w.Write(audio)
	})

	dest := filepath.Join(t.TempDir(), "narration.mp3")
	file, err := c.GenerateSpeech(context.Background(), "Hello world.", dest)
	require.NoError(t, err)
	assert.Equal(t, "openai", file.Provider)
	assert.Equal(t, "oa-1", file.ProviderRequestID)

	written, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, audio, written)
}

func TestGenerateSpeechContentPolicy(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{
				"message": "input violates usage policies",
				"code":    "content_policy_violation",
			},
		})
	})

	_, err := c.GenerateSpeech(context.Background(), "x", filepath.Join(t.TempDir(), "n.mp3"))
	require.Error(t, err)
	assert.Equal(t, faults.KindContentPolicy, faults.KindOf(err))
	assert.False(t, faults.Retryable(err))
}

func TestGenerateSpeechServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.GenerateSpeech(context.Background(), "x", filepath.Join(t.TempDir(), "n.mp3"))
	require.Error(t, err)
	assert.Equal(t, faults.KindTransientProvider, faults.KindOf(err))
	assert.True(t, faults.Retryable(err))
}

func TestGenerateSpeechPlainBadRequest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "voice not recognized", "code": "invalid_value"},
		})
	})

	_, err := c.GenerateSpeech(context.Background(), "x", filepath.Join(t.TempDir(), "n.mp3"))
	require.Error(t, err)
	assert.Equal(t, faults.KindValidation, faults.KindOf(err))
}
