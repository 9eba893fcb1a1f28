package gemini

import (
	"context"
	"encoding/base64"
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

func imageServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "test-key", "imagen-test", "gemini-test")
}

func TestGenerateImageWritesFile(t *testing.T) {
	payload := []byte("fake-png-bytes")
	c := imageServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/imagen-test:predict", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		w.Header().Set("X-Goog-Request-Id", "goog-1")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"predictions": []map[string]string{
				{"bytesBase64Encoded": base64.StdEncoding.EncodeToString(payload), "mimeType": "image/png"},
			},
		})
	})

	dest := filepath.Join(t.TempDir(), "scene.png")
	file, err := c.GenerateImage(context.Background(), "a sunrise", dest)
	require.NoError(t, err)
	assert.Equal(t, dest, file.Path)
	assert.Equal(t, "gemini", file.Provider)
	assert.Equal(t, "goog-1", file.ProviderRequestID)

	written, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, written)
}

func TestGenerateImageFilteredPrompt(t *testing.T) {
	c := imageServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"predictions": []map[string]string{{"raiFilteredReason": "violence"}},
		})
	})

	_, err := c.GenerateImage(context.Background(), "x", filepath.Join(t.TempDir(), "s.png"))
	require.Error(t, err)
	assert.Equal(t, faults.KindContentPolicy, faults.KindOf(err))
	assert.False(t, faults.Retryable(err))
	assert.Contains(t, err.Error(), "violence")
}

func TestGenerateImageRateLimited(t *testing.T) {
	c := imageServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Goog-Request-Id", "goog-2")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.GenerateImage(context.Background(), "x", filepath.Join(t.TempDir(), "s.png"))
	require.Error(t, err)
	assert.Equal(t, faults.KindTransientProvider, faults.KindOf(err))
	assert.True(t, faults.Retryable(err))

	var fe *faults.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "goog-2", fe.ProviderRequestID)
}

func TestGenerateImageEmptyResponse(t *testing.T) {
	c := imageServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"predictions": []interface{}{}})
	})

	_, err := c.GenerateImage(context.Background(), "x", filepath.Join(t.TempDir(), "s.png"))
	require.Error(t, err)
	assert.Equal(t, faults.KindFatalProvider, faults.KindOf(err))
}

func scriptResponse(text string) map[string]interface{} {
	return map[string]interface{}{
		"candidates": []map[string]interface{}{
			{
				"content":      map[string]interface{}{"parts": []map[string]string{{"text": text}}},
				"finishReason": "STOP",
			},
		},
	}
}

func TestGenerateScriptStripsFences(t *testing.T) {
	script := `{"title":"Ocean Life","scenes":[{"narration":"The sea.","image_prompt":"a reef"},{"narration":"Deep down.","image_prompt":"an abyss"}]}`
	c := imageServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		json.NewEncoder(w).Encode(scriptResponse("```json\n" + script + "\n```"))
	})

	got, err := c.GenerateScript(context.Background(), "ocean life")
	require.NoError(t, err)
	assert.Equal(t, "Ocean Life", got.Title)
	require.NotNil(t, got.Topic)
	assert.Equal(t, "ocean life", *got.Topic)
	require.Len(t, got.Scenes, 2)
	assert.Equal(t, "a reef", got.Scenes[0].ImagePrompt)
}

func TestGenerateScriptBlockedPrompt(t *testing.T) {
	c := imageServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"promptFeedback": map[string]string{"blockReason": "SAFETY"},
		})
	})

	_, err := c.GenerateScript(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, faults.KindContentPolicy, faults.KindOf(err))
}

func TestGenerateScriptSafetyStop(t *testing.T) {
	c := imageServer(t, func(w http.ResponseWriter, r *http.Request) {
		resp := scriptResponse("partial")
		resp["candidates"].([]map[string]interface{})[0]["finishReason"] = "SAFETY"
		json.NewEncoder(w).Encode(resp)
	})

	_, err := c.GenerateScript(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, faults.KindContentPolicy, faults.KindOf(err))
}

func TestGenerateScriptMalformedJSON(t *testing.T) {
	c := imageServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(scriptResponse("Sure! Here is your script: ..."))
	})

	_, err := c.GenerateScript(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, faults.KindFatalProvider, faults.KindOf(err))
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
}
