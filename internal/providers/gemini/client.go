// Package gemini is the HTTP client for Google's Generative Language API.
// It covers the two calls the pipeline needs: still-image generation for
// scenes and script text generation from a topic.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Asdafers/contenitzer-sub001/internal/faults"
	"github.com/Asdafers/contenitzer-sub001/internal/providers"
	"github.com/Asdafers/contenitzer-sub001/models"
)

const providerName = "gemini"

// Client calls the Generative Language REST API.
type Client struct {
	baseURL    string
	apiKey     string
	imageModel string
	textModel  string
	httpClient *http.Client
}

// New creates a Gemini client. The http.Client carries no timeout of its
// own; every call runs under the per-stage context deadline the executor
// sets.
func New(baseURL, apiKey, imageModel, textModel string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		imageModel: imageModel,
		textModel:  textModel,
		httpClient: &http.Client{},
	}
}

type predictRequest struct {
	Instances []struct {
		Prompt string `json:"prompt"`
	} `json:"instances"`
	Parameters struct {
		SampleCount int    `json:"sampleCount"`
		AspectRatio string `json:"aspectRatio,omitempty"`
	} `json:"parameters"`
}

type predictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
		RaiFilteredReason  string `json:"raiFilteredReason"`
	} `json:"predictions"`
}

// GenerateImage renders one image for the prompt and writes it to destPath.
func (c *Client) GenerateImage(ctx context.Context, prompt, destPath string) (*providers.GeneratedFile, error) {
	reqBody := predictRequest{}
	reqBody.Instances = append(reqBody.Instances, struct {
		Prompt string `json:"prompt"`
	}{Prompt: prompt})
	reqBody.Parameters.SampleCount = 1
	reqBody.Parameters.AspectRatio = "16:9"

	url := fmt.Sprintf("%s/models/%s:predict", c.baseURL, c.imageModel)
	body, requestID, err := c.post(ctx, url, reqBody)
	if err != nil {
		return nil, err
	}

	var result predictResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, faults.Wrap(faults.KindFatalProvider, err, "gemini returned malformed image response").
			WithProvider(providerName, requestID)
	}
	if len(result.Predictions) == 0 {
		return nil, faults.New(faults.KindFatalProvider, "gemini returned no image predictions").
			WithProvider(providerName, requestID)
	}
	prediction := result.Predictions[0]
	if prediction.RaiFilteredReason != "" {
		return nil, faults.New(faults.KindContentPolicy, "gemini filtered the prompt: %s", prediction.RaiFilteredReason).
			WithProvider(providerName, requestID)
	}

	imageBytes, err := base64.StdEncoding.DecodeString(prediction.BytesBase64Encoded)
	if err != nil {
		return nil, faults.Wrap(faults.KindFatalProvider, err, "gemini image payload is not valid base64").
			WithProvider(providerName, requestID)
	}
	if err := os.WriteFile(destPath, imageBytes, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write generated image to %s: %w", destPath, err)
	}

	return &providers.GeneratedFile{
		Path:              destPath,
		Provider:          providerName,
		Model:             c.imageModel,
		ProviderRequestID: requestID,
	}, nil
}

const scriptSystemPrompt = `You write short narrated video scripts. Respond with ONLY valid JSON, no markdown fences, shaped as:
{"title": "...", "scenes": [{"narration": "1-3 spoken sentences", "image_prompt": "a detailed cinematic still-image prompt"}]}
Write 4 to 8 scenes. Keep total narration under 2 minutes at a natural speaking pace.`

type generateContentRequest struct {
	SystemInstruction *content  `json:"system_instruction,omitempty"`
	Contents          []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// GenerateScript asks the text model for a scene-structured script on the
// given topic.
func (c *Client) GenerateScript(ctx context.Context, topic string) (*models.Script, error) {
	reqBody := generateContentRequest{
		SystemInstruction: &content{Parts: []part{{Text: scriptSystemPrompt}}},
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: fmt.Sprintf("Write a video script about: %s", topic)}},
		}},
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.textModel)
	body, requestID, err := c.post(ctx, url, reqBody)
	if err != nil {
		return nil, err
	}

	var result generateContentResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, faults.Wrap(faults.KindFatalProvider, err, "gemini returned malformed text response").
			WithProvider(providerName, requestID)
	}
	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return nil, faults.New(faults.KindContentPolicy, "gemini blocked the prompt: %s", result.PromptFeedback.BlockReason).
			WithProvider(providerName, requestID)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, faults.New(faults.KindFatalProvider, "gemini returned no script candidates").
			WithProvider(providerName, requestID)
	}
	if reason := result.Candidates[0].FinishReason; reason == "SAFETY" || reason == "PROHIBITED_CONTENT" {
		return nil, faults.New(faults.KindContentPolicy, "gemini stopped generation: %s", reason).
			WithProvider(providerName, requestID)
	}

	raw := stripFences(result.Candidates[0].Content.Parts[0].Text)
	var parsed struct {
		Title  string `json:"title"`
		Scenes []struct {
			Narration   string `json:"narration"`
			ImagePrompt string `json:"image_prompt"`
		} `json:"scenes"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, faults.Wrap(faults.KindFatalProvider, err, "gemini script output is not the expected JSON").
			WithProvider(providerName, requestID)
	}
	if parsed.Title == "" || len(parsed.Scenes) == 0 {
		return nil, faults.New(faults.KindFatalProvider, "gemini script output is missing title or scenes").
			WithProvider(providerName, requestID)
	}

	script := &models.Script{
		ID:        uuid.New(),
		Title:     parsed.Title,
		Topic:     &topic,
		CreatedAt: time.Now().UTC(),
	}
	for _, s := range parsed.Scenes {
		script.Scenes = append(script.Scenes, models.Scene{
			Narration:   s.Narration,
			ImagePrompt: s.ImagePrompt,
		})
	}
	return script, nil
}

// post sends the request and handles status classification. It returns the
// response body and the provider's request id when one was supplied.
func (c *Client) post(ctx context.Context, url string, payload interface{}) ([]byte, string, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal gemini request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", providers.ClassifyTransport(providerName, err)
	}
	defer resp.Body.Close()

	requestID := resp.Header.Get("X-Goog-Request-Id")
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, requestID, providers.ClassifyTransport(providerName, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, requestID, providers.ClassifyHTTP(providerName, resp.StatusCode, requestID, truncate(string(body), 512))
	}
	return body, requestID, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
