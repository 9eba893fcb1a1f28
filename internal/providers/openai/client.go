// Package openai is the HTTP client for OpenAI's speech synthesis endpoint,
// used to voice script narration into the job's audio track.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/Asdafers/contenitzer-sub001/internal/faults"
	"github.com/Asdafers/contenitzer-sub001/internal/providers"
)

const providerName = "openai"

// Client calls the OpenAI REST API.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	voice      string
	httpClient *http.Client
}

// New creates an OpenAI TTS client. Timeouts come from the caller's context.
func New(baseURL, apiKey, model, voice string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		voice:      voice,
		httpClient: &http.Client{},
	}
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// GenerateSpeech synthesizes text into an mp3 written to destPath.
func (c *Client) GenerateSpeech(ctx context.Context, text, destPath string) (*providers.GeneratedFile, error) {
	reqBody := speechRequest{
		Model:          c.model,
		Input:          text,
		Voice:          c.voice,
		ResponseFormat: "mp3",
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal speech request: %w", err)
	}

	url := c.baseURL + "/audio/speech"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create speech request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, providers.ClassifyTransport(providerName, err)
	}
	defer resp.Body.Close()

	requestID := resp.Header.Get("X-Request-Id")
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var parsed apiError
		if json.Unmarshal(body, &parsed) == nil && parsed.Error.Code == "content_policy_violation" {
			return nil, faults.New(faults.KindContentPolicy, "openai refused the input: %s", parsed.Error.Message).
				WithProvider(providerName, requestID)
		}
		return nil, providers.ClassifyHTTP(providerName, resp.StatusCode, requestID, string(body))
	}

	out, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio file %s: %w", destPath, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return nil, providers.ClassifyTransport(providerName, err)
	}

	return &providers.GeneratedFile{
		Path:              destPath,
		Provider:          providerName,
		Model:             c.model,
		ProviderRequestID: requestID,
	}, nil
}
