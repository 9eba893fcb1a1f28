// Package providers defines the interfaces the pipeline uses to talk to
// external AI and rendering collaborators. Handlers and the executor only
// depend on these interfaces; tests inject fakes instead of branching on
// sentinel API keys.
package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Asdafers/contenitzer-sub001/internal/faults"
	"github.com/Asdafers/contenitzer-sub001/models"
)

// GeneratedFile describes a file a provider produced, with enough metadata
// to reconstruct the call that made it.
type GeneratedFile struct {
	Path              string
	DurationSec       float64 // Audio only; zero for images
	Provider          string
	Model             string
	ProviderRequestID string
}

// ImageService generates one still image per call.
type ImageService interface {
	GenerateImage(ctx context.Context, prompt, destPath string) (*GeneratedFile, error)
}

// AudioService voices narration text into one audio file per call.
type AudioService interface {
	GenerateSpeech(ctx context.Context, text, destPath string) (*GeneratedFile, error)
}

// ScriptService writes a scene-structured script for a topic.
type ScriptService interface {
	GenerateScript(ctx context.Context, topic string) (*models.Script, error)
}

// VideoCompositor renders the final video from a job's media assets.
type VideoCompositor interface {
	Compose(ctx context.Context, assets []models.MediaAsset, settings models.CompositionSettings, destPath string) error
}

// ClassifyHTTP translates a provider HTTP response status into the error
// taxonomy. 429 and 5xx are transient; explicit content refusals are
// terminal without retry; other 4xx mean our request was malformed.
func ClassifyHTTP(provider string, statusCode int, requestID, detail string) *faults.Error {
	var kind faults.Kind
	switch {
	case statusCode == http.StatusTooManyRequests,
		statusCode == http.StatusRequestTimeout,
		statusCode >= http.StatusInternalServerError:
		kind = faults.KindTransientProvider
	case statusCode == http.StatusBadRequest || statusCode == http.StatusUnprocessableEntity:
		kind = faults.KindValidation
	case statusCode == http.StatusForbidden:
		kind = faults.KindContentPolicy
	default:
		kind = faults.KindFatalProvider
	}
	return faults.New(kind, "%s returned status %d: %s", provider, statusCode, detail).
		WithProvider(provider, requestID)
}

// ClassifyTransport translates a transport-level failure (connection reset,
// context deadline) into the taxonomy. Timeouts are transient: the provider
// may well answer the retry.
func ClassifyTransport(provider string, err error) *faults.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return faults.Wrap(faults.KindTransientProvider, err, "%s call timed out", provider).
			WithProvider(provider, "")
	}
	if errors.Is(err, context.Canceled) {
		return faults.Wrap(faults.KindCanceled, err, "%s call canceled", provider).
			WithProvider(provider, "")
	}
	return faults.Wrap(faults.KindTransientProvider, err, "%s request failed", provider).
		WithProvider(provider, "")
}
