package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/Asdafers/contenitzer-sub001/internal/pipeline"
	"github.com/Asdafers/contenitzer-sub001/internal/progress"
	"github.com/Asdafers/contenitzer-sub001/internal/providers"
	"github.com/Asdafers/contenitzer-sub001/internal/store"
)

// ApplicationHandler holds shared dependencies for handlers.
type ApplicationHandler struct {
	Executor *pipeline.Executor
	Stores   store.Stores
	Tracker  *progress.Tracker
	Scripts  providers.ScriptService
	Logger   *logrus.Logger
}

// NewApplicationHandler creates an ApplicationHandler with the given
// dependencies. Scripts may be nil when no text model is configured; the
// generate-script endpoint then reports the feature unavailable.
func NewApplicationHandler(
	executor *pipeline.Executor,
	stores store.Stores,
	tracker *progress.Tracker,
	scripts providers.ScriptService,
	logger *logrus.Logger,
) *ApplicationHandler {
	return &ApplicationHandler{
		Executor: executor,
		Stores:   stores,
		Tracker:  tracker,
		Scripts:  scripts,
		Logger:   logger,
	}
}
