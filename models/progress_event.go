package models

import "time"

// Pipeline stage names as reported over the progress channel. Each logical
// external call is one stage; there are no sub-millisecond ticks.
const (
	StageQueued          = "queued"
	StageAnalyzingScript = "analyzing_script"
	StageGeneratingImages = "generating_images"
	StageGeneratingAudio  = "generating_audio"
	StageComposingVideo   = "composing_video"
	StageCompleted        = "completed"
	StageFailed           = "failed"
)

// ProgressEvent is an ephemeral stage-transition notification. It is an
// observability side channel: job-record correctness never depends on it.
type ProgressEvent struct {
	SessionID  string                 `json:"session_id"`
	Stage      string                 `json:"stage"`
	Percentage int                    `json:"percentage"`
	Timestamp  time.Time              `json:"timestamp"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Terminal   bool                   `json:"terminal"`
}
