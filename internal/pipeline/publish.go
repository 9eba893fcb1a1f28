package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Asdafers/contenitzer-sub001/internal/faults"
	"github.com/Asdafers/contenitzer-sub001/models"
)

const publishTimeout = 15 * time.Minute

// PublishRequest carries the YouTube listing metadata for an upload.
type PublishRequest struct {
	Title       string
	Description string
	Tags        []string
	Privacy     string
}

// PublishVideo queues the YouTube upload of a finished video. Only one
// upload may be in flight per video; completed uploads are not repeated,
// while a failed upload may be retried by publishing again.
func (e *Executor) PublishVideo(ctx context.Context, videoID uuid.UUID, req PublishRequest) error {
	if e.publisher == nil {
		return faults.New(faults.KindFatalProvider, "youtube publishing is not configured")
	}

	video, err := e.stores.Videos.GetVideo(ctx, videoID)
	if err != nil {
		if faults.KindOf(err) != faults.KindNotFound {
			return err
		}
		// No artifact. If the producing job exists the id is valid but the
		// video is not ready to publish; only a truly unknown id is 404.
		if job, jobErr := e.stores.Jobs.GetJob(ctx, videoID); jobErr == nil {
			return faults.Conflict("video %s is not ready to publish (job is %s)", videoID, job.Status)
		}
		return err
	}
	switch video.UploadStatus {
	case models.UploadStatusUploading:
		return faults.Conflict("video %s is already uploading", videoID)
	case models.UploadStatusCompleted:
		return faults.Conflict("video %s is already published", videoID)
	}

	video.UploadStatus = models.UploadStatusUploading
	video.UploadError = nil
	if err := e.stores.Videos.UpdateVideo(ctx, video); err != nil {
		return err
	}

	task := &publishTask{executor: e, video: video, req: req}
	if err := e.dispatcher.SubmitTask(task); err != nil {
		video.UploadStatus = models.UploadStatusFailed
		message := err.Error()
		video.UploadError = &message
		if updateErr := e.stores.Videos.UpdateVideo(ctx, video); updateErr != nil {
			e.logger.WithError(updateErr).WithField("video_id", videoID).Error("Failed to record upload queue failure")
		}
		return err
	}

	e.logger.WithField("video_id", videoID).Info("YouTube upload queued")
	return nil
}

type publishTask struct {
	executor *Executor
	video    *models.GeneratedVideo
	req      PublishRequest
}

func (t *publishTask) ID() string { return "publish-" + t.video.ID.String() }

func (t *publishTask) Execute(poolCtx context.Context) error {
	e := t.executor
	video := t.video

	uploadCtx, cancel := context.WithTimeout(poolCtx, publishTimeout)
	defer cancel()

	youtubeID, youtubeURL, err := e.publisher.Upload(
		uploadCtx, video.FilePath, t.req.Title, t.req.Description, t.req.Tags, t.req.Privacy)
	if err != nil {
		video.UploadStatus = models.UploadStatusFailed
		message := err.Error()
		video.UploadError = &message
		if updateErr := e.stores.Videos.UpdateVideo(context.Background(), video); updateErr != nil {
			e.logger.WithError(updateErr).WithField("video_id", video.ID).Error("Failed to record upload failure")
		}
		e.logger.WithError(err).WithFields(logrus.Fields{
			"video_id": video.ID,
			"stage":    stagePublish,
		}).Error("YouTube upload failed")
		return err
	}

	video.UploadStatus = models.UploadStatusCompleted
	video.YouTubeID = &youtubeID
	video.YouTubeURL = &youtubeURL
	video.UploadError = nil
	if err := e.stores.Videos.UpdateVideo(context.Background(), video); err != nil {
		e.logger.WithError(err).WithField("video_id", video.ID).Error("Failed to record upload completion")
		return err
	}

	e.logger.WithFields(logrus.Fields{
		"video_id":   video.ID,
		"youtube_id": youtubeID,
	}).Info("YouTube upload completed")
	return nil
}
