// Package youtube implements the publish leg: uploading a finished render
// to YouTube through the Data API v3 with an offline-refresh-token OAuth
// flow.
package youtube

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	youtubeapi "google.golang.org/api/youtube/v3"
)

const defaultCategoryID = "22" // People & Blogs

// Uploader publishes videos to a single YouTube channel.
type Uploader struct {
	clientID     string
	clientSecret string
	refreshToken string
	logger       *logrus.Logger
}

// NewUploader creates an uploader using the channel's offline refresh token.
func NewUploader(clientID, clientSecret, refreshToken string, logger *logrus.Logger) *Uploader {
	return &Uploader{
		clientID:     clientID,
		clientSecret: clientSecret,
		refreshToken: refreshToken,
		logger:       logger,
	}
}

// Upload sends the file with its listing metadata and returns the YouTube
// video id and watch URL. Resumable upload is handled by the client
// library; ctx bounds the whole transfer.
func (u *Uploader) Upload(ctx context.Context, filePath, title, description string, tags []string, privacy string) (string, string, error) {
	oauthConfig := &oauth2.Config{
		ClientID:     u.clientID,
		ClientSecret: u.clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtubeapi.YoutubeUploadScope},
	}
	tokenSource := oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: u.refreshToken})

	service, err := youtubeapi.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return "", "", fmt.Errorf("youtube service: %w", err)
	}

	if privacy == "" {
		privacy = "private"
	}
	video := &youtubeapi.Video{
		Snippet: &youtubeapi.VideoSnippet{
			Title:       title,
			Description: description,
			Tags:        tags,
			CategoryId:  defaultCategoryID,
		},
		Status: &youtubeapi.VideoStatus{
			PrivacyStatus:           privacy,
			SelfDeclaredMadeForKids: false,
		},
	}

	f, err := os.Open(filePath)
	if err != nil {
		return "", "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	if info, statErr := f.Stat(); statErr == nil {
		u.logger.WithFields(logrus.Fields{
			"title":   title,
			"size_mb": fmt.Sprintf("%.1f", float64(info.Size())/1024/1024),
		}).Info("Uploading video to YouTube")
	}

	call := service.Videos.Insert([]string{"snippet", "status"}, video)
	call.Media(f)

	uploaded, err := call.Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("youtube upload: %w", err)
	}

	url := "https://www.youtube.com/watch?v=" + uploaded.Id
	return uploaded.Id, url, nil
}
