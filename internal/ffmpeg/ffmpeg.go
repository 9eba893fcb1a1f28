// Package ffmpeg wraps the ffmpeg and ffprobe binaries. Composition renders
// a job's generated stills and narration track into the final video; probing
// reads durations and stream metadata back out.
package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Asdafers/contenitzer-sub001/internal/faults"
	"github.com/Asdafers/contenitzer-sub001/models"
)

// ProbeResult is the subset of ffprobe output the pipeline needs.
type ProbeResult struct {
	DurationSec float64
	Width       int
	Height      int
	FormatName  string
}

type ffprobeOutput struct {
	Format struct {
		Duration   string `json:"duration"`
		FormatName string `json:"format_name"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// Probe runs ffprobe against a media file.
func Probe(ctx context.Context, filePath string) (*ProbeResult, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed for %s: %v\nStderr: %s", filePath, err, stderr.String())
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(stdout.Bytes(), &parsed); err != nil {
		return nil, fmt.Errorf("error unmarshalling ffprobe output: %v\nOutput: %s", err, stdout.String())
	}

	result := &ProbeResult{FormatName: parsed.Format.FormatName}
	if parsed.Format.Duration != "" {
		duration, err := strconv.ParseFloat(parsed.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("error parsing duration string '%s': %v", parsed.Format.Duration, err)
		}
		result.DurationSec = duration
	}
	for _, stream := range parsed.Streams {
		if stream.CodecType == "video" {
			result.Width = stream.Width
			result.Height = stream.Height
			break
		}
	}
	return result, nil
}

// Compositor renders final videos with ffmpeg. It implements
// providers.VideoCompositor.
type Compositor struct{}

// NewCompositor creates an ffmpeg-backed compositor.
func NewCompositor() *Compositor {
	return &Compositor{}
}

// Compose renders the job's image assets as a slideshow under its narration
// audio, scaled to the requested resolution, and writes the result to
// destPath. The caller's context carries the composition timeout;
// exceeding it kills the ffmpeg process.
func (c *Compositor) Compose(ctx context.Context, assets []models.MediaAsset, settings models.CompositionSettings, destPath string) error {
	var images []string
	var audioPath string
	for _, asset := range assets {
		switch asset.AssetType {
		case models.AssetTypeImage:
			images = append(images, asset.FilePath)
		case models.AssetTypeAudio:
			audioPath = asset.FilePath
		}
	}
	if len(images) == 0 {
		return faults.New(faults.KindFatalProvider, "composition needs at least one image asset")
	}
	if audioPath == "" {
		return faults.New(faults.KindFatalProvider, "composition needs an audio asset")
	}

	perImageSec := float64(settings.DurationSec) / float64(len(images))
	listPath := filepath.Join(filepath.Dir(destPath), "concat_input.txt")
	if err := writeConcatList(listPath, images, perImageSec); err != nil {
		return err
	}
	defer os.Remove(listPath)

	args := BuildComposeArgs(listPath, audioPath, settings, destPath)
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return faults.Wrap(faults.KindTransientProvider, ctx.Err(), "ffmpeg composition timed out").
				WithProvider("ffmpeg", "")
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return faults.Wrap(faults.KindCanceled, ctx.Err(), "ffmpeg composition canceled").
				WithProvider("ffmpeg", "")
		}
		return faults.Wrap(faults.KindFatalProvider, err, "ffmpeg composition failed\nStderr: %s", truncateStderr(stderr.String())).
			WithProvider("ffmpeg", "")
	}
	return nil
}

// BuildComposeArgs constructs the ffmpeg argument list for a slideshow
// render. Kept separate from execution so the command shape is testable.
func BuildComposeArgs(concatListPath, audioPath string, settings models.CompositionSettings, destPath string) []string {
	preset := map[string]string{
		"high":   "slow",
		"medium": "medium",
		"low":    "veryfast",
	}[settings.Quality]
	if preset == "" {
		preset = "medium"
	}

	// scale+pad preserves aspect ratio inside the requested frame.
	dims := strings.SplitN(settings.Resolution, "x", 2)
	videoFilter := fmt.Sprintf(
		"scale=%s:%s:force_original_aspect_ratio=decrease,pad=%s:%s:(ow-iw)/2:(oh-ih)/2,format=yuv420p",
		dims[0], dims[1], dims[0], dims[1],
	)

	return []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", concatListPath,
		"-i", audioPath,
		"-vf", videoFilter,
		"-c:v", "libx264",
		"-preset", preset,
		"-r", "30",
		"-c:a", "aac",
		"-b:a", "192k",
		"-t", strconv.Itoa(settings.DurationSec),
		"-shortest",
		destPath,
	}
}

// writeConcatList writes the concat-demuxer input file: each image held for
// its slice of the requested duration. The final entry is repeated without a
// duration, which the demuxer requires.
func writeConcatList(listPath string, images []string, perImageSec float64) error {
	var b strings.Builder
	for _, image := range images {
		fmt.Fprintf(&b, "file '%s'\n", image)
		fmt.Fprintf(&b, "duration %.3f\n", perImageSec)
	}
	fmt.Fprintf(&b, "file '%s'\n", images[len(images)-1])

	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write concat list %s: %w", listPath, err)
	}
	return nil
}

func truncateStderr(s string) string {
	const max = 2048
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max:]
}
