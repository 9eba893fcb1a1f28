package handlers

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Asdafers/contenitzer-sub001/utils"
)

// DownloadVideo serves the finished render as an attachment. Unknown or
// not-yet-finished videos are 404: a placeholder is never substituted.
// GET /api/v1/videos/:id/download
func (h *ApplicationHandler) DownloadVideo(c *fiber.Ctx) error {
	video, err := h.lookupServableVideo(c)
	if err != nil {
		return err // response already written
	}
	return c.Download(video.FilePath, video.ID.String()+".mp4")
}

// StreamVideo byte-serves the finished render with HTTP Range support.
// GET /api/v1/videos/:id/stream
func (h *ApplicationHandler) StreamVideo(c *fiber.Ctx) error {
	video, err := h.lookupServableVideo(c)
	if err != nil {
		return err
	}

	file, err := os.Open(video.FilePath)
	if err != nil {
		h.Logger.WithError(err).WithField("video_id", video.ID).Error("Video file missing on disk")
		return utils.RespondWithError(c, fiber.StatusNotFound, "Video file not found")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not stat video file")
	}
	size := info.Size()

	c.Set(fiber.HeaderAcceptRanges, "bytes")
	c.Set(fiber.HeaderContentType, "video/mp4")

	rangeHeader := c.Get(fiber.HeaderRange)
	if rangeHeader == "" {
		// Whole file; fasthttp closes the stream for us.
		c.Context().SetBodyStream(file, int(size))
		return nil
	}

	start, length, ok := parseByteRange(rangeHeader, size)
	if !ok {
		file.Close()
		c.Set(fiber.HeaderContentRange, fmt.Sprintf("bytes */%d", size))
		return c.SendStatus(fiber.StatusRequestedRangeNotSatisfiable)
	}

	if _, err := file.Seek(start, io.SeekStart); err != nil {
		file.Close()
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not seek video file")
	}

	c.Status(fiber.StatusPartialContent)
	c.Set(fiber.HeaderContentRange, fmt.Sprintf("bytes %d-%d/%d", start, start+length-1, size))
	c.Context().SetBodyStream(&fileSection{file: file, reader: io.LimitReader(file, length)}, int(length))
	return nil
}

// lookupServableVideo resolves the :id parameter to a finished video,
// writing the error response itself when there is nothing to serve.
func (h *ApplicationHandler) lookupServableVideo(c *fiber.Ctx) (video *videoRef, err error) {
	id, parseErr := uuid.Parse(c.Params("id"))
	if parseErr != nil {
		return nil, utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid video ID format")
	}

	record, getErr := h.Stores.Videos.GetVideo(c.Context(), id)
	if getErr != nil {
		// In-progress, failed and unknown ids all read the same to a byte
		// range client: there is no video to serve.
		return nil, utils.RespondWithError(c, fiber.StatusNotFound, "Video not found")
	}
	return &videoRef{ID: record.ID, FilePath: record.FilePath}, nil
}

type videoRef struct {
	ID       uuid.UUID
	FilePath string
}

// fileSection is a bounded view of an open file that closes the file when
// fasthttp finishes streaming the body.
type fileSection struct {
	file   *os.File
	reader io.Reader
}

func (s *fileSection) Read(p []byte) (int, error) { return s.reader.Read(p) }
func (s *fileSection) Close() error               { return s.file.Close() }

// parseByteRange parses a single-range "bytes=..." header against the file
// size. It returns ok=false when the range is syntactically valid but
// unsatisfiable (start beyond EOF, or an empty suffix); a syntactically
// invalid header is treated the same way.
func parseByteRange(header string, size int64) (start, length int64, ok bool) {
	spec, found := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !found {
		return 0, 0, false
	}
	// Multiple ranges are not supported; serve the first.
	if idx := strings.IndexByte(spec, ','); idx >= 0 {
		spec = spec[:idx]
	}
	startStr, endStr, found := strings.Cut(spec, "-")
	if !found {
		return 0, 0, false
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)

	if startStr == "" {
		// Suffix range: last N bytes.
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, false
		}
		if n > size {
			n = size
		}
		return size - n, n, true
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 || start >= size {
		return 0, 0, false
	}

	end := size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return 0, 0, false
		}
		if end >= size {
			end = size - 1
		}
	}
	return start, end - start + 1, true
}
