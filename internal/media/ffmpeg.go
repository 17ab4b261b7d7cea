package media

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"property-capture-go/internal/logger"
)

const clipTimeout = 5 * time.Minute

// Tool is the external media-tool boundary (ffmpeg/ffprobe in production).
type Tool interface {
	// ProbeDuration returns the media duration in whole seconds.
	ProbeDuration(ctx context.Context, path string) (float64, error)
	// ExtractClip copies the [start, start+duration) window of src to dest.
	ExtractClip(ctx context.Context, src string, start, duration float64, dest string) error
	// Thumbnail writes a downscaled still/copy of src to dest.
	Thumbnail(src, dest string) error
}

// FFmpeg shells out to the ffmpeg/ffprobe binaries.
type FFmpeg struct {
	FFmpegBin  string
	FFprobeBin string
	log        *logger.Logger
}

func NewFFmpeg() *FFmpeg {
	return &FFmpeg{
		FFmpegBin:  "ffmpeg",
		FFprobeBin: "ffprobe",
		log:        logger.New(),
	}
}

func (f *FFmpeg) ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, f.FFprobeBin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w (%s)", path, err, strings.TrimSpace(stderr.String()))
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(out.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration: %w", err)
	}
	return math.Round(seconds), nil
}

func (f *FFmpeg) ExtractClip(ctx context.Context, src string, start, duration float64, dest string) error {
	clipCtx, cancel := context.WithTimeout(ctx, clipTimeout)
	defer cancel()

	cmd := exec.CommandContext(clipCtx, f.FFmpegBin,
		"-y",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(duration),
		"-i", src,
		"-c", "copy",
		dest,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if clipCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("clip extraction timed out after %s", clipTimeout)
		}
		return fmt.Errorf("ffmpeg clip: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Thumbnail downscales a photo to 400px wide. ffmpeg handles still images
// fine, so one external tool covers clips and thumbnails both.
func (f *FFmpeg) Thumbnail(src, dest string) error {
	cmd := exec.Command(f.FFmpegBin,
		"-y",
		"-i", src,
		"-vf", "scale=400:-2",
		"-q:v", "4",
		dest,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg thumbnail: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
