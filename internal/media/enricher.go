package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"property-capture-go/internal/logger"
	"property-capture-go/internal/storage"
	"property-capture-go/internal/types"
)

// Enricher runs the optional media steps of the pipeline: duration probing
// and per-room clip extraction. Nothing here is ever fatal to a capture.
type Enricher struct {
	tool  Tool
	store *storage.Store
	log   *logger.Logger
}

func NewEnricher(tool Tool, store *storage.Store) *Enricher {
	return &Enricher{
		tool:  tool,
		store: store,
		log:   logger.New(),
	}
}

// Duration probes the video length, or returns an error for the caller to
// absorb with its fallback value.
func (e *Enricher) Duration(ctx context.Context, videoPath string) (float64, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return 0, fmt.Errorf("video file not found: %w", err)
	}
	return e.tool.ProbeDuration(ctx, videoPath)
}

// RoomClips cuts one clip per room. Rooms with a non-positive window are
// skipped, and a failure on one room never affects the others.
func (e *Enricher) RoomClips(ctx context.Context, captureID, videoPath string, rooms []types.Room) []types.RoomClip {
	log := e.log.WithCapture(captureID)

	if _, err := os.Stat(videoPath); err != nil {
		log.Warn("video file not found, skipping clip generation")
		return []types.RoomClip{}
	}

	clipsDir, err := e.store.EnsureCaptureSubDir(captureID, "clips")
	if err != nil {
		log.WithError(err).Warn("cannot create clips directory, skipping clip generation")
		return []types.RoomClip{}
	}

	clips := make([]types.RoomClip, 0, len(rooms))
	for _, room := range rooms {
		duration := room.EndTimestamp - room.StartTimestamp
		if duration <= 0 {
			log.WithField("room", room.RoomName).WithField("duration", duration).
				Warn("skipping clip: invalid room window")
			continue
		}

		clipName := room.RoomID + ".mp4"
		dest := filepath.Join(clipsDir, clipName)
		if err := e.tool.ExtractClip(ctx, videoPath, room.StartTimestamp, duration, dest); err != nil {
			log.WithError(err).WithField("room", room.RoomName).Warn("clip extraction failed, continuing")
			continue
		}

		log.WithField("room", room.RoomName).WithField("clip", clipName).Info("generated room clip")
		clips = append(clips, types.RoomClip{
			RoomID:  room.RoomID,
			ClipURL: e.store.FileURL(captureID, "clips/"+clipName),
		})
	}

	log.WithField("clips", len(clips)).WithField("rooms", len(rooms)).Info("room clip generation finished")
	return clips
}
