package photos

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"property-capture-go/internal/logger"
	"property-capture-go/internal/storage"
	"property-capture-go/internal/types"
)

// The unassigned bucket for photos no override or room window claims.
const UnassignedRoom = "unassigned"

// Thumbnailer generates a small preview image. Failures are absorbed per
// photo; the full-size URL stands in for the thumbnail.
type Thumbnailer interface {
	Thumbnail(src, dest string) error
}

// Associator matches uploaded photos to segmented rooms.
type Associator struct {
	store *storage.Store
	thumb Thumbnailer
	log   *logger.Logger
}

func NewAssociator(store *storage.Store, thumb Thumbnailer) *Associator {
	return &Associator{
		store: store,
		thumb: thumb,
		log:   logger.New(),
	}
}

// Associate resolves each photo's room, in priority order: explicit user
// override, then first room whose window contains the photo timestamp, then
// the unassigned bucket. Files and metadata are index-aligned; a missing
// metadata entry means timestamp 0 with no override. One bad photo never
// aborts the rest.
func (a *Associator) Associate(captureID string, files []types.PhotoFile, metadata []types.PhotoMetadata, rooms []types.Room) []types.AssociatedPhoto {
	log := a.log.WithCapture(captureID)

	if len(files) == 0 {
		log.Info("no photos to associate")
		return []types.AssociatedPhoto{}
	}

	log.WithField("photos", len(files)).WithField("rooms", len(rooms)).Info("associating photos")

	results := make([]types.AssociatedPhoto, 0, len(files))
	for i, file := range files {
		var meta types.PhotoMetadata
		if i < len(metadata) {
			meta = metadata[i]
		}

		if file.Path == "" {
			log.WithField("photo", i).Error("photo has no file path, skipping")
			continue
		}
		if _, err := os.Stat(file.Path); err != nil {
			log.WithError(err).WithField("photo", i).Error("photo file unreadable, skipping")
			continue
		}

		roomID, roomName := resolveRoom(meta, rooms, log.WithField("photo", i))
		photoURL := a.store.FileURL(captureID, "photos/"+file.Filename)

		results = append(results, types.AssociatedPhoto{
			PhotoURL:     photoURL,
			ThumbnailURL: a.thumbnailURL(captureID, file, photoURL, i),
			Timestamp:    meta.TimestampSeconds,
			RoomID:       roomID,
			RoomName:     roomName,
		})
	}

	log.WithField("processed", len(results)).WithField("total", len(files)).
		Info("photo association complete")
	return results
}

func resolveRoom(meta types.PhotoMetadata, rooms []types.Room, log *logrus.Entry) (string, string) {
	// Priority 1: manual override from the review screen. The label is used
	// verbatim even when it matches no known room.
	if meta.AssociatedRoom != "" {
		for _, room := range rooms {
			if strings.EqualFold(room.RoomName, meta.AssociatedRoom) {
				log.WithField("room", meta.AssociatedRoom).Debug("photo user-assigned")
				return room.RoomID, meta.AssociatedRoom
			}
		}
		log.WithField("room", meta.AssociatedRoom).Debug("photo user-assigned to unknown room")
		return "", meta.AssociatedRoom
	}

	// Priority 2: first room whose window contains the timestamp. An
	// inverted window can never contain anything.
	for _, room := range rooms {
		if meta.TimestampSeconds >= room.StartTimestamp && meta.TimestampSeconds <= room.EndTimestamp {
			log.WithField("room", room.RoomName).WithField("ts", meta.TimestampSeconds).
				Debug("photo timestamp-matched")
			return room.RoomID, room.RoomName
		}
	}

	log.WithField("ts", meta.TimestampSeconds).Debug("photo unassigned")
	return "", UnassignedRoom
}

func (a *Associator) thumbnailURL(captureID string, file types.PhotoFile, photoURL string, idx int) string {
	log := a.log.WithCapture(captureID).WithField("photo", idx)

	thumbDir, err := a.store.EnsureCaptureSubDir(captureID, "thumbnails")
	if err != nil {
		log.WithError(err).Warn("cannot create thumbnails directory, using full-size photo")
		return photoURL
	}

	thumbName := "thumb-" + filepath.Base(file.Filename)
	if err := a.thumb.Thumbnail(file.Path, filepath.Join(thumbDir, thumbName)); err != nil {
		log.WithError(err).Warn("thumbnail generation failed, using full-size photo")
		return photoURL
	}
	return a.store.FileURL(captureID, "thumbnails/"+thumbName)
}
