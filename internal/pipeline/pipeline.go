package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"property-capture-go/internal/export"
	"property-capture-go/internal/logger"
	"property-capture-go/internal/status"
	"property-capture-go/internal/storage"
	"property-capture-go/internal/transcript"
	"property-capture-go/internal/types"
)

// Segmenter is the room-segmentation stage boundary. Its failure is the
// only fatal one in the pipeline.
type Segmenter interface {
	SegmentRooms(ctx context.Context, items []types.TranscriptItem, boundaries []types.RoomBoundary) (types.SegmentationResult, error)
}

// Associator matches photos to rooms, absorbing per-photo failures.
type Associator interface {
	Associate(captureID string, files []types.PhotoFile, metadata []types.PhotoMetadata, rooms []types.Room) []types.AssociatedPhoto
}

// Enricher runs the optional media steps; may be nil when no tool is wired.
type Enricher interface {
	Duration(ctx context.Context, videoPath string) (float64, error)
	RoomClips(ctx context.Context, captureID, videoPath string, rooms []types.Room) []types.RoomClip
}

// Publisher syncs the report to the external workspace; may be nil.
type Publisher interface {
	Configured() bool
	Publish(ctx context.Context, report *types.Report) (*types.PublishRef, error)
}

// Pipeline owns a capture's lifecycle from processing to complete/failed.
type Pipeline struct {
	store     *storage.Store
	tracker   *status.Tracker
	segmenter Segmenter
	photos    Associator
	media     Enricher
	publisher Publisher
	log       *logger.Logger
}

func New(store *storage.Store, tracker *status.Tracker, segmenter Segmenter, photos Associator, media Enricher, publisher Publisher) *Pipeline {
	return &Pipeline{
		store:     store,
		tracker:   tracker,
		segmenter: segmenter,
		photos:    photos,
		media:     media,
		publisher: publisher,
		log:       logger.New(),
	}
}

// Start kicks off processing for an accepted capture. Fire-and-forget: the
// caller observes the run through the status tracker, never a return value.
// A run always reaches a terminal state.
func (p *Pipeline) Start(captureID string, capture types.Capture) {
	go p.Process(context.Background(), captureID, capture)
}

// Process runs the full pipeline synchronously. Exported for callers that
// want to block; the HTTP surface uses Start.
func (p *Pipeline) Process(ctx context.Context, captureID string, capture types.Capture) {
	log := p.log.WithCapture(captureID)

	if _, ok := p.tracker.Get(captureID); !ok {
		log.Error("no status entry for capture, refusing to process")
		return
	}

	log.Info("starting processing pipeline")

	// Step 1: transcript enhancement. Pure function, always succeeds.
	p.tracker.Update(captureID, status.StageTranscription, status.StageProcessing)
	enhanced := transcript.Enhance(capture.Transcript, capture.RoomBoundaries)
	if err := p.store.SaveCaptureJSON(captureID, "transcript.json", enhanced.Items); err != nil {
		log.WithError(err).Warn("could not save enhanced transcript")
	}
	p.tracker.Update(captureID, status.StageTranscription, status.StageComplete)
	log.WithField("items", len(enhanced.Items)).Info("transcript enhanced")

	// Step 2: room segmentation. Fatal on failure after its internal retry.
	p.tracker.Update(captureID, status.StageRoomSegmentation, status.StageProcessing)
	seg, err := p.segmenter.SegmentRooms(ctx, enhanced.Items, capture.RoomBoundaries)
	if err != nil {
		log.WithError(err).Error("room segmentation failed")
		p.tracker.Update(captureID, status.StageRoomSegmentation, status.StageFailed)
		p.tracker.Fail(captureID, err)
		return
	}
	if err := p.store.SaveCaptureJSON(captureID, "segmentation.json", seg); err != nil {
		log.WithError(err).Warn("could not save segmentation result")
	}
	p.tracker.Update(captureID, status.StageRoomSegmentation, status.StageComplete)
	// Inventory rides along in the segmentation output, not a separate call.
	p.tracker.Update(captureID, status.StageInventoryExtraction, status.StageComplete)
	log.WithField("rooms", len(seg.Rooms)).Info("room segmentation done")

	// Step 3: photo association. Best-effort per photo.
	p.tracker.Update(captureID, status.StagePhotoAssociation, status.StageProcessing)
	associated := p.photos.Associate(captureID, capture.PhotoFiles, capture.PhotoMetadata, seg.Rooms)
	p.tracker.Update(captureID, status.StagePhotoAssociation, status.StageComplete)
	log.WithField("photos", len(associated)).Info("photos associated")

	// Step 4: media enrichment. Never aborts the pipeline.
	videoDuration := capture.DurationSeconds
	clips := []types.RoomClip{}
	if p.media != nil && capture.VideoPath != "" {
		if d, derr := p.media.Duration(ctx, capture.VideoPath); derr != nil {
			log.WithError(derr).Warn("could not probe video duration")
		} else {
			videoDuration = d
		}
		clips = p.media.RoomClips(ctx, captureID, capture.VideoPath, seg.Rooms)
	}

	// Step 5: compile and persist the report.
	report := p.compileReport(captureID, capture, enhanced, seg, associated, videoDuration, clips)
	if err := p.store.SaveReport(captureID, report); err != nil {
		log.WithError(err).Error("could not persist report")
	}
	p.exportInventory(captureID, report)

	// Step 6: publish sync. Degraded on failure, skipped when unconfigured.
	p.publishReport(ctx, captureID, report)

	p.tracker.Complete(captureID, report)
	log.Info("processing complete")
}

func (p *Pipeline) compileReport(captureID string, capture types.Capture, enhanced transcript.Result, seg types.SegmentationResult, photos []types.AssociatedPhoto, videoDuration float64, clips []types.RoomClip) *types.Report {
	rooms := make([]types.ReportRoom, len(seg.Rooms))
	assignedIDs := make(map[string]bool, len(seg.Rooms))
	for _, room := range seg.Rooms {
		assignedIDs[room.RoomID] = true
	}

	for i, room := range seg.Rooms {
		roomPhotos := []types.ReportPhoto{}
		for _, photo := range photos {
			if photo.RoomID == room.RoomID || (photo.RoomName != "" && strings.EqualFold(photo.RoomName, room.RoomName)) {
				roomPhotos = append(roomPhotos, reportPhoto(photo))
			}
		}

		clipURL := ""
		for _, clip := range clips {
			if clip.RoomID == room.RoomID {
				clipURL = clip.ClipURL
				break
			}
		}

		rooms[i] = types.ReportRoom{Room: room, Photos: roomPhotos, VideoClipURL: clipURL}
	}

	unassigned := []types.ReportPhoto{}
	for _, photo := range photos {
		if photo.RoomID == "" || !assignedIDs[photo.RoomID] {
			unassigned = append(unassigned, reportPhoto(photo))
		}
	}

	raw := types.RawMedia{TranscriptURL: p.store.FileURL(captureID, "transcript.json")}
	if capture.VideoPath != "" {
		raw.VideoURL = p.store.FileURL(captureID, filepath.Base(capture.VideoPath))
	}

	return &types.Report{
		CaptureID:           captureID,
		PropertyName:        capture.PropertyName,
		PropertyAddress:     capture.PropertyAddress,
		CaptureDate:         time.Now().UTC().Format(time.RFC3339),
		RecordingDuration:   videoDuration,
		PropertyOverview:    seg.PropertyOverview,
		Rooms:               rooms,
		UnassignedPhotos:    unassigned,
		PropertyAccess:      seg.PropertyAccess,
		SystemsAndUtilities: seg.SystemsAndUtilities,
		FullTranscript:      enhanced.FullText,
		RawData:             raw,
	}
}

func reportPhoto(photo types.AssociatedPhoto) types.ReportPhoto {
	return types.ReportPhoto{
		PhotoURL:     photo.PhotoURL,
		ThumbnailURL: photo.ThumbnailURL,
		Timestamp:    photo.Timestamp,
	}
}

func (p *Pipeline) exportInventory(captureID string, report *types.Report) {
	log := p.log.WithCapture(captureID)
	if _, err := p.store.EnsureCaptureDir(captureID); err != nil {
		log.WithError(err).Warn("could not create capture dir for inventory export")
		return
	}
	path := p.store.CaptureFilePath(captureID, "inventory.xlsx")
	if err := export.WriteInventoryWorkbook(path, report); err != nil {
		log.WithError(err).Warn("inventory export failed")
		return
	}
	log.WithField("path", path).Info("inventory workbook written")
}

func (p *Pipeline) publishReport(ctx context.Context, captureID string, report *types.Report) {
	log := p.log.WithCapture(captureID)

	if p.publisher == nil || !p.publisher.Configured() {
		p.tracker.Update(captureID, status.StagePublishSync, status.StageSkipped)
		return
	}

	p.tracker.Update(captureID, status.StagePublishSync, status.StageProcessing)
	ref, err := p.publisher.Publish(ctx, report)
	if err != nil {
		log.WithError(err).Warn("publish sync failed")
		p.tracker.Update(captureID, status.StagePublishSync, status.StageFailed)
		return
	}
	if ref == nil {
		p.tracker.Update(captureID, status.StagePublishSync, status.StageSkipped)
		return
	}

	// Rewrite the persisted report once to record where it was published.
	report.NotionPage = ref
	if err := p.store.SaveReport(captureID, report); err != nil {
		log.WithError(err).Warn("could not rewrite report with publish reference")
	}
	p.tracker.Update(captureID, status.StagePublishSync, status.StageComplete)
	log.WithField("page_url", ref.PageURL).Info("publish sync complete")
}
