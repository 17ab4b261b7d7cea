package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"property-capture-go/internal/logger"
	"property-capture-go/internal/media"
	"property-capture-go/internal/photos"
	"property-capture-go/internal/pipeline"
	"property-capture-go/internal/publish"
	"property-capture-go/internal/segmentation"
	"property-capture-go/internal/status"
	"property-capture-go/internal/storage"
	"property-capture-go/internal/types"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "property-capture-go").Info("starting service")

	storagePath := envOr("STORAGE_PATH", "./data")
	store, err := storage.NewStore(storagePath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize storage")
	}
	log.WithField("storage_path", storagePath).Info("storage ready")

	tracker := status.NewTracker()
	segmenter := segmentation.NewOrchestrator(segmentation.NewClientFromEnv())
	ffmpeg := media.NewFFmpeg()
	enricher := media.NewEnricher(ffmpeg, store)
	associator := photos.NewAssociator(store, ffmpeg)
	publisher := publish.NewPublisherFromEnv()
	if !publisher.Configured() {
		log.Warn("workspace publishing not configured, publish sync will be skipped")
	}

	pipe := pipeline.New(store, tracker, segmenter, associator, enricher, publisher)

	mux := http.NewServeMux()

	// health
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})

	// accept a capture and start the pipeline
	mux.HandleFunc("/api/capture/process", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "process")
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		capture, err := decodeCapture(r)
		if err != nil {
			reqLog.WithError(err).Warn("bad capture payload")
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if capture.PropertyName == "" {
			http.Error(w, "missing propertyName", http.StatusBadRequest)
			return
		}

		captureID := uuid.NewString()
		if _, err := tracker.Init(captureID); err != nil {
			reqLog.WithError(err).Error("status init failed")
			http.Error(w, "could not start processing", http.StatusInternalServerError)
			return
		}
		pipe.Start(captureID, capture)
		reqLog.WithField("capture_id", captureID).Info("capture accepted")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{
			"captureId": captureID,
			"status":    status.StateProcessing,
		})
	})

	// poll processing status
	mux.HandleFunc("/api/capture/status", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "status")

		captureID := r.URL.Query().Get("id")
		if captureID == "" {
			http.Error(w, "missing id", http.StatusBadRequest)
			return
		}

		st, ok := tracker.Get(captureID)
		if !ok {
			// tracker state is process-local; fall back to the durable report
			report, err := store.LoadReport(captureID)
			if err != nil {
				reqLog.WithError(err).Error("report load failed")
				http.Error(w, "could not load capture", http.StatusInternalServerError)
				return
			}
			if report == nil {
				http.Error(w, "unknown capture", http.StatusNotFound)
				return
			}
			publishState := status.StageSkipped
			if report.NotionPage != nil {
				publishState = status.StageComplete
			}
			st = status.Status{
				CaptureID: captureID,
				Status:    status.StateComplete,
				CreatedAt: report.CaptureDate,
				Progress: map[string]string{
					status.StageTranscription:       status.StageComplete,
					status.StageRoomSegmentation:    status.StageComplete,
					status.StageInventoryExtraction: status.StageComplete,
					status.StagePhotoAssociation:    status.StageComplete,
					status.StagePublishSync:         publishState,
				},
				Result: report,
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(st)
	})

	// dashboard list of completed captures
	mux.HandleFunc("/api/captures", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(store.ListCaptures())
	})

	// delete a capture and its artifacts
	mux.HandleFunc("/api/capture", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "delete")
		if r.Method != http.MethodDelete {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		captureID := r.URL.Query().Get("id")
		if captureID == "" {
			http.Error(w, "missing id", http.StatusBadRequest)
			return
		}

		tracker.Delete(captureID)
		if err := store.DeleteCapture(captureID); err != nil {
			reqLog.WithError(err).Error("capture delete failed")
			http.Error(w, "could not delete capture", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	// serve stored capture artifacts (photos, thumbnails, clips, transcripts)
	capturesDir := filepath.Join(store.Root, "captures")
	mux.Handle("/api/files/captures/", http.StripPrefix("/api/files/captures/", http.FileServer(http.Dir(capturesDir))))

	addr := fmt.Sprintf(":%s", envOr("PORT", "8080"))
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}

// decodeCapture parses the request body. The outer document must be valid
// JSON; a malformed optional array field degrades to empty rather than
// rejecting the whole capture.
func decodeCapture(r *http.Request) (types.Capture, error) {
	var raw struct {
		PropertyName    string          `json:"propertyName"`
		PropertyAddress string          `json:"propertyAddress"`
		Transcript      json.RawMessage `json:"transcript"`
		RoomBoundaries  json.RawMessage `json:"roomBoundaries"`
		PhotoMetadata   json.RawMessage `json:"photoMetadata"`
		PhotoFiles      json.RawMessage `json:"photoFiles"`
		VideoPath       string          `json:"videoPath"`
		DurationSeconds float64         `json:"durationSeconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return types.Capture{}, err
	}

	capture := types.Capture{
		PropertyName:    raw.PropertyName,
		PropertyAddress: raw.PropertyAddress,
		Transcript:      []types.TranscriptItem{},
		RoomBoundaries:  []types.RoomBoundary{},
		PhotoMetadata:   []types.PhotoMetadata{},
		PhotoFiles:      []types.PhotoFile{},
		VideoPath:       raw.VideoPath,
		DurationSeconds: raw.DurationSeconds,
	}
	lenientArray(raw.Transcript, &capture.Transcript, "transcript")
	lenientArray(raw.RoomBoundaries, &capture.RoomBoundaries, "roomBoundaries")
	lenientArray(raw.PhotoMetadata, &capture.PhotoMetadata, "photoMetadata")
	lenientArray(raw.PhotoFiles, &capture.PhotoFiles, "photoFiles")
	return capture, nil
}

func lenientArray[T any](raw json.RawMessage, out *[]T, field string) {
	if len(raw) == 0 {
		return
	}
	var parsed []T
	if err := json.Unmarshal(raw, &parsed); err != nil {
		logger.New().WithError(err).WithField("field", field).Warn("unparseable capture field, using empty")
		return
	}
	if parsed != nil {
		*out = parsed
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
