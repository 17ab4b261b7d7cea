package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"property-capture-go/internal/logger"
	"property-capture-go/internal/types"
)

const deleteRetries = 3

// Store is the durable persistence boundary: per-capture artifact
// directories plus one report JSON per completed capture.
type Store struct {
	Root        string
	capturesDir string
	resultsDir  string
	log         *logger.Logger
}

// NewStore creates the storage directories under root.
func NewStore(root string) (*Store, error) {
	s := &Store{
		Root:        root,
		capturesDir: filepath.Join(root, "captures"),
		resultsDir:  filepath.Join(root, "results"),
		log:         logger.New(),
	}
	for _, dir := range []string{s.capturesDir, s.resultsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory %s: %w", dir, err)
		}
	}
	return s, nil
}

// EnsureCaptureDir creates (if needed) and returns the capture's directory.
func (s *Store) EnsureCaptureDir(captureID string) (string, error) {
	dir := filepath.Join(s.capturesDir, captureID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create capture directory: %w", err)
	}
	return dir, nil
}

// EnsureCaptureSubDir creates a subdirectory (photos, thumbnails, clips)
// inside the capture's directory.
func (s *Store) EnsureCaptureSubDir(captureID, sub string) (string, error) {
	dir := filepath.Join(s.capturesDir, captureID, sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create capture subdirectory: %w", err)
	}
	return dir, nil
}

// CaptureFilePath returns the absolute path of a capture artifact.
func (s *Store) CaptureFilePath(captureID, name string) string {
	return filepath.Join(s.capturesDir, captureID, name)
}

// SaveCaptureJSON writes an intermediate JSON artifact into the capture dir.
func (s *Store) SaveCaptureJSON(captureID, name string, v any) error {
	dir, err := s.EnsureCaptureDir(captureID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	s.log.WithField("path", path).Debug("saved capture artifact")
	return nil
}

// SaveReport persists the final report for a capture.
func (s *Store) SaveReport(captureID string, report *types.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	path := filepath.Join(s.resultsDir, captureID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	s.log.WithField("path", path).Info("saved report")
	return nil
}

// LoadReport reads a persisted report. Returns (nil, nil) when none exists.
func (s *Store) LoadReport(captureID string) (*types.Report, error) {
	path := filepath.Join(s.resultsDir, captureID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read report: %w", err)
	}
	var report types.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", captureID, err)
	}
	return &report, nil
}

// FileURL returns the API-relative URL under which the file server exposes a
// stored capture file.
func (s *Store) FileURL(captureID, name string) string {
	return "/api/files/captures/" + captureID + "/" + name
}

// CaptureSummary is a dashboard row derived from a persisted report.
type CaptureSummary struct {
	ID              string `json:"id"`
	PropertyName    string `json:"propertyName"`
	PropertyAddress string `json:"propertyAddress"`
	Status          string `json:"status"`
	Date            string `json:"date"`
	RoomCount       int    `json:"roomCount"`
	ItemCount       int    `json:"itemCount"`
	PhotoCount      int    `json:"photoCount"`
}

// ListCaptures scans persisted reports and returns dashboard summaries,
// newest first. Unreadable reports are skipped.
func (s *Store) ListCaptures() []CaptureSummary {
	entries, err := os.ReadDir(s.resultsDir)
	if err != nil {
		s.log.WithError(err).Warn("cannot read results directory")
		return []CaptureSummary{}
	}

	summaries := make([]CaptureSummary, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		captureID := strings.TrimSuffix(entry.Name(), ".json")
		report, err := s.LoadReport(captureID)
		if err != nil || report == nil {
			s.log.WithError(err).WithField("file", entry.Name()).Warn("skipping unreadable report")
			continue
		}

		itemCount := 0
		photoCount := len(report.UnassignedPhotos)
		for _, room := range report.Rooms {
			itemCount += len(room.Inventory)
			photoCount += len(room.Photos)
		}

		date := report.CaptureDate
		if date == "" {
			if info, err := entry.Info(); err == nil {
				date = info.ModTime().UTC().Format(time.RFC3339)
			}
		}

		summaries = append(summaries, CaptureSummary{
			ID:              captureID,
			PropertyName:    report.PropertyName,
			PropertyAddress: report.PropertyAddress,
			Status:          "complete",
			Date:            date,
			RoomCount:       len(report.Rooms),
			ItemCount:       itemCount,
			PhotoCount:      photoCount,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Date > summaries[j].Date
	})
	return summaries
}

// DeleteCapture removes a capture's directory and its persisted report.
// Retried a few times to ride out transient file locks.
func (s *Store) DeleteCapture(captureID string) error {
	captureDir := filepath.Join(s.capturesDir, captureID)
	resultFile := filepath.Join(s.resultsDir, captureID+".json")

	var lastErr error
	for attempt := 1; attempt <= deleteRetries; attempt++ {
		if err := os.RemoveAll(captureDir); err != nil {
			lastErr = err
		} else if err := removeIfExists(resultFile); err != nil {
			lastErr = err
		} else {
			s.log.WithCapture(captureID).Info("capture deleted")
			return nil
		}
		s.log.WithError(lastErr).WithField("attempt", attempt).Warn("capture delete failed")
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("delete capture %s: %w", captureID, lastErr)
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
