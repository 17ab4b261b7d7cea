package segmentation

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"property-capture-go/internal/logger"
	"property-capture-go/internal/types"
)

// Completer is the segmentation service boundary: one instruction set, one
// user text, one text response (expected to be JSON, possibly fenced).
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userText string) (string, error)
}

// Orchestrator turns a timestamped transcript into a room-segmented result.
type Orchestrator struct {
	client Completer
	log    *logger.Logger
}

func NewOrchestrator(client Completer) *Orchestrator {
	return &Orchestrator{
		client: client,
		log:    logger.New(),
	}
}

// SegmentRooms calls the segmentation service with the full instruction set,
// and on any failure retries exactly once with the simplified set. A failure
// of the retry is fatal to the capture and is propagated.
func (o *Orchestrator) SegmentRooms(ctx context.Context, items []types.TranscriptItem, boundaries []types.RoomBoundary) (types.SegmentationResult, error) {
	log := o.log.WithField("module", "segmentation")

	userText := buildUserText(items, boundaries)

	log.WithField("items", len(items)).WithField("boundaries", len(boundaries)).
		Info("requesting room segmentation")

	result, err := o.attempt(ctx, roomSegmentationSystemPrompt, userText)
	if err == nil {
		return result, nil
	}

	log.WithError(err).Warn("segmentation attempt failed, retrying with simplified instructions")

	result, retryErr := o.attempt(ctx, simplifiedSystemPrompt, userText)
	if retryErr != nil {
		log.WithError(retryErr).Error("segmentation retry failed")
		return types.SegmentationResult{}, fmt.Errorf("segmentation failed after retry: %w", retryErr)
	}
	return result, nil
}

func (o *Orchestrator) attempt(ctx context.Context, systemPrompt, userText string) (types.SegmentationResult, error) {
	raw, err := o.client.Complete(ctx, systemPrompt, userText)
	if err != nil {
		return types.SegmentationResult{}, err
	}
	result, err := parseResult(raw)
	if err != nil {
		return types.SegmentationResult{}, err
	}
	o.log.WithField("rooms", len(result.Rooms)).Info("segmentation service returned rooms")
	return result, nil
}

// buildUserText renders the transcript and boundary markers as [m:ss] lines.
func buildUserText(items []types.TranscriptItem, boundaries []types.RoomBoundary) string {
	var b strings.Builder
	b.WriteString("Here is the timestamped transcript of a property walkthrough:\n\n")

	for _, item := range items {
		fmt.Fprintf(&b, "[%s] %s\n", formatTimestamp(item.TimestampSeconds), item.Text)
	}

	if len(boundaries) > 0 {
		b.WriteString("\n\nThe user also placed these room boundary markers during recording:\n")
		for _, boundary := range boundaries {
			fmt.Fprintf(&b, "[%s] --- Entered: %s ---\n", formatTimestamp(boundary.TimestampSeconds), boundary.RoomName)
		}
	}

	b.WriteString("\n\nPlease segment this transcript into rooms and extract all details.")
	return b.String()
}

func formatTimestamp(seconds float64) string {
	mins := int(math.Floor(seconds / 60))
	secs := int(math.Floor(math.Mod(seconds, 60)))
	return fmt.Sprintf("%d:%02d", mins, secs)
}

// parseResult strips code-fence markers, parses the JSON document, and
// merges in default-empty values for anything the service omitted.
func parseResult(raw string) (types.SegmentationResult, error) {
	text := stripFences(raw)

	var result types.SegmentationResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		preview := text
		if len(preview) > 500 {
			preview = preview[:500]
		}
		return types.SegmentationResult{}, fmt.Errorf("parse segmentation response: %w (response: %q)", err, preview)
	}

	applyDefaults(&result)
	return result, nil
}

func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if i := strings.Index(text, "\n"); i >= 0 {
		text = text[i+1:]
	} else {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// applyDefaults backfills everything downstream code indexes into, so a
// sparse but valid response never produces nil slices or blank room IDs.
func applyDefaults(result *types.SegmentationResult) {
	if result.Rooms == nil {
		result.Rooms = []types.Room{}
	}
	for i := range result.Rooms {
		room := &result.Rooms[i]
		if room.RoomID == "" {
			room.RoomID = fmt.Sprintf("room-%d", i+1)
		}
		if room.RoomName == "" {
			room.RoomName = room.RoomID
		}
		if room.Inventory == nil {
			room.Inventory = []types.InventoryItem{}
		}
		if room.Features == nil {
			room.Features = []string{}
		}
		if room.QuirksAndNotes == nil {
			room.QuirksAndNotes = []string{}
		}
		if room.AccessInfo == nil {
			room.AccessInfo = []string{}
		}
		if room.CleaningNotes == nil {
			room.CleaningNotes = []string{}
		}
	}
	if result.PropertyAccess.OtherAccess == nil {
		result.PropertyAccess.OtherAccess = []string{}
	}
	if result.SystemsAndUtilities.OtherSystems == nil {
		result.SystemsAndUtilities.OtherSystems = []string{}
	}
}
