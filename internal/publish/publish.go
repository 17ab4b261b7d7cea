package publish

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"property-capture-go/internal/logger"
	"property-capture-go/internal/types"
)

// Publisher upserts a compiled report into the external workspace
// collection. Failures here degrade the publishSync stage, never the capture.
type Publisher struct {
	client  *Client
	baseURL string
	log     *logger.Logger
}

func NewPublisher(client *Client, backendBaseURL string) *Publisher {
	return &Publisher{
		client:  client,
		baseURL: backendBaseURL,
		log:     logger.New(),
	}
}

func NewPublisherFromEnv() *Publisher {
	return NewPublisher(NewClientFromEnv(), os.Getenv("BACKEND_BASE_URL"))
}

// Configured reports whether the external service can be reached at all.
func (p *Publisher) Configured() bool {
	return p.client.Configured()
}

// Publish upserts the report: an existing entry with the same property name
// gets its fields updated and its body content fully replaced; otherwise a
// new entry is created. Returns nil without error when not configured.
func (p *Publisher) Publish(ctx context.Context, report *types.Report) (*types.PublishRef, error) {
	log := p.log.WithCapture(report.CaptureID)

	if !p.Configured() {
		log.Warn("publish service not configured, skipping sync")
		return nil, nil
	}

	log.WithField("property", report.PropertyName).Info("publishing report")

	// A failed search degrades to the create path rather than aborting.
	pageID, err := p.client.QueryByTitle(ctx, report.PropertyName)
	if err != nil {
		log.WithError(err).Warn("could not search for existing entry")
		pageID = ""
	}

	properties := buildPageProperties(report, p.baseURL)

	if pageID != "" {
		log.WithField("page_id", pageID).Info("updating existing entry")
		if err := p.client.UpdatePage(ctx, pageID, properties); err != nil {
			return nil, fmt.Errorf("update entry: %w", err)
		}
		p.clearPageContent(ctx, pageID)
	} else {
		log.Info("creating new entry")
		pageID, err = p.client.CreatePage(ctx, properties)
		if err != nil {
			return nil, fmt.Errorf("create entry: %w", err)
		}
	}

	blocks := buildContentBlocks(report, p.baseURL)
	if err := p.appendInBatches(ctx, pageID, blocks); err != nil {
		return nil, fmt.Errorf("append content: %w", err)
	}

	ref := &types.PublishRef{
		PageID:  pageID,
		PageURL: "https://notion.so/" + strings.ReplaceAll(pageID, "-", ""),
	}
	log.WithField("page_url", ref.PageURL).Info("publish complete")
	return ref, nil
}

// clearPageContent deletes the existing body so an update replaces rather
// than appends. Best-effort: leftovers are preferable to a failed sync.
func (p *Publisher) clearPageContent(ctx context.Context, pageID string) {
	children, err := p.client.ListChildren(ctx, pageID)
	if err != nil {
		p.log.WithError(err).Warn("could not list existing page content")
		return
	}
	for _, id := range children {
		if err := p.client.DeleteBlock(ctx, id); err != nil {
			p.log.WithError(err).WithField("block_id", id).Warn("could not delete block")
		}
	}
}

func (p *Publisher) appendInBatches(ctx context.Context, pageID string, blocks []Block) error {
	for i := 0; i < len(blocks); i += childLimit {
		end := i + childLimit
		if end > len(blocks) {
			end = len(blocks)
		}
		if err := p.client.AppendChildren(ctx, pageID, blocks[i:end]); err != nil {
			return err
		}
		p.log.WithField("from", i+1).WithField("to", end).WithField("total", len(blocks)).
			Info("appended content blocks")
	}
	return nil
}

var propertyTypeNames = map[string]string{
	"house":     "House",
	"apartment": "Apartment",
	"condo":     "Condo",
	"townhouse": "Townhouse",
}

// buildPageProperties maps the report onto the collection's structured
// fields.
func buildPageProperties(report *types.Report, baseURL string) map[string]any {
	overview := report.PropertyOverview

	name := report.PropertyName
	if name == "" {
		name = "Unnamed"
	}
	totalRooms := overview.TotalRooms
	if totalRooms == 0 {
		totalRooms = len(report.Rooms)
	}
	captureDate := report.CaptureDate
	if captureDate == "" {
		captureDate = time.Now().UTC().Format(time.RFC3339)
	}

	properties := map[string]any{
		"Property Name": map[string]any{
			"title": []any{map[string]any{"text": map[string]any{"content": name}}},
		},
		"Address": map[string]any{
			"rich_text": []any{map[string]any{"text": map[string]any{"content": report.PropertyAddress}}},
		},
		"Status": map[string]any{
			"select": map[string]any{"name": "Onboarding"},
		},
		"Total Rooms": map[string]any{"number": totalRooms},
		"Onboarding Date": map[string]any{
			"date": map[string]any{"start": captureDate},
		},
		"Has Outdoor Space": map[string]any{"checkbox": overview.HasOutdoorSpace},
	}

	if overview.EstimatedBedrooms > 0 {
		properties["Bedrooms"] = map[string]any{"number": overview.EstimatedBedrooms}
	}
	if overview.EstimatedBathrooms > 0 {
		properties["Bathrooms"] = map[string]any{"number": overview.EstimatedBathrooms}
	}
	if overview.PropertyType != "" {
		typeName, ok := propertyTypeNames[strings.ToLower(overview.PropertyType)]
		if !ok {
			typeName = "Other"
		}
		properties["Property Type"] = map[string]any{"select": map[string]any{"name": typeName}}
	}
	if overview.GeneralNotes != "" {
		properties["General Notes"] = map[string]any{
			"rich_text": []any{map[string]any{"text": map[string]any{"content": truncate(overview.GeneralNotes, maxTextLen)}}},
		}
	}
	if videoURL := resolvePhotoURL(report.RawData.VideoURL, baseURL); videoURL != "" {
		properties["Capture Video"] = map[string]any{"url": videoURL}
	}

	return properties
}

// buildContentBlocks assembles the page body: access info, per-room
// inventory/features/notes/photos, systems, then the full transcript.
func buildContentBlocks(report *types.Report, baseURL string) []Block {
	var blocks []Block

	dateStr := "Unknown date"
	if report.CaptureDate != "" {
		if parsed, err := time.Parse(time.RFC3339, report.CaptureDate); err == nil {
			dateStr = parsed.Format("January 2, 2006")
		}
	}
	blocks = append(blocks, callout(fmt.Sprintf("Onboarded on %s via walkthrough capture", dateStr), "📋"))
	blocks = append(blocks, paragraph(""))

	blocks = append(blocks, accessBlocks(report.PropertyAccess)...)

	for _, room := range report.Rooms {
		blocks = append(blocks, roomBlocks(room, baseURL)...)
	}

	blocks = append(blocks, systemsBlocks(report.SystemsAndUtilities)...)

	if report.FullTranscript != "" {
		blocks = append(blocks, heading2("📝 Full Walkthrough Transcript"))
		chunks := chunkText(report.FullTranscript, transcriptChunkLen)
		transcriptBlocks := make([]Block, len(chunks))
		for i, chunk := range chunks {
			transcriptBlocks[i] = paragraph(chunk)
		}
		blocks = append(blocks, toggle("Click to expand full transcript", transcriptBlocks))
	}

	return blocks
}

func accessBlocks(access types.PropertyAccess) []Block {
	var lines []string
	if access.WifiName != "" {
		password := access.WifiPassword
		if password == "" {
			password = "(no password)"
		}
		lines = append(lines, fmt.Sprintf("📶 WiFi: %s / %s", access.WifiName, password))
	}
	if access.LockboxCode != "" {
		lines = append(lines, "🔐 Lockbox Code: "+access.LockboxCode)
	}
	if access.GateCode != "" {
		lines = append(lines, "🚪 Gate Code: "+access.GateCode)
	}
	if access.ParkingInstructions != "" {
		lines = append(lines, "🅿️ Parking: "+access.ParkingInstructions)
	}
	for _, note := range access.OtherAccess {
		lines = append(lines, "📌 "+note)
	}
	if len(lines) == 0 {
		return nil
	}
	return []Block{
		heading2("🔑 Access Information"),
		callout(strings.Join(lines, "\n"), "🔑"),
		paragraph(""),
	}
}

func roomBlocks(room types.ReportRoom, baseURL string) []Block {
	name := room.RoomName
	if name == "" {
		name = "Unknown Room"
	}
	blocks := []Block{heading2("🚪 " + name)}

	if len(room.Inventory) > 0 {
		items := make([]Block, len(room.Inventory))
		for i, item := range room.Inventory {
			quantity := item.Quantity
			if quantity == 0 {
				quantity = 1
			}
			line := fmt.Sprintf("%dx %s", quantity, item.Item)
			if item.Notes != "" {
				line += " — " + item.Notes
			}
			if item.Condition != "" && item.Condition != "good" {
				line += fmt.Sprintf(" (%s)", item.Condition)
			}
			items[i] = bullet(line)
		}
		blocks = append(blocks, toggle(fmt.Sprintf("📦 Inventory (%d items)", len(room.Inventory)), items))
	}

	if len(room.Features) > 0 {
		features := make([]Block, len(room.Features))
		for i, f := range room.Features {
			features[i] = bullet(f)
		}
		blocks = append(blocks, toggle("✨ Room Features", features))
	}

	notes := append(append([]string{}, room.QuirksAndNotes...), room.CleaningNotes...)
	if len(notes) > 0 {
		noteBlocks := make([]Block, len(notes))
		for i, n := range notes {
			noteBlocks[i] = bullet(n)
		}
		blocks = append(blocks, toggle("📝 Notes & Quirks", noteBlocks))
	}

	for _, photo := range room.Photos {
		url := resolvePhotoURL(photo.PhotoURL, baseURL)
		if url == "" {
			continue
		}
		caption := fmt.Sprintf("%s — %s", name, formatClock(photo.Timestamp))
		blocks = append(blocks, imageBlock(url, caption))
	}

	blocks = append(blocks, paragraph(""))
	return blocks
}

func systemsBlocks(systems types.SystemsAndUtilities) []Block {
	var bullets []Block
	if systems.HVAC != "" {
		bullets = append(bullets, bullet("HVAC: "+systems.HVAC))
	}
	if systems.WaterHeater != "" {
		bullets = append(bullets, bullet("Water Heater: "+systems.WaterHeater))
	}
	if systems.BreakerBox != "" {
		bullets = append(bullets, bullet("Breaker Box: "+systems.BreakerBox))
	}
	if systems.WaterShutoff != "" {
		bullets = append(bullets, bullet("Water Shutoff: "+systems.WaterShutoff))
	}
	if systems.TrashDay != "" {
		bullets = append(bullets, bullet("Trash Day: "+systems.TrashDay))
	}
	for _, s := range systems.OtherSystems {
		bullets = append(bullets, bullet(s))
	}
	if len(bullets) == 0 {
		return nil
	}
	blocks := []Block{heading2("⚙️ Systems & Utilities")}
	blocks = append(blocks, bullets...)
	blocks = append(blocks, paragraph(""))
	return blocks
}
