package types

// TranscriptItem is one caption line from the capture wizard's live
// speech-to-text, time-ascending by convention.
type TranscriptItem struct {
	Text             string  `json:"text"`
	TimestampSeconds float64 `json:"timestampSeconds"`
}

// RoomBoundary is a user-placed "entered this room" marker. Advisory only —
// segmentation may ignore or adjust it.
type RoomBoundary struct {
	RoomName         string  `json:"roomName"`
	TimestampSeconds float64 `json:"timestampSeconds"`
}

// PhotoMetadata is client-supplied, index-aligned with the uploaded photo
// files. AssociatedRoom is a manual override from the review screen.
type PhotoMetadata struct {
	TimestampSeconds float64 `json:"timestampSeconds"`
	AssociatedRoom   string  `json:"associatedRoom,omitempty"`
}

// PhotoFile references an already-placed photo on disk.
type PhotoFile struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
}

type InventoryItem struct {
	Item      string `json:"item"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes,omitempty"`
	Condition string `json:"condition,omitempty"`
}

// Room is one segment of the walkthrough as returned by the segmentation
// service. StartTimestamp <= EndTimestamp is expected but not guaranteed;
// an inverted window simply matches no photos.
type Room struct {
	RoomID            string          `json:"roomId"`
	RoomName          string          `json:"roomName"`
	RoomType          string          `json:"roomType,omitempty"`
	StartTimestamp    float64         `json:"startTimestamp"`
	EndTimestamp      float64         `json:"endTimestamp"`
	TranscriptExcerpt string          `json:"transcriptExcerpt,omitempty"`
	Inventory         []InventoryItem `json:"inventory"`
	Features          []string        `json:"features"`
	QuirksAndNotes    []string        `json:"quirksAndNotes"`
	AccessInfo        []string        `json:"accessInfo"`
	CleaningNotes     []string        `json:"cleaningNotes"`
}

type PropertyOverview struct {
	TotalRooms         int    `json:"totalRooms"`
	PropertyType       string `json:"propertyType,omitempty"`
	EstimatedBedrooms  int    `json:"estimatedBedrooms,omitempty"`
	EstimatedBathrooms int    `json:"estimatedBathrooms,omitempty"`
	HasOutdoorSpace    bool   `json:"hasOutdoorSpace"`
	GeneralNotes       string `json:"generalNotes,omitempty"`
}

type PropertyAccess struct {
	WifiName            string   `json:"wifiName,omitempty"`
	WifiPassword        string   `json:"wifiPassword,omitempty"`
	LockboxCode         string   `json:"lockboxCode,omitempty"`
	ParkingInstructions string   `json:"parkingInstructions,omitempty"`
	GateCode            string   `json:"gateCode,omitempty"`
	OtherAccess         []string `json:"otherAccess"`
}

type SystemsAndUtilities struct {
	HVAC         string   `json:"hvac,omitempty"`
	WaterHeater  string   `json:"waterHeater,omitempty"`
	BreakerBox   string   `json:"breakerBox,omitempty"`
	WaterShutoff string   `json:"waterShutoff,omitempty"`
	TrashDay     string   `json:"trashDay,omitempty"`
	OtherSystems []string `json:"otherSystems"`
}

// SegmentationResult is the full structured output of the segmentation
// service for one capture.
type SegmentationResult struct {
	PropertyOverview    PropertyOverview    `json:"propertyOverview"`
	Rooms               []Room              `json:"rooms"`
	PropertyAccess      PropertyAccess      `json:"propertyAccess"`
	SystemsAndUtilities SystemsAndUtilities `json:"systemsAndUtilities"`
}

// AssociatedPhoto is a photo after room matching. RoomID is empty when the
// photo is labeled but not linked to a known room; RoomName is "unassigned"
// when no match was found at all.
type AssociatedPhoto struct {
	PhotoURL     string  `json:"photoUrl"`
	ThumbnailURL string  `json:"thumbnailUrl"`
	Timestamp    float64 `json:"timestamp"`
	RoomID       string  `json:"roomId,omitempty"`
	RoomName     string  `json:"roomName"`
}

type RoomClip struct {
	RoomID  string `json:"roomId"`
	ClipURL string `json:"clipUrl"`
}

type ReportPhoto struct {
	PhotoURL     string  `json:"photoUrl"`
	ThumbnailURL string  `json:"thumbnailUrl"`
	Timestamp    float64 `json:"timestamp"`
}

type ReportRoom struct {
	Room
	Photos       []ReportPhoto `json:"photos"`
	VideoClipURL string        `json:"videoClipUrl,omitempty"`
}

type RawMedia struct {
	VideoURL      string `json:"videoUrl,omitempty"`
	TranscriptURL string `json:"transcriptUrl,omitempty"`
}

// PublishRef points at the workspace document a report was published to.
type PublishRef struct {
	PageURL string `json:"pageUrl"`
	PageID  string `json:"pageId"`
}

// Report is the final persisted artifact for a capture. Written once per
// successful run, rewritten once more if publish sync records a PublishRef.
type Report struct {
	CaptureID           string              `json:"captureId"`
	PropertyName        string              `json:"propertyName"`
	PropertyAddress     string              `json:"propertyAddress"`
	CaptureDate         string              `json:"captureDate"`
	RecordingDuration   float64             `json:"recordingDuration"`
	PropertyOverview    PropertyOverview    `json:"propertyOverview"`
	Rooms               []ReportRoom        `json:"rooms"`
	UnassignedPhotos    []ReportPhoto       `json:"unassignedPhotos"`
	PropertyAccess      PropertyAccess      `json:"propertyAccess"`
	SystemsAndUtilities SystemsAndUtilities `json:"systemsAndUtilities"`
	FullTranscript      string              `json:"fullTranscript"`
	RawData             RawMedia            `json:"rawData"`
	NotionPage          *PublishRef         `json:"notionPage,omitempty"`
}

// Capture is one walkthrough upload, immutable once the pipeline starts.
// Files referenced here are already durably placed by the upload layer.
type Capture struct {
	PropertyName    string           `json:"propertyName"`
	PropertyAddress string           `json:"propertyAddress"`
	Transcript      []TranscriptItem `json:"transcript"`
	RoomBoundaries  []RoomBoundary   `json:"roomBoundaries"`
	PhotoMetadata   []PhotoMetadata  `json:"photoMetadata"`
	PhotoFiles      []PhotoFile      `json:"photoFiles"`
	VideoPath       string           `json:"videoPath,omitempty"`
	DurationSeconds float64          `json:"durationSeconds,omitempty"`
}
