package status

import (
	"fmt"
	"sync"
	"time"

	"property-capture-go/internal/types"
)

// Capture states
const (
	StateProcessing = "processing"
	StateComplete   = "complete"
	StateFailed     = "failed"
)

// Stage values
const (
	StagePending    = "pending"
	StageProcessing = "processing"
	StageComplete   = "complete"
	StageFailed     = "failed"
	StageSkipped    = "skipped"
)

// Stage names
const (
	StageTranscription       = "transcription"
	StageRoomSegmentation    = "roomSegmentation"
	StageInventoryExtraction = "inventoryExtraction"
	StagePhotoAssociation    = "photoAssociation"
	StagePublishSync         = "publishSync"
)

// Status is the polling view of one capture's pipeline run.
type Status struct {
	CaptureID string            `json:"captureId"`
	Status    string            `json:"status"`
	CreatedAt string            `json:"createdAt"`
	Progress  map[string]string `json:"progress"`
	Result    *types.Report     `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Tracker holds processing status in process memory. A restart loses
// in-flight entries; completed results stay recoverable from the durable
// store. Entries are never expired — they live until DeleteStatus, so the
// map grows with uptime.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]*Status
}

func NewTracker() *Tracker {
	return &Tracker{entries: make(map[string]*Status)}
}

// Init creates a fresh entry in processing state with all stages pending.
// Initializing an ID that already exists is a caller bug.
func (t *Tracker) Init(captureID string) (Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[captureID]; exists {
		return Status{}, fmt.Errorf("status already initialized for capture %s", captureID)
	}

	s := &Status{
		CaptureID: captureID,
		Status:    StateProcessing,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Progress: map[string]string{
			StageTranscription:       StagePending,
			StageRoomSegmentation:    StagePending,
			StageInventoryExtraction: StagePending,
			StagePhotoAssociation:    StagePending,
			StagePublishSync:         StagePending,
		},
	}
	t.entries[captureID] = s
	return snapshot(s), nil
}

// Get returns a snapshot of the current status, or false if unknown.
func (t *Tracker) Get(captureID string) (Status, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.entries[captureID]
	if !ok {
		return Status{}, false
	}
	return snapshot(s), true
}

// Update sets one stage's value. Unknown captures are a no-op.
func (t *Tracker) Update(captureID, stage, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.entries[captureID]; ok {
		s.Progress[stage] = value
	}
}

// Complete moves the capture to its terminal complete state and attaches the
// compiled report. Ignored if the capture is unknown or already terminal.
func (t *Tracker) Complete(captureID string, result *types.Report) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.entries[captureID]
	if !ok || s.Status != StateProcessing {
		return
	}
	s.Status = StateComplete
	s.Result = result
}

// Fail moves the capture to its terminal failed state, recording the error
// message. Ignored if the capture is unknown or already terminal.
func (t *Tracker) Fail(captureID string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.entries[captureID]
	if !ok || s.Status != StateProcessing {
		return
	}
	s.Status = StateFailed
	if err != nil {
		s.Error = err.Error()
	}
}

// Delete removes the entry, typically on capture deletion.
func (t *Tracker) Delete(captureID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, captureID)
}

// ListAll returns snapshots of every tracked capture.
func (t *Tracker) ListAll() []Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Status, 0, len(t.entries))
	for _, s := range t.entries {
		out = append(out, snapshot(s))
	}
	return out
}

// snapshot copies the entry so polling readers never observe concurrent
// progress writes. The report itself is immutable once attached.
func snapshot(s *Status) Status {
	cp := *s
	cp.Progress = make(map[string]string, len(s.Progress))
	for k, v := range s.Progress {
		cp.Progress[k] = v
	}
	return cp
}
