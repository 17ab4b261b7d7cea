package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"property-capture-go/internal/types"
)

// fakeNotion records requests and plays a minimal Notion API.
type fakeNotion struct {
	existingPageID string
	existingBlocks []string
	requests       []string
	appended       int
	deleted        []string
	updatedPages   []string
}

func (f *fakeNotion) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/query"):
			results := []map[string]any{}
			if f.existingPageID != "" {
				results = append(results, map[string]any{"id": f.existingPageID})
			}
			json.NewEncoder(w).Encode(map[string]any{"results": results})

		case r.Method == http.MethodPost && r.URL.Path == "/v1/pages":
			json.NewEncoder(w).Encode(map[string]any{"id": "page-new"})

		case r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, "/v1/pages/"):
			f.updatedPages = append(f.updatedPages, strings.TrimPrefix(r.URL.Path, "/v1/pages/"))
			json.NewEncoder(w).Encode(map[string]any{"id": f.existingPageID})

		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/children"):
			results := make([]map[string]any, len(f.existingBlocks))
			for i, id := range f.existingBlocks {
				results[i] = map[string]any{"id": id}
			}
			json.NewEncoder(w).Encode(map[string]any{"results": results})

		case r.Method == http.MethodPatch && strings.HasSuffix(r.URL.Path, "/children"):
			var body struct {
				Children []any `json:"children"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			f.appended += len(body.Children)
			json.NewEncoder(w).Encode(map[string]any{"results": []any{}})

		case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/v1/blocks/"):
			f.deleted = append(f.deleted, strings.TrimPrefix(r.URL.Path, "/v1/blocks/"))
			json.NewEncoder(w).Encode(map[string]any{})

		default:
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]any{"message": "no route"})
		}
	})
}

func newTestPublisher(t *testing.T, fake *fakeNotion) (*Publisher, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	client := NewClient("secret-key", "db-1", srv.URL)
	client.limiter = rate.NewLimiter(rate.Inf, 1) // no gating in flow tests
	return NewPublisher(client, "http://api.example.com"), srv
}

func sampleReport() *types.Report {
	return &types.Report{
		CaptureID:      "cap-1",
		PropertyName:   "Lakehouse",
		CaptureDate:    "2026-08-30T12:00:00Z",
		FullTranscript: "This is the Kitchen.",
		Rooms: []types.ReportRoom{{
			Room: types.Room{RoomID: "room-1", RoomName: "Kitchen",
				Inventory: []types.InventoryItem{{Item: "Kettle", Quantity: 1}}},
			Photos: []types.ReportPhoto{},
		}},
	}
}

func TestPublishNotConfigured(t *testing.T) {
	p := NewPublisher(NewClient("", "", ""), "")
	assert.False(t, p.Configured())

	ref, err := p.Publish(context.Background(), sampleReport())
	require.NoError(t, err)
	assert.Nil(t, ref)
}

func TestPublishCreatesNewEntry(t *testing.T) {
	fake := &fakeNotion{}
	p, _ := newTestPublisher(t, fake)

	ref, err := p.Publish(context.Background(), sampleReport())
	require.NoError(t, err)
	require.NotNil(t, ref)

	assert.Equal(t, "page-new", ref.PageID)
	assert.Equal(t, "https://notion.so/pagenew", ref.PageURL)
	assert.Contains(t, fake.requests, "POST /v1/databases/db-1/query")
	assert.Contains(t, fake.requests, "POST /v1/pages")
	assert.Greater(t, fake.appended, 0)
	assert.Empty(t, fake.deleted)
}

func TestPublishUpdatesExistingEntry(t *testing.T) {
	fake := &fakeNotion{
		existingPageID: "page-123",
		existingBlocks: []string{"block-a", "block-b"},
	}
	p, _ := newTestPublisher(t, fake)

	ref, err := p.Publish(context.Background(), sampleReport())
	require.NoError(t, err)
	require.NotNil(t, ref)

	assert.Equal(t, "page-123", ref.PageID)
	assert.Equal(t, []string{"page-123"}, fake.updatedPages)
	// replaced, not appended to: old body deleted first
	assert.Equal(t, []string{"block-a", "block-b"}, fake.deleted)
	assert.Greater(t, fake.appended, 0)
	assert.NotContains(t, fake.requests, "POST /v1/pages")
}

func TestPublishBatchesAppends(t *testing.T) {
	fake := &fakeNotion{}
	p, _ := newTestPublisher(t, fake)

	report := sampleReport()
	// enough rooms to exceed one 100-block batch
	for i := 0; i < 120; i++ {
		report.Rooms = append(report.Rooms, types.ReportRoom{
			Room: types.Room{RoomID: "r", RoomName: "Bedroom"},
		})
	}

	_, err := p.Publish(context.Background(), report)
	require.NoError(t, err)

	appendCalls := 0
	for _, r := range fake.requests {
		if strings.HasSuffix(r, "/children") && strings.HasPrefix(r, "PATCH") {
			appendCalls++
		}
	}
	assert.GreaterOrEqual(t, appendCalls, 2)
}

func TestPublishErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"token revoked"}`))
	}))
	defer srv.Close()

	client := NewClient("secret-key", "db-1", srv.URL)
	client.limiter = rate.NewLimiter(rate.Inf, 1)
	p := NewPublisher(client, "")

	_, err := p.Publish(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token revoked")
}

// Two back-to-back calls must be spaced by at least the rate floor.
func TestRateGateSpacing(t *testing.T) {
	var stamps []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stamps = append(stamps, time.Now())
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient("secret-key", "db-1", srv.URL)

	ctx := context.Background()
	require.NoError(t, client.doJSON(ctx, http.MethodPost, "/v1/pages", map[string]any{}, nil))
	require.NoError(t, client.doJSON(ctx, http.MethodPost, "/v1/pages", map[string]any{}, nil))

	require.Len(t, stamps, 2)
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), rateFloor-20*time.Millisecond)
}

func TestDoJSONRetriesServerErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"id":"page-new"}`))
	}))
	defer srv.Close()

	client := NewClient("secret-key", "db-1", srv.URL)
	client.limiter = rate.NewLimiter(rate.Inf, 1)

	var out struct {
		ID string `json:"id"`
	}
	err := client.doJSON(context.Background(), http.MethodPost, "/v1/pages", map[string]any{}, &out)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, "page-new", out.ID)
}
