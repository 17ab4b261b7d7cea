package photos

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-capture-go/internal/storage"
	"property-capture-go/internal/types"
)

type okThumbnailer struct{ calls int }

func (o *okThumbnailer) Thumbnail(src, dest string) error {
	o.calls++
	return os.WriteFile(dest, []byte("thumb"), 0o644)
}

type failingThumbnailer struct{}

func (failingThumbnailer) Thumbnail(src, dest string) error {
	return errors.New("image tool unavailable")
}

var testRooms = []types.Room{
	{RoomID: "room-1", RoomName: "Primary Bedroom", StartTimestamp: 0, EndTimestamp: 45},
	{RoomID: "room-2", RoomName: "Kitchen", StartTimestamp: 30, EndTimestamp: 90},
	{RoomID: "room-3", RoomName: "Garage", StartTimestamp: 100, EndTimestamp: 60}, // inverted window
}

func setup(t *testing.T, thumb Thumbnailer) (*Associator, func(name string) types.PhotoFile) {
	t.Helper()
	store, err := storage.NewStore(t.TempDir())
	require.NoError(t, err)

	photoDir := t.TempDir()
	makePhoto := func(name string) types.PhotoFile {
		path := filepath.Join(photoDir, name)
		require.NoError(t, os.WriteFile(path, []byte("jpeg bytes"), 0o644))
		return types.PhotoFile{Filename: name, Path: path}
	}
	return NewAssociator(store, thumb), makePhoto
}

func TestAssociateNoPhotos(t *testing.T) {
	a, _ := setup(t, &okThumbnailer{})
	result := a.Associate("cap-1", nil, nil, testRooms)
	assert.NotNil(t, result)
	assert.Empty(t, result)
}

func TestAssociateOverrideWinsOverTimestamp(t *testing.T) {
	a, makePhoto := setup(t, &okThumbnailer{})

	result := a.Associate("cap-1",
		[]types.PhotoFile{makePhoto("p0.jpg")},
		[]types.PhotoMetadata{{TimestampSeconds: 10, AssociatedRoom: "kitchen"}},
		testRooms,
	)

	require.Len(t, result, 1)
	// override label is verbatim, room linkage resolved case-insensitively
	assert.Equal(t, "kitchen", result[0].RoomName)
	assert.Equal(t, "room-2", result[0].RoomID)
}

func TestAssociateOverrideUnknownRoom(t *testing.T) {
	a, makePhoto := setup(t, &okThumbnailer{})

	result := a.Associate("cap-1",
		[]types.PhotoFile{makePhoto("p0.jpg")},
		[]types.PhotoMetadata{{TimestampSeconds: 10, AssociatedRoom: "Wine Cellar"}},
		testRooms,
	)

	require.Len(t, result, 1)
	assert.Equal(t, "Wine Cellar", result[0].RoomName)
	assert.Empty(t, result[0].RoomID)
}

func TestAssociateTimestampWindow(t *testing.T) {
	a, makePhoto := setup(t, &okThumbnailer{})

	result := a.Associate("cap-1",
		[]types.PhotoFile{makePhoto("p0.jpg"), makePhoto("p1.jpg")},
		[]types.PhotoMetadata{{TimestampSeconds: 50}, {TimestampSeconds: 45}},
		testRooms,
	)

	require.Len(t, result, 2)
	assert.Equal(t, "room-2", result[0].RoomID)
	// overlap at 45s resolves to the first room in list order
	assert.Equal(t, "room-1", result[1].RoomID)
	assert.Equal(t, "Primary Bedroom", result[1].RoomName)
}

func TestAssociateUnassigned(t *testing.T) {
	a, makePhoto := setup(t, &okThumbnailer{})

	result := a.Associate("cap-1",
		[]types.PhotoFile{makePhoto("p0.jpg")},
		[]types.PhotoMetadata{{TimestampSeconds: 95}}, // between windows; inverted room-3 never matches
		testRooms,
	)

	require.Len(t, result, 1)
	assert.Equal(t, UnassignedRoom, result[0].RoomName)
	assert.Empty(t, result[0].RoomID)
}

func TestAssociateMissingMetadataDefaults(t *testing.T) {
	a, makePhoto := setup(t, &okThumbnailer{})

	result := a.Associate("cap-1",
		[]types.PhotoFile{makePhoto("p0.jpg")},
		nil,
		testRooms,
	)

	require.Len(t, result, 1)
	assert.Equal(t, 0.0, result[0].Timestamp)
	assert.Equal(t, "room-1", result[0].RoomID) // 0s falls in room-1's window
}

func TestAssociateThumbnailFallback(t *testing.T) {
	a, makePhoto := setup(t, failingThumbnailer{})

	result := a.Associate("cap-1",
		[]types.PhotoFile{makePhoto("p0.jpg")},
		[]types.PhotoMetadata{{TimestampSeconds: 10}},
		testRooms,
	)

	require.Len(t, result, 1)
	assert.Equal(t, result[0].PhotoURL, result[0].ThumbnailURL)
}

func TestAssociateThumbnailURL(t *testing.T) {
	thumb := &okThumbnailer{}
	a, makePhoto := setup(t, thumb)

	result := a.Associate("cap-1",
		[]types.PhotoFile{makePhoto("p0.jpg")},
		[]types.PhotoMetadata{{TimestampSeconds: 10}},
		testRooms,
	)

	require.Len(t, result, 1)
	assert.Equal(t, "/api/files/captures/cap-1/photos/p0.jpg", result[0].PhotoURL)
	assert.Equal(t, "/api/files/captures/cap-1/thumbnails/thumb-p0.jpg", result[0].ThumbnailURL)
	assert.Equal(t, 1, thumb.calls)
}

func TestAssociateSkipsUnreadableFile(t *testing.T) {
	a, makePhoto := setup(t, &okThumbnailer{})

	result := a.Associate("cap-1",
		[]types.PhotoFile{
			{Filename: "ghost.jpg", Path: "/nope/ghost.jpg"},
			makePhoto("p1.jpg"),
		},
		[]types.PhotoMetadata{{TimestampSeconds: 5}, {TimestampSeconds: 50}},
		testRooms,
	)

	require.Len(t, result, 1)
	assert.Equal(t, "room-2", result[0].RoomID)
}
