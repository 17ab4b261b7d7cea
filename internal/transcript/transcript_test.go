package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-capture-go/internal/types"
)

func item(text string, ts float64) types.TranscriptItem {
	return types.TranscriptItem{Text: text, TimestampSeconds: ts}
}

func TestEnhanceEmptyInput(t *testing.T) {
	res := Enhance(nil, nil)
	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)
	assert.Equal(t, "", res.FullText)
}

func TestEnhanceDropsBlankItems(t *testing.T) {
	res := Enhance([]types.TranscriptItem{
		item("   ", 0),
		item("The kitchen has a gas range.", 5),
		item("", 8),
	}, nil)

	require.Len(t, res.Items, 1)
	assert.Equal(t, "The kitchen has a gas range.", res.Items[0].Text)
}

func TestEnhanceCollapsesConsecutiveDuplicates(t *testing.T) {
	res := Enhance([]types.TranscriptItem{
		item("There are two lamps here.", 0),
		item("there are two lamps here.", 1),
		item("And a ceiling fan.", 4),
		item("There are two lamps here.", 7),
	}, nil)

	require.Len(t, res.Items, 3)
	assert.Equal(t, "There are two lamps here.", res.Items[0].Text)
	assert.Equal(t, "And a ceiling fan.", res.Items[1].Text)
	// non-consecutive repeats survive
	assert.Equal(t, "There are two lamps here.", res.Items[2].Text)
}

func TestEnhanceNormalizesVocabulary(t *testing.T) {
	res := Enhance([]types.TranscriptItem{
		item("the master bathroom is off the master bedroom", 0),
		item("powder room downstairs next to the living room", 10),
	}, nil)

	require.Len(t, res.Items, 2)
	assert.Equal(t, "The Primary Bathroom is off the Primary Bedroom", res.Items[0].Text)
	assert.Equal(t, "Half Bathroom downstairs next to the Living Room", res.Items[1].Text)
}

func TestEnhanceStripsFillers(t *testing.T) {
	res := Enhance([]types.TranscriptItem{
		item("yeah so the dryer is um a little loud", 0),
	}, nil)

	require.Len(t, res.Items, 1)
	assert.Equal(t, "The dryer is a little loud", res.Items[0].Text)
}

func TestEnhanceCapitalizesSentences(t *testing.T) {
	res := Enhance([]types.TranscriptItem{
		item("the couch is new. it folds out into a queen bed.", 0),
	}, nil)

	require.Len(t, res.Items, 1)
	assert.Equal(t, "The couch is new. It folds out into a queen bed.", res.Items[0].Text)
}

// Duplicate caption events that only differ by filler words must still
// collapse to one cleaned item.
func TestEnhanceDuplicateWithFiller(t *testing.T) {
	res := Enhance([]types.TranscriptItem{
		item("Um, this is the Master Bedroom.", 0),
		item("this is the Master Bedroom.", 0),
	}, nil)

	require.Len(t, res.Items, 1)
	assert.Equal(t, "This is the Primary Bedroom.", res.Items[0].Text)
	assert.Equal(t, "This is the Primary Bedroom.", res.FullText)
}

func TestEnhanceBuildsFullText(t *testing.T) {
	res := Enhance([]types.TranscriptItem{
		item("First room.", 0),
		item("Second room.", 10),
	}, []types.RoomBoundary{{RoomName: "Kitchen", TimestampSeconds: 10}})

	assert.Equal(t, "First room. Second room.", res.FullText)
}

func TestEnhanceIdempotent(t *testing.T) {
	first := Enhance([]types.TranscriptItem{
		item("um so the   master bedroom has a king bed.", 0),
		item("Um so the master bedroom has a king bed.", 1),
		item("the half bath is down the hall. it has a pedestal sink.", 9),
	}, nil)

	second := Enhance(first.Items, nil)
	assert.Equal(t, first.Items, second.Items)
	assert.Equal(t, first.FullText, second.FullText)
}
