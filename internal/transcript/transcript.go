package transcript

import (
	"regexp"
	"strings"

	"property-capture-go/internal/logger"
	"property-capture-go/internal/types"
)

// Result holds the cleaned transcript items plus the concatenated full text.
type Result struct {
	Items    []types.TranscriptItem `json:"items"`
	FullText string                 `json:"fullText"`
}

// Fixed table of property vocabulary normalizations, applied in order.
var vocabSubs = []struct {
	re   *regexp.Regexp
	with string
}{
	{regexp.MustCompile(`(?i)\bmaster bedroom\b`), "Primary Bedroom"},
	{regexp.MustCompile(`(?i)\bmaster bath(room)?\b`), "Primary Bathroom"},
	{regexp.MustCompile(`(?i)\bhalf bath\b`), "Half Bathroom"},
	{regexp.MustCompile(`(?i)\bpowder room\b`), "Half Bathroom"},
	{regexp.MustCompile(`(?i)\bliving room\b`), "Living Room"},
	{regexp.MustCompile(`(?i)\bdining room\b`), "Dining Room"},
	{regexp.MustCompile(`(?i)\blaundry room\b`), "Laundry Room"},
	{regexp.MustCompile(`(?i)\bfamily room\b`), "Family Room"},
}

// Speech filler tokens and phrases stripped from live captioning output.
// A trailing comma belongs to the filler ("Um, this is..." -> "this is...").
var fillerSubs = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bum\b,?`),
	regexp.MustCompile(`(?i)\buh\b,?`),
	regexp.MustCompile(`(?i)\byeah so\b,?`),
	regexp.MustCompile(`(?i)\bso basically\b,?`),
}

var (
	multiSpace  = regexp.MustCompile(`\s{2,}`)
	sentenceCap = regexp.MustCompile(`(^|\.\s+)[a-z]`)
)

// Enhance cleans up a raw live-caption transcript: drops blank items,
// collapses successive duplicate caption events, normalizes property
// vocabulary, strips filler speech, and fixes whitespace/capitalization.
// Deterministic and idempotent; empty input yields an empty Result.
func Enhance(items []types.TranscriptItem, boundaries []types.RoomBoundary) Result {
	log := logger.New().WithField("module", "transcript")

	if len(items) == 0 {
		log.Warn("empty transcript received, nothing to enhance")
		return Result{Items: []types.TranscriptItem{}, FullText: ""}
	}

	log.WithField("items", len(items)).WithField("boundaries", len(boundaries)).
		Info("enhancing transcript")

	// Collapse immediately-consecutive duplicate caption events
	merged := collapseDuplicates(trimNonEmpty(items))

	cleaned := make([]types.TranscriptItem, 0, len(merged))
	for _, item := range merged {
		text := cleanText(item.Text)
		if text == "" {
			continue
		}
		cleaned = append(cleaned, types.TranscriptItem{
			Text:             text,
			TimestampSeconds: item.TimestampSeconds,
		})
	}

	// Items that only differed by filler words become duplicates after
	// cleanup, so collapse once more.
	cleaned = collapseDuplicates(cleaned)

	parts := make([]string, len(cleaned))
	for i, item := range cleaned {
		parts[i] = item.Text
	}
	fullText := strings.Join(parts, " ")

	log.WithField("cleaned_items", len(cleaned)).WithField("chars", len(fullText)).
		Info("transcript enhanced")

	return Result{Items: cleaned, FullText: fullText}
}

func trimNonEmpty(items []types.TranscriptItem) []types.TranscriptItem {
	out := make([]types.TranscriptItem, 0, len(items))
	for _, item := range items {
		text := strings.TrimSpace(item.Text)
		if text == "" {
			continue
		}
		out = append(out, types.TranscriptItem{Text: text, TimestampSeconds: item.TimestampSeconds})
	}
	return out
}

func collapseDuplicates(items []types.TranscriptItem) []types.TranscriptItem {
	out := make([]types.TranscriptItem, 0, len(items))
	for _, item := range items {
		if len(out) > 0 && strings.EqualFold(out[len(out)-1].Text, item.Text) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func cleanText(text string) string {
	for _, sub := range vocabSubs {
		text = sub.re.ReplaceAllString(text, sub.with)
	}
	for _, filler := range fillerSubs {
		text = filler.ReplaceAllString(text, "")
	}

	text = strings.TrimSpace(multiSpace.ReplaceAllString(text, " "))

	// Capitalize the first letter after start-of-string or a sentence end
	text = sentenceCap.ReplaceAllStringFunc(text, func(m string) string {
		return m[:len(m)-1] + strings.ToUpper(m[len(m)-1:])
	})

	return text
}
