package publish

import (
	"fmt"
	"math"
	"strings"
)

const (
	// Notion caps a rich text object at 2000 characters.
	maxTextLen = 2000
	// Transcript chunks stay under the block limit with headroom.
	transcriptChunkLen = 1800
	// Max children per toggle and per append call.
	childLimit = 100
)

// Block is one Notion content block.
type Block = map[string]any

func richText(content string) []any {
	return []any{
		map[string]any{
			"type": "text",
			"text": map[string]any{"content": truncate(content, maxTextLen)},
		},
	}
}

func heading2(text string) Block {
	return Block{
		"object":    "block",
		"type":      "heading_2",
		"heading_2": map[string]any{"rich_text": richText(text)},
	}
}

func callout(text, emoji string) Block {
	return Block{
		"object": "block",
		"type":   "callout",
		"callout": map[string]any{
			"rich_text": richText(text),
			"icon":      map[string]any{"type": "emoji", "emoji": emoji},
		},
	}
}

func bullet(text string) Block {
	return Block{
		"object":             "block",
		"type":               "bulleted_list_item",
		"bulleted_list_item": map[string]any{"rich_text": richText(text)},
	}
}

func toggle(title string, children []Block) Block {
	if len(children) > childLimit {
		children = children[:childLimit]
	}
	return Block{
		"object": "block",
		"type":   "toggle",
		"toggle": map[string]any{
			"rich_text": richText(title),
			"children":  children,
		},
	}
}

func imageBlock(url, caption string) Block {
	captions := []any{}
	if caption != "" {
		captions = richText(caption)
	}
	return Block{
		"object": "block",
		"type":   "image",
		"image": map[string]any{
			"type":     "external",
			"external": map[string]any{"url": url},
			"caption":  captions,
		},
	}
}

func paragraph(text string) Block {
	rt := []any{}
	if text != "" {
		rt = richText(text)
	}
	return Block{
		"object":    "block",
		"type":      "paragraph",
		"paragraph": map[string]any{"rich_text": rt},
	}
}

func formatClock(seconds float64) string {
	mins := int(math.Floor(seconds / 60))
	secs := int(math.Floor(math.Mod(seconds, 60)))
	return fmt.Sprintf("%d:%02d", mins, secs)
}

func truncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen-3]) + "..."
}

// chunkText splits text into pieces no longer than maxLen, preferring line
// breaks and then word breaks in the back half of the window.
func chunkText(text string, maxLen int) []string {
	if text == "" {
		return []string{}
	}
	var chunks []string
	remaining := text
	for len(remaining) > 0 {
		if len(remaining) <= maxLen {
			chunks = append(chunks, remaining)
			break
		}
		window := remaining[:maxLen+1]
		breakPoint := strings.LastIndex(window, "\n")
		if breakPoint < maxLen/2 {
			breakPoint = strings.LastIndex(window, " ")
		}
		if breakPoint < maxLen/2 {
			breakPoint = maxLen
		}
		chunks = append(chunks, remaining[:breakPoint])
		remaining = strings.TrimLeft(remaining[breakPoint:], " \n")
	}
	return chunks
}

// resolvePhotoURL makes a stored photo URL absolute so the external service
// can fetch it. Relative URLs without a configured base cannot be embedded.
func resolvePhotoURL(photoURL, baseURL string) string {
	if photoURL == "" {
		return ""
	}
	if strings.HasPrefix(photoURL, "http") {
		return photoURL
	}
	if baseURL != "" {
		return strings.TrimRight(baseURL, "/") + photoURL
	}
	return ""
}
