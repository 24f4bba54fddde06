package enrichment

import (
	"fmt"
	"strings"

	"leadflow_backend/platform/sanitize"
)

const maxFieldRunes = 2000

const systemPrompt = `You write short business profiles for sales prospecting.
You always reply with exactly one JSON object and nothing else.`

const outputContract = `Return strictly valid JSON with exactly this shape:
{"summary": "<string>", "title_guess": "<string>"}

Rules:
- summary: 3 to 4 sentences describing what the business does and who it serves.
- title_guess: a short name for the business, at most 6 words.
- No markdown, no code fences, no text before or after the JSON object.`

// Field is one scraped key/value pair, in the order it should be shown.
type Field struct {
	Key   string
	Value string
}

// Input is the scraped material for one lead.
type Input struct {
	SourceURL string
	Fields    []Field
}

// BuildPrompt renders the user prompt for in. Field values are stripped of
// HTML and truncated; empty values are left out.
func BuildPrompt(in Input) string {
	var b strings.Builder
	b.WriteString("Source URL: ")
	if url := sanitize.Text(in.SourceURL, maxFieldRunes); url != "" {
		b.WriteString(url)
	} else {
		b.WriteString("unknown")
	}
	b.WriteString("\n\nScraped fields:\n")

	written := 0
	for _, f := range in.Fields {
		value := sanitize.Text(f.Value, maxFieldRunes)
		key := sanitize.Text(f.Key, 100)
		if key == "" || value == "" {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", key, value)
		written++
	}
	if written == 0 {
		b.WriteString("- (none)\n")
	}

	b.WriteString("\n")
	b.WriteString(outputContract)
	return b.String()
}
