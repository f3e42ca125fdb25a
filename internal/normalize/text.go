package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	controlRun    = regexp.MustCompile(`[\r\n\t]+`)
	whitespaceRun = regexp.MustCompile(`[\s\p{Z}\x{85}]{2,}`)
)

// EmptyNote replaces a blank note before chunking.
const EmptyNote = "{'OBS':'Sin observación'}"

// Chunk limits of the provider's "nota" field.
const (
	DefaultChunkLen = 1000
	DefaultMinPiece = 15
)

// SanitizeText flattens line breaks and tabs, collapses runs of Unicode
// spaces, trims, and right-pads to minLength runes.
func SanitizeText(value any, minLength int) string {
	s := controlRun.ReplaceAllString(toString(value), " ")
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if n := utf8.RuneCountInString(s); n < minLength {
		s += strings.Repeat(" ", minLength-n)
	}
	return s
}

// NoteField is one entry of a note map. Order is preserved on output.
type NoteField struct {
	Key   string
	Value any
}

// SerializeNoteMap renders fields as {'k1':'v1','k2':'v2'}. Quotes and
// backslashes inside values become spaces; structured values are written
// as compact JSON first.
func SerializeNoteMap(fields []NoteField) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		key := strings.ReplaceAll(f.Key, "'", " ")
		val := noteValue(f.Value)
		val = strings.ReplaceAll(val, `\'`, " ")
		val = strings.ReplaceAll(val, `\`, " ")
		val = strings.ReplaceAll(val, "'", " ")
		parts = append(parts, "'"+key+"':'"+SanitizeText(val, 0)+"'")
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// SplitIntoChunks sanitizes text and cuts it into pieces of at most maxLen
// runes. A trailing piece shorter than minPiece is merged into the previous
// one, and a lone short piece is padded with spaces.
func SplitIntoChunks(text string, maxLen, minPiece int) []string {
	if maxLen <= 0 {
		maxLen = DefaultChunkLen
	}
	s := SanitizeText(text, 0)
	if s == "" {
		s = EmptyNote
	}
	runes := []rune(s)
	var chunks []string
	for i := 0; i < len(runes); i += maxLen {
		end := i + maxLen
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	last := len(chunks) - 1
	if last > 0 && utf8.RuneCountInString(chunks[last]) < minPiece {
		chunks[last-1] += chunks[last]
		chunks = chunks[:last]
	}
	if len(chunks) == 1 {
		if n := utf8.RuneCountInString(chunks[0]); n < minPiece {
			chunks[0] += strings.Repeat(" ", minPiece-n)
		}
	}
	return chunks
}

func noteValue(v any) string {
	switch t := v.(type) {
	case map[string]any, []any, []string, map[string]string:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(t); err != nil {
			return fmt.Sprint(t)
		}
		return strings.TrimRight(buf.String(), "\n")
	default:
		return toString(v)
	}
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
