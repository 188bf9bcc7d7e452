// Package intake decides whether a chat message is a structured intake form and
// pulls the labeled field values out of it.
//
// Both operations are pure functions over the message text. The only shared
// state is the read-only marker table, so every call is safe to run concurrently.
package intake

import (
	"strings"
	"unicode"
)

// Result is the outcome of processing one message. It is built fresh per call.
//
// MissingRequired lists the required keys that are absent or present with an
// empty value, in RequiredFields order. It is only filled when IsForm is true;
// for a non-form it is always empty.
type Result struct {
	IsForm          bool                `json:"is_form"`
	Fields          map[FieldKey]string `json:"fields"`
	Confidence      float64             `json:"confidence"`
	MissingRequired []FieldKey          `json:"missing_required"`
}

// Has reports whether key was seen in the message, even with an empty value
func (r Result) Has(key FieldKey) bool {
	_, ok := r.Fields[key]
	return ok
}

// Get returns the value of key, or "" when it was not seen
func (r Result) Get(key FieldKey) string {
	return r.Fields[key]
}

// IsComplete is true for a form with every required field present
func (r Result) IsComplete() bool {
	return r.IsForm && len(r.MissingRequired) == 0
}

// markerLine is one matched "Marker: value" line
type markerLine struct {
	marker string
	key    FieldKey
	value  string
}

// scanLines returns every marker line in order
func scanLines(text string) []markerLine {
	var out []markerLine
	for _, line := range strings.Split(text, "\n") {
		if ml, ok := matchLine(line); ok {
			out = append(out, ml)
		}
	}
	return out
}

// matchLine checks for a known marker at the start of the line followed by a colon
func matchLine(line string) (markerLine, bool) {
	line = strings.TrimLeftFunc(line, unicode.IsSpace)
	colon := strings.IndexByte(line, ':')
	if colon <= 0 {
		return markerLine{}, false
	}

	marker, key, ok := lookupMarker(line[:colon])
	if !ok {
		return markerLine{}, false
	}

	return markerLine{
		marker: marker,
		key:    key,
		value:  strings.TrimSpace(line[colon+1:]),
	}, true
}

func countDistinctMarkers(lines []markerLine) int {
	seen := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		seen[l.marker] = struct{}{}
	}
	return len(seen)
}

// Classify reports whether text is an intake form: at least MinMarkersForForm
// distinct markers, each at the start of its own line.
func Classify(text string) bool {
	return countDistinctMarkers(scanLines(text)) >= MinMarkersForForm
}

// Extract pulls every recognized field out of text. It does not require text
// to be a form; IsForm is reported alongside the fields so callers can decide.
func Extract(text string) Result {
	lines := scanLines(text)

	fields := make(map[FieldKey]string)
	for _, l := range lines {
		if _, exists := fields[l.key]; exists && !LastOccurrenceWins {
			continue
		}
		fields[l.key] = l.value
	}

	result := Result{
		IsForm:     countDistinctMarkers(lines) >= MinMarkersForForm,
		Fields:     fields,
		Confidence: coverage(fields),
	}

	if result.IsForm {
		for _, key := range RequiredFields {
			if fields[key] == "" {
				result.MissingRequired = append(result.MissingRequired, key)
			}
		}
	}

	return result
}

// coverage is populated keys over schema size
func coverage(fields map[FieldKey]string) float64 {
	populated := 0
	for _, v := range fields {
		if v != "" {
			populated++
		}
	}

	ratio := float64(populated) / float64(len(Schema))
	if ratio > 1 {
		return 1
	}
	if ratio < 0 {
		return 0
	}
	return ratio
}
