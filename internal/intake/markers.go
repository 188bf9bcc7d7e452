package intake

import "strings"

// FieldKey is the canonical name a marker (and its synonyms) maps to
type FieldKey string

const (
	FieldName             FieldKey = "name"
	FieldPhone            FieldKey = "phone"
	FieldEmail            FieldKey = "email"
	FieldProject          FieldKey = "project"
	FieldNotes            FieldKey = "notes"
	FieldSchool           FieldKey = "school"
	FieldTeacher          FieldKey = "teacher"
	FieldGrade            FieldKey = "grade"
	FieldSubject          FieldKey = "subject"
	FieldLessonTitles     FieldKey = "lesson_titles"
	FieldLessonReferences FieldKey = "lesson_references"
)

// Policy constants
const (
	// MinMarkersForForm is the number of distinct markers a message needs to be an intake form
	MinMarkersForForm = 2

	// LastOccurrenceWins: a later line for the same key overwrites an earlier one
	LastOccurrenceWins = true

	// MarkerTableVersion changes whenever the marker table below changes
	MarkerTableVersion = 1
)

// Schema lists every canonical key, in display order
var Schema = []FieldKey{
	FieldName,
	FieldPhone,
	FieldEmail,
	FieldProject,
	FieldNotes,
	FieldSchool,
	FieldTeacher,
	FieldGrade,
	FieldSubject,
	FieldLessonTitles,
	FieldLessonReferences,
}

// RequiredFields must be present for a form to be complete
var RequiredFields = []FieldKey{FieldName, FieldProject}

// Marker is a recognized label and the key it maps to
type Marker struct {
	Label string
	Key   FieldKey
}

var markerTable = []Marker{
	{"name", FieldName},
	{"full name", FieldName},
	{"fullname", FieldName},
	{"customer name", FieldName},
	{"student name", FieldName},
	{"client name", FieldName},
	{"contact name", FieldName},

	{"phone", FieldPhone},
	{"telephone", FieldPhone},
	{"tel", FieldPhone},
	{"mobile", FieldPhone},
	{"cell", FieldPhone},
	{"number", FieldPhone},
	{"phone number", FieldPhone},
	{"contact", FieldPhone},
	{"whatsapp", FieldPhone},

	{"email", FieldEmail},
	{"e-mail", FieldEmail},
	{"mail", FieldEmail},
	{"email address", FieldEmail},

	{"project", FieldProject},
	{"project name", FieldProject},
	{"project type", FieldProject},
	{"request", FieldProject},
	{"service", FieldProject},

	{"notes", FieldNotes},
	{"note", FieldNotes},
	{"comments", FieldNotes},
	{"comment", FieldNotes},
	{"additional info", FieldNotes},
	{"details", FieldNotes},
	{"description", FieldNotes},
	{"message", FieldNotes},

	{"school", FieldSchool},
	{"institution", FieldSchool},
	{"school name", FieldSchool},
	{"establishment", FieldSchool},

	{"teacher", FieldTeacher},
	{"instructor", FieldTeacher},
	{"teacher name", FieldTeacher},
	{"prof", FieldTeacher},
	{"facilitator", FieldTeacher},

	{"grade", FieldGrade},
	{"class", FieldGrade},
	{"level", FieldGrade},
	{"year", FieldGrade},
	{"form", FieldGrade},
	{"grade level", FieldGrade},

	{"subject", FieldSubject},
	{"course", FieldSubject},
	{"subject area", FieldSubject},
	{"discipline", FieldSubject},
	{"topic", FieldSubject},

	{"lesson titles", FieldLessonTitles},
	{"lesson title", FieldLessonTitles},
	{"lessons", FieldLessonTitles},
	{"lesson", FieldLessonTitles},
	{"lesson name", FieldLessonTitles},

	{"lesson references", FieldLessonReferences},
	{"lesson reference", FieldLessonReferences},
	{"references", FieldLessonReferences},
	{"reference", FieldLessonReferences},
	{"ref", FieldLessonReferences},
	{"source", FieldLessonReferences},
	{"textbook", FieldLessonReferences},
}

// markerIndex is built once and only read afterwards
var markerIndex map[string]FieldKey

func init() {
	markerIndex = make(map[string]FieldKey, len(markerTable))
	for _, m := range markerTable {
		markerIndex[m.Label] = m.Key
	}
}

// Markers returns a copy of the marker table
func Markers() []Marker {
	out := make([]Marker, len(markerTable))
	copy(out, markerTable)
	return out
}

// lookupMarker normalizes a candidate label (case, inner whitespace) and resolves it
func lookupMarker(label string) (string, FieldKey, bool) {
	normalized := strings.ToLower(strings.Join(strings.Fields(label), " "))
	if normalized == "" {
		return "", "", false
	}
	key, ok := markerIndex[normalized]
	return normalized, key, ok
}
