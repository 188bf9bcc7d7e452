package intake

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullForm = `Name: Jane Smith
Phone: +1 987 654 321
Email: jane@school.edu
Project: Science Fair
Notes: Needs projector
School: Oak Elementary
Teacher: Mr. Johnson
Grade: 5th
Subject: Science
Lesson: Solar System
References: Chapter 4`

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"empty", "", false},
		{"whitespace only", "   \n\t\n", false},
		{"plain chat", "Hey everyone, meeting at 3pm today!", false},
		{"single marker", "Name: Jane", false},
		{"single marker repeated", "Name: Jane\nName: Jane Smith", false},
		{"two markers", "Name: John Doe\nProject: Education App", true},
		{"order does not matter", "Project: Education App\nName: John Doe", true},
		{"unrelated lines around markers", "hello all\nName: Bob\nsee below\nPhone: 123\nthanks!", true},
		{"case insensitive", "NAME: John\nPROJECT: Test", true},
		{"leading whitespace", "   name: John\n\tproject: Test", true},
		{"space before colon", "Name : John\nProject   : Test", true},
		{"marker mid-line is ignored", "My name: Bob and my project: Rocket", false},
		{"no colon", "Name John\nProject Test", false},
		{"casual mention", "My name is Bob but this isn't a form", false},
		{"synonyms count as distinct markers", "Lesson: Fractions\nLesson Title: Decimals", true},
		{"empty values still count", "Name:\nProject:", true},
		{"windows line endings", "Name: John\r\nProject: Test\r\n", true},
		{"link is not a marker", "https://example.com/link\nName: Bob", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.text))
		})
	}
}

func TestExtract_BasicForm(t *testing.T) {
	text := "Name: John Doe\nProject: Education App"

	result := Extract(text)

	assert.True(t, result.IsForm)
	assert.Equal(t, map[FieldKey]string{
		FieldName:    "John Doe",
		FieldProject: "Education App",
	}, result.Fields)
	assert.Empty(t, result.MissingRequired)
	assert.Greater(t, result.Confidence, 0.0)
	assert.True(t, result.IsComplete())
}

func TestExtract_ChatMessage(t *testing.T) {
	result := Extract("Hey everyone, meeting at 3pm today!")

	assert.False(t, result.IsForm)
	assert.Empty(t, result.Fields)
	assert.Zero(t, result.Confidence)
	assert.Empty(t, result.MissingRequired)
}

func TestExtract_EmptyString(t *testing.T) {
	result := Extract("")

	require.NotNil(t, result.Fields)
	assert.Empty(t, result.Fields)
	assert.Zero(t, result.Confidence)
	assert.False(t, result.IsForm)
}

func TestExtract_SingleMarkerStillProducesFields(t *testing.T) {
	result := Extract("Name: Jane")

	assert.False(t, result.IsForm)
	assert.Equal(t, "Jane", result.Get(FieldName))
	assert.Empty(t, result.MissingRequired, "missing fields are only reported for forms")
}

func TestExtract_LastOccurrenceWins(t *testing.T) {
	result := Extract("Name: Jane\nPhone: 123\nName: Jane Smith")

	assert.Equal(t, "Jane Smith", result.Get(FieldName))
	assert.Equal(t, "123", result.Get(FieldPhone))
}

func TestExtract_SynonymsShareKey(t *testing.T) {
	result := Extract("Lesson: Fractions\nName: Ann\nLesson Title: Decimals")

	assert.Equal(t, "Decimals", result.Get(FieldLessonTitles))
	assert.Len(t, result.Fields, 2)
}

func TestExtract_EmptyValueIsKept(t *testing.T) {
	result := Extract("Name:\nProject: Robotics\nSchool: Oak")

	assert.True(t, result.Has(FieldName))
	assert.Equal(t, "", result.Get(FieldName))
	assert.Equal(t, []FieldKey{FieldName}, result.MissingRequired)
	assert.InDelta(t, 2.0/float64(len(Schema)), result.Confidence, 1e-9)
}

func TestExtract_ValueKeepsInnerColons(t *testing.T) {
	result := Extract("Name: Bob\nNotes: call at 10:30, ok?")

	assert.Equal(t, "call at 10:30, ok?", result.Get(FieldNotes))
}

func TestExtract_MissingRequired(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []FieldKey
	}{
		{"both present", "Name: A\nProject: B", nil},
		{"missing project", "Name: A\nPhone: 1", []FieldKey{FieldProject}},
		{"missing name", "Project: B\nSchool: C", []FieldKey{FieldName}},
		{"missing both", "School: C\nGrade: 4", []FieldKey{FieldName, FieldProject}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Extract(tt.text)
			require.True(t, result.IsForm)
			assert.Equal(t, tt.want, result.MissingRequired)
		})
	}
}

func TestExtract_MissingRequiredEmptyValuesAndNonForms(t *testing.T) {
	result := Extract("Name:   \nProject:\nSchool: Oak")
	require.True(t, result.IsForm)
	assert.True(t, result.Has(FieldProject))
	assert.Equal(t, []FieldKey{FieldName, FieldProject}, result.MissingRequired)
	assert.False(t, result.IsComplete())

	chat := Extract("Project: robotics club starts monday")
	require.False(t, chat.IsForm)
	assert.Empty(t, chat.MissingRequired)
}

func TestExtract_AllFieldsFullConfidence(t *testing.T) {
	result := Extract(fullForm)

	assert.True(t, result.IsForm)
	assert.Len(t, result.Fields, len(Schema))
	assert.Equal(t, 1.0, result.Confidence)
	assert.Empty(t, result.MissingRequired)
	for _, key := range Schema {
		assert.True(t, result.Has(key), "missing %s", key)
	}
}

func TestExtract_ConfidenceMonotonic(t *testing.T) {
	lines := strings.Split(fullForm, "\n")

	prev := 0.0
	for i := range lines {
		text := "intro line\n" + strings.Join(lines[:i+1], "\n")
		got := Extract(text).Confidence
		assert.GreaterOrEqual(t, got, prev, "after %d lines", i+1)
		assert.LessOrEqual(t, got, 1.0)
		prev = got
	}
}

func TestExtract_Idempotent(t *testing.T) {
	inputs := []string{"", "Name: Jane\nPhone: 123\nName: Jane Smith", fullForm, "héllo ✅ 👍"}
	for _, in := range inputs {
		assert.Equal(t, Extract(in), Extract(in))
	}
}

func TestExtract_ArbitraryUnicode(t *testing.T) {
	text := "Name: Zoë Ñúñez 😀\nProject: 数学\n🙏"

	result := Extract(text)

	assert.True(t, result.IsForm)
	assert.Equal(t, "Zoë Ñúñez 😀", result.Get(FieldName))
	assert.Equal(t, "数学", result.Get(FieldProject))
}

func TestExtract_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text := fmt.Sprintf("Name: user %d\nProject: p%d", i, i)
			result := Extract(text)
			assert.Equal(t, fmt.Sprintf("user %d", i), result.Get(FieldName))
		}(i)
	}
	wg.Wait()
}

func TestClassifyAgreesWithExtract(t *testing.T) {
	inputs := []string{"", "Name: a", "Name: a\nProject: b", "Lesson: x\nLessons: y", fullForm, "foo: bar\nbaz: qux"}
	for _, in := range inputs {
		assert.Equal(t, Classify(in), Extract(in).IsForm, in)
	}
}

func TestMarkers_AllKeysInSchema(t *testing.T) {
	schema := make(map[FieldKey]bool, len(Schema))
	for _, k := range Schema {
		schema[k] = true
	}

	covered := make(map[FieldKey]bool)
	for _, m := range Markers() {
		assert.True(t, schema[m.Key], "marker %q maps to unknown key %q", m.Label, m.Key)
		assert.Equal(t, strings.ToLower(m.Label), m.Label)
		covered[m.Key] = true
	}
	assert.Len(t, covered, len(Schema))
}
