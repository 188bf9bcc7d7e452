package intake

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	emailRegex        = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneCleanupRegex = regexp.MustCompile(`[\s\-.()]+`)
)

// NormalizedForm is the storage-ready view of an extraction result
type NormalizedForm struct {
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	Email            string `json:"email"`
	Project          string `json:"project"`
	Notes            string `json:"notes"`
	School           string `json:"school"`
	Teacher          string `json:"teacher"`
	Grade            string `json:"grade"`
	Subject          string `json:"subject"`
	LessonTitles     string `json:"lesson_titles"`
	LessonReferences string `json:"lesson_references"`
}

// Normalize cleans extracted values for persistence. senderPhone is used when
// the message carries no phone field. The Result itself is left untouched.
func Normalize(r Result, senderPhone string) NormalizedForm {
	return NormalizedForm{
		Name:             TitleCase(r.Get(FieldName)),
		Phone:            NormalizePhone(r.Get(FieldPhone), senderPhone),
		Email:            NormalizeEmail(r.Get(FieldEmail)),
		Project:          r.Get(FieldProject),
		Notes:            r.Get(FieldNotes),
		School:           TitleCase(r.Get(FieldSchool)),
		Teacher:          TitleCase(r.Get(FieldTeacher)),
		Grade:            r.Get(FieldGrade),
		Subject:          r.Get(FieldSubject),
		LessonTitles:     r.Get(FieldLessonTitles),
		LessonReferences: r.Get(FieldLessonReferences),
	}
}

// NormalizeEmail lowercases the address and drops it if it doesn't look valid
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email != "" && !emailRegex.MatchString(email) {
		return ""
	}
	return email
}

// NormalizePhone strips separators, keeping a leading "+" for the country code
func NormalizePhone(phone, fallback string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		phone = strings.TrimSpace(fallback)
	}
	if phone == "" {
		return ""
	}

	hasPlus := strings.HasPrefix(phone, "+")
	phone = phoneCleanupRegex.ReplaceAllString(phone, "")
	if hasPlus && !strings.HasPrefix(phone, "+") {
		phone = "+" + phone
	}
	return phone
}

// TitleCase upper-cases the first letter of every word and lower-cases the rest
func TitleCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				sb.WriteRune(unicode.ToLower(r))
			} else {
				sb.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		sb.WriteRune(r)
		prevLetter = false
	}
	return sb.String()
}
