package validate

import (
	"fmt"

	"github.com/google/uuid"
)

// Text field length limits for review input.
const (
	MaxCommentBodyLength    = 5000
	MaxAnnotationTextLength = 500
	MaxIDLength             = 64
)

func checkLen(value string, max int, field string) string {
	if len(value) > max {
		return fmt.Sprintf("%s must be %d characters or fewer", field, max)
	}
	return ""
}

func CommentBody(s string) string    { return checkLen(s, MaxCommentBodyLength, "comment") }
func AnnotationText(s string) string { return checkLen(s, MaxAnnotationTextLength, "annotation text") }

// ID rejects empty or oversized identifiers taken from URLs and request bodies.
func ID(s, field string) string {
	if s == "" {
		return fmt.Sprintf("%s is required", field)
	}
	return checkLen(s, MaxIDLength, field)
}

// UUID is ID for identifiers stored in uuid columns: media items, notes
// and reviewers.
func UUID(s, field string) string {
	if msg := ID(s, field); msg != "" {
		return msg
	}
	if _, err := uuid.Parse(s); err != nil {
		return fmt.Sprintf("%s must be a valid id", field)
	}
	return ""
}

// FieldLimits returns field names mapped to max lengths for clients.
func FieldLimits() map[string]int {
	return map[string]int{
		"commentBody":    MaxCommentBodyLength,
		"annotationText": MaxAnnotationTextLength,
	}
}
