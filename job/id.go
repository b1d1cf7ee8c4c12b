package job

import "github.com/google/uuid"

// NewID returns a globally unique, filesystem-safe job identifier.
// Safe for concurrent use without coordination; id uniqueness is what keeps
// concurrent jobs from ever sharing intake or output paths.
func NewID() string {
	return uuid.NewString()
}
