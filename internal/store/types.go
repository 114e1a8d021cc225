package store

import (
	"time"

	"github.com/flowport/flowport/pkg/schema"
)

// Run is one archived migration: the emitted target document plus the full
// report, with the columns list queries filter on extracted alongside.
type Run struct {
	ID               string                         `json:"id"`
	ProcessID        string                         `json:"process_id"`
	SourceName       string                         `json:"source_name,omitempty"`
	FeasibilityScore int                            `json:"feasibility_score"`
	Complexity       schema.ComplexityLevel         `json:"complexity"`
	Document         *schema.TargetWorkflowDocument `json:"document"`
	Report           *schema.MigrationReport        `json:"report"`
	CreatedAt        time.Time                      `json:"created_at"`
}

// RunFilter narrows ListRuns. Zero values are wildcards.
type RunFilter struct {
	ProcessID  string
	Complexity schema.ComplexityLevel
	Limit      int
}
