package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// Pipeline-specific errors (using errors package for sentinel errors)
var (
	ErrUndefinedComputation = errors.New("undefined computation")
	ErrEmptyDataset         = errors.New("dataset is empty")
	ErrNoEnrichedTable      = errors.New("no enriched table has been exported")
	ErrArtifactStale        = errors.New("exported artifact is stale")
)

// SchemaError reports a required input column that is absent or mistyped.
// It is fatal: the loader stops at the first schema violation and no
// partial processing happens.
type SchemaError struct {
	Column string
	Row    int // 1-based data row, 0 when the header itself is wrong
	Reason string
	Cause  error
}

// Error implements the error interface
func (e *SchemaError) Error() string {
	switch {
	case e.Row > 0 && e.Cause != nil:
		return fmt.Sprintf("schema error: column %q row %d: %s: %v", e.Column, e.Row, e.Reason, e.Cause)
	case e.Row > 0:
		return fmt.Sprintf("schema error: column %q row %d: %s", e.Column, e.Row, e.Reason)
	case e.Cause != nil:
		return fmt.Sprintf("schema error: column %q: %s: %v", e.Column, e.Reason, e.Cause)
	default:
		return fmt.Sprintf("schema error: column %q: %s", e.Column, e.Reason)
	}
}

// Unwrap supports errors.Is/As chains
func (e *SchemaError) Unwrap() error {
	return e.Cause
}

// NewSchemaError creates a schema error for a header-level violation
func NewSchemaError(column, reason string) *SchemaError {
	return &SchemaError{Column: column, Reason: reason}
}

// NewSchemaRowError creates a schema error pinned to a data row
func NewSchemaRowError(column string, row int, reason string, cause error) *SchemaError {
	return &SchemaError{Column: column, Row: row, Reason: reason, Cause: cause}
}

// IsSchemaError reports whether any error in the chain is a SchemaError
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// ExportError reports an unwritable sink. It is fatal and never retried;
// re-running the batch is the recovery path.
type ExportError struct {
	Sink  string // csv, excel, json, summary
	Path  string
	Cause error
}

// Error implements the error interface
func (e *ExportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("export error: %s sink %s: %v", e.Sink, e.Path, e.Cause)
	}
	return fmt.Sprintf("export error: %s sink %s", e.Sink, e.Path)
}

// Unwrap supports errors.Is/As chains
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewExportError creates an export error for a sink path
func NewExportError(sink, path string, cause error) *ExportError {
	return &ExportError{Sink: sink, Path: path, Cause: cause}
}

// IsExportError reports whether any error in the chain is an ExportError
func IsExportError(err error) bool {
	var ee *ExportError
	return errors.As(err, &ee)
}

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// Additional fields for extensibility
	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON custom marshaler to include extensions
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{})

	// Add standard fields
	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status

	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}

	// Add extensions
	for k, v := range pd.Extensions {
		data[k] = v
	}

	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// NewArtifactUnavailableError creates a problem response for a query that
// arrived before any pipeline run has exported the enriched table.
func NewArtifactUnavailableError(detail, traceID string) *ProblemDetails {
	problem := NewProblemDetails(
		http.StatusServiceUnavailable,
		"/errors/data/artifact-unavailable",
		"Enriched Table Unavailable",
		detail,
		"/api/enriched",
	)

	problem.WithExtension("trace_id", traceID).
		WithExtension("hint", "Run the pipeline to produce the enriched table, then retry.")

	return problem
}

// NewColumnUnavailableError creates a problem response for a requested
// feature column that the loaded artifact does not carry. Older exports
// are readable; the missing feature is reported, never a crash.
func NewColumnUnavailableError(column, traceID string) *ProblemDetails {
	problem := NewProblemDetails(
		http.StatusNotFound,
		"/errors/data/column-unavailable",
		"Feature Column Unavailable",
		fmt.Sprintf("The loaded enriched table does not carry the %q column.", column),
		"/api/enriched/columns",
	)

	problem.WithExtension("trace_id", traceID).
		WithExtension("column", column)

	return problem
}
