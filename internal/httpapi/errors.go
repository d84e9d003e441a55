package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/joelkehle/gtm-toolkit/internal/scenario"
	"github.com/joelkehle/gtm-toolkit/internal/timeline"
	"github.com/joelkehle/gtm-toolkit/internal/toolkit"
)

const (
	CodeValidation  = "validation"
	CodeNotFound    = "not_found"
	CodeRejected    = "rejected"
	CodeUnavailable = "unavailable"
	CodeInternal    = "internal"
)

// Error is the API error envelope. Fields is set for scenario validation
// failures and Plan carries the retained plan for rejected timeline edits.
type Error struct {
	Code    string
	Message string
	Fields  []scenario.FieldError
	Plan    *timeline.TimelinePlan
	Status  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func statusForCode(code string) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRejected:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func newError(code, message string) *Error {
	return &Error{Code: code, Message: message, Status: statusForCode(code)}
}

func validationError(format string, args ...any) *Error {
	return newError(CodeValidation, fmt.Sprintf(format, args...))
}

func invalidJSON(err error) *Error {
	return newError(CodeValidation, "invalid json: "+err.Error())
}

func sessionNotFound(id string) *Error {
	return newError(CodeNotFound, "session "+id+" not found")
}

// toAPIError maps domain errors onto the envelope codes.
func toAPIError(err error, retained *timeline.TimelinePlan) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var verr *scenario.ValidationError
	if errors.As(err, &verr) {
		e := newError(CodeValidation, verr.Error())
		e.Fields = verr.Fields
		return e
	}
	var rej *timeline.PlanRejected
	if errors.As(err, &rej) {
		e := newError(CodeRejected, rej.Error())
		e.Plan = retained
		return e
	}
	if errors.Is(err, toolkit.ErrClosed) {
		return newError(CodeNotFound, "session closed")
	}
	return newError(CodeInternal, err.Error())
}

func writeError(w http.ResponseWriter, err error) {
	writeErrorWithPlan(w, err, nil)
}

func writeErrorWithPlan(w http.ResponseWriter, err error, retained *timeline.TimelinePlan) {
	e := toAPIError(err, retained)
	body := map[string]any{
		"code":    e.Code,
		"message": e.Message,
	}
	if len(e.Fields) > 0 {
		body["fields"] = e.Fields
	}
	payload := map[string]any{"ok": false, "error": body}
	if e.Plan != nil {
		payload["plan"] = e.Plan
	}
	writeJSON(w, e.Status, payload)
}
