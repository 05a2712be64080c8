// Package response writes the API's JSON envelope.
package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/newthinker/momentum/internal/core"
)

type Meta struct {
	Timestamp time.Time `json:"timestamp"`
}

// SuccessResponse wraps every 2xx body.
type SuccessResponse struct {
	Data any  `json:"data"`
	Meta Meta `json:"meta"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
}

// ErrorResponse wraps every non-2xx body.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

var statusByCode = map[string]int{
	core.ErrInvalidInput.Code:   http.StatusBadRequest,
	core.ErrConfigInvalid.Code:  http.StatusBadRequest,
	core.ErrRowParse.Code:       http.StatusUnprocessableEntity,
	core.ErrUnauthorized.Code:   http.StatusUnauthorized,
	core.ErrNoData.Code:         http.StatusNotFound,
	core.ErrSymbolNotFound.Code: http.StatusNotFound,
	core.ErrConfigMissing.Code:  http.StatusServiceUnavailable,
	core.ErrSourceFailed.Code:   http.StatusBadGateway,
	core.ErrSourceTimeout.Code:  http.StatusGatewayTimeout,
}

// StatusFor maps err's core code to an HTTP status, 500 when unmapped.
func StatusFor(err error) int {
	if status, ok := statusByCode[core.CodeOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// JSON writes data inside the success envelope.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, SuccessResponse{Data: data, Meta: Meta{Timestamp: time.Now().UTC()}})
}

// Error writes err with the given status. Errors outside core are
// reported as INTERNAL_ERROR without leaking their text.
func Error(w http.ResponseWriter, status int, err error) {
	detail := ErrorDetail{Code: "INTERNAL_ERROR", Message: "an internal error occurred"}

	var ce *core.Error
	if errors.As(err, &ce) {
		detail = ErrorDetail{Code: ce.Code, Message: ce.Message}
		if ce.Cause != nil {
			detail.Cause = ce.Cause.Error()
		}
	}
	write(w, status, ErrorResponse{Error: detail})
}

// Fail is Error with the status picked by StatusFor.
func Fail(w http.ResponseWriter, err error) {
	Error(w, StatusFor(err), err)
}
