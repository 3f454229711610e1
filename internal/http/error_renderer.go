package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/target/inboxjobs/internal/errors"
)

// statusClientClosedRequest is nginx's status for a request the client abandoned.
const statusClientClosedRequest = 499

// statusByCode maps application error codes to HTTP statuses.
var statusByCode = map[apperrors.ErrorCode]int{ //nolint:gochecknoglobals // read-only lookup table
	apperrors.ErrCodeValidation:  http.StatusBadRequest,
	apperrors.ErrCodeParse:       http.StatusBadRequest,
	apperrors.ErrCodeNotFound:    http.StatusNotFound,
	apperrors.ErrCodeConflict:    http.StatusConflict,
	apperrors.ErrCodeUnknownType: http.StatusUnprocessableEntity,
	apperrors.ErrCodeProvider:    http.StatusBadGateway,
	apperrors.ErrCodeSchema:      http.StatusServiceUnavailable,
	apperrors.ErrCodeTimeout:     http.StatusGatewayTimeout,
	apperrors.ErrCodeCanceled:    statusClientClosedRequest,
	apperrors.ErrCodeInternal:    http.StatusInternalServerError,
}

// DetermineErrorStatus returns the HTTP status and error code for err.
// A PostgreSQL undefined column surfaces as a schema error.
func DetermineErrorStatus(err error) (int, apperrors.ErrorCode) {
	if err == nil {
		return http.StatusOK, ""
	}
	// context errors and PostgreSQL errors become AppErrors here
	code := apperrors.GetCode(apperrors.MapDBError(err))
	if status, ok := statusByCode[code]; ok {
		return status, code
	}
	return http.StatusInternalServerError, apperrors.ErrCodeInternal
}

// RenderError writes err as a JSON error response. Server-side failures are logged and
// their details withheld from the client.
func RenderError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	status, code := DetermineErrorStatus(err)
	if status >= http.StatusInternalServerError {
		if logger != nil {
			logger.ErrorContext(r.Context(), "request failed",
				"method", r.Method, "path", r.URL.Path, "code", code, "error", err)
		}
		if code == apperrors.ErrCodeInternal {
			err = errors.New(http.StatusText(status))
		}
	}
	WriteError(w, ErrorParams{Code: status, ErrCode: string(code), Err: err})
}
