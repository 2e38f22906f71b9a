// Package respond writes JSON responses and maps service errors to statuses.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Willizberc/Pexfin/internal/account"
	"github.com/Willizberc/Pexfin/internal/assistant"
	"github.com/Willizberc/Pexfin/internal/budget"
	"github.com/Willizberc/Pexfin/internal/identity"
	"github.com/Willizberc/Pexfin/internal/importer"
	"github.com/Willizberc/Pexfin/internal/importer/csvtable"
	"github.com/Willizberc/Pexfin/internal/logger"
	"github.com/Willizberc/Pexfin/internal/media"
	"github.com/Willizberc/Pexfin/internal/notification"
	"github.com/Willizberc/Pexfin/internal/transaction"
	"github.com/Willizberc/Pexfin/internal/validation"
)

// ErrMalformedBody is returned by Decode for bodies that are not valid JSON.
var ErrMalformedBody = errors.New("malformed request body")

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Decode reads a JSON body into v, rejecting unknown fields.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return errors.Join(ErrMalformedBody, err)
	}

	return nil
}

// Error writes err with the status it maps to. Unmapped errors are logged
// and answered with a generic 500.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)

	if status == http.StatusInternalServerError {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}

	JSON(w, r, status, body)
}

func classify(err error) (int, errorResponse) {
	var invalid *validation.Error
	if errors.As(err, &invalid) {
		return http.StatusBadRequest, errorResponse{Error: "invalid input", Fields: invalid.Fields}
	}

	for _, m := range statusMap {
		for _, target := range m.errs {
			if errors.Is(err, target) {
				return m.status, errorResponse{Error: target.Error()}
			}
		}
	}

	return http.StatusInternalServerError, errorResponse{Error: "internal error"}
}

var statusMap = []struct {
	status int
	errs   []error
}{
	{http.StatusBadRequest, []error{
		ErrMalformedBody,
		assistant.ErrEmptyMessage,
		identity.ErrResetTokenInvalid,
		importer.ErrUnknownBank,
		csvtable.ErrNoProfile,
		transaction.ErrBalanceRange,
	}},
	{http.StatusUnauthorized, []error{
		identity.ErrUnauthenticated,
		identity.ErrInvalidCredentials,
	}},
	{http.StatusNotFound, []error{
		account.ErrNotFound,
		transaction.ErrNotFound,
		budget.ErrNotFound,
		budget.ErrGoalNotFound,
		notification.ErrNotFound,
		identity.ErrNotFound,
	}},
	{http.StatusConflict, []error{
		identity.ErrEmailTaken,
		account.ErrVersionConflict,
		transaction.ErrKeyReused,
	}},
	{http.StatusUnsupportedMediaType, []error{media.ErrUnsupportedType}},
	{http.StatusTooManyRequests, []error{assistant.ErrRateLimited}},
	{http.StatusNotImplemented, []error{identity.ErrUploadsDisabled}},
	{http.StatusBadGateway, []error{assistant.ErrEmptyReply}},
}
