package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"studioflow/internal/logging"
	"studioflow/internal/services"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", logging.Error(err))
	}
}

// writeError maps err onto a status code by kind. Internal errors are logged
// and their detail withheld from the client.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	kind := services.KindOf(err)
	status := statusForKind(kind)
	message := err.Error()
	if kind == services.KindInternal {
		logging.ErrorWithContext(logging.WithContext(r.Context(), logger), "request failed", "api_internal_error",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Error(err),
		)
		message = "internal error"
	}
	writeJSON(w, logger, status, ErrorResponse{Error: message, Kind: string(kind)})
}

func writeUnauthorized(w http.ResponseWriter, logger *slog.Logger, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="studioflow"`)
	writeJSON(w, logger, http.StatusUnauthorized, ErrorResponse{Error: message, Kind: "unauthenticated"})
}

func statusForKind(kind services.Kind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindAuthorization:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	case services.KindEntitlement:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody reads a JSON request body into v. Unknown fields and trailing
// data are validation errors.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return services.Validation("api", "decode", "request body is required")
		}
		return services.Validation("api", "decode", fmt.Sprintf("invalid request body: %v", err))
	}
	if dec.More() {
		return services.Validation("api", "decode", "request body has trailing data")
	}
	return nil
}
