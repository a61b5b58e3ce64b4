package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/Guilhem-Bonnet/vnshelf/internal/httpjson"
	"github.com/Guilhem-Bonnet/vnshelf/internal/ports"
)

// writeError traduit les erreurs applicatives en statut HTTP.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		httpjson.WriteValidationError(w, verr.Error(), verr.Fields)
	case errors.Is(err, ports.ErrInvalidInput), errors.Is(err, ports.ErrMissingKey):
		httpjson.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ports.ErrNotFound):
		httpjson.WriteError(w, http.StatusNotFound, "not found")
	case errors.Is(err, ports.ErrDuplicateKey), errors.Is(err, ports.ErrConflict):
		httpjson.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ports.ErrRemoteUnavailable):
		hlog.FromRequest(r).Warn().Err(err).Msg("catalog unavailable")
		httpjson.WriteError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, ports.ErrStorageUnavailable):
		hlog.FromRequest(r).Error().Err(err).Msg("storage unavailable")
		httpjson.WriteError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		httpjson.WriteError(w, http.StatusGatewayTimeout, "timeout")
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("unhandled error")
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
