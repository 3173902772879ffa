package controllers

import (
	"io"
	"net/http"
	"strings"

	"github.com/olegbarsky/tradeport-backend/api/middleware"
	"github.com/olegbarsky/tradeport-backend/api/responses"
	"github.com/olegbarsky/tradeport-backend/api/validators"
	"github.com/olegbarsky/tradeport-backend/internal/catalog"
	"github.com/olegbarsky/tradeport-backend/internal/importer"
	pkgerrors "github.com/olegbarsky/tradeport-backend/pkg/errors"
	"github.com/olegbarsky/tradeport-backend/pkg/logger"
)

type syncFeedRequest struct {
	URL string `json:"url" validate:"required,url"`
}

type setStateRequest struct {
	State string `json:"state" validate:"required"`
}

// PartnerUpdateFeed ingests a price feed for the partner's shop. A
// YAML body is imported directly; a JSON body naming a url is fetched
// and replaces the shop's catalog.
func PartnerUpdateFeed(svc importer.Service, maxFeedBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		if isYAMLRequest(r) {
			limit := maxFeedBytes
			if limit <= 0 {
				limit = 5 << 20
			}
			raw, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read feed body"))
				return
			}
			if int64(len(raw)) > limit {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "feed exceeds size limit"))
				return
			}
			summary, err := svc.Import(r.Context(), userID, raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, summary)
			return
		}

		var req syncFeedRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.SyncPartnerFeed(r.Context(), userID, req.URL)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func isYAMLRequest(r *http.Request) bool {
	contentType := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type")))
	for _, prefix := range []string{"application/x-yaml", "application/yaml", "text/yaml"} {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}

// PartnerState returns whether the partner shop accepts orders.
func PartnerState(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := svc.PartnerState(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}

// PartnerSetState flips the shop's accepting-orders flag. The value is
// parsed leniently ("on"/"off", "1"/"0", "true"/"false").
func PartnerSetState(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setStateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := svc.SetPartnerState(r.Context(), middleware.UserIDFromContext(r.Context()), req.State)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}
