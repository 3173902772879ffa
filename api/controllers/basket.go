package controllers

import (
	"net/http"

	"github.com/olegbarsky/tradeport-backend/api/middleware"
	"github.com/olegbarsky/tradeport-backend/api/responses"
	"github.com/olegbarsky/tradeport-backend/api/validators"
	"github.com/olegbarsky/tradeport-backend/internal/basket"
	"github.com/olegbarsky/tradeport-backend/pkg/logger"
)

type addItemsRequest struct {
	Items []basket.AddItemInput `json:"items" validate:"required,min=1,dive"`
}

type updateItemsRequest struct {
	Items []basket.UpdateItemInput `json:"items" validate:"required,min=1,dive"`
}

type removeItemsRequest struct {
	// Comma-separated basket line ids; unknown tokens are ignored.
	Items string `json:"items" validate:"required"`
}

type changedResponse struct {
	Changed int64 `json:"changed"`
}

// BasketView returns the caller's basket with its decimal total.
func BasketView(svc basket.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.View(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// BasketAddItems appends offer lines to the basket. Lines before the
// first failing one are kept.
func BasketAddItems(svc basket.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addItemsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		added, err := svc.AddItems(r.Context(), middleware.UserIDFromContext(r.Context()), req.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]int{"created": added})
	}
}

// BasketUpdateItems changes quantities on existing basket lines.
func BasketUpdateItems(svc basket.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateItemsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		changed, err := svc.UpdateItems(r.Context(), middleware.UserIDFromContext(r.Context()), req.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, changedResponse{Changed: changed})
	}
}

// BasketRemoveItems deletes basket lines listed by id.
func BasketRemoveItems(svc basket.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req removeItemsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		deleted, err := svc.RemoveItems(r.Context(), middleware.UserIDFromContext(r.Context()), req.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, changedResponse{Changed: deleted})
	}
}
