package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/olegbarsky/tradeport-backend/api/middleware"
	basketsvc "github.com/olegbarsky/tradeport-backend/internal/basket"
	pkgerrors "github.com/olegbarsky/tradeport-backend/pkg/errors"
	"github.com/olegbarsky/tradeport-backend/pkg/db/models"
)

type stubBasketService struct {
	view    *basketsvc.BasketDTO
	added   int
	changed int64
	err     error

	gotItems   []basketsvc.AddItemInput
	gotUpdates []basketsvc.UpdateItemInput
	gotRawIDs  string
}

func (s *stubBasketService) GetOrCreate(ctx context.Context, userID uint) (*models.Order, error) {
	return nil, s.err
}

func (s *stubBasketService) AddItems(ctx context.Context, userID uint, items []basketsvc.AddItemInput) (int, error) {
	s.gotItems = items
	return s.added, s.err
}

func (s *stubBasketService) UpdateItems(ctx context.Context, userID uint, updates []basketsvc.UpdateItemInput) (int64, error) {
	s.gotUpdates = updates
	return s.changed, s.err
}

func (s *stubBasketService) RemoveItems(ctx context.Context, userID uint, rawIDs string) (int64, error) {
	s.gotRawIDs = rawIDs
	return s.changed, s.err
}

func (s *stubBasketService) View(ctx context.Context, userID uint) (*basketsvc.BasketDTO, error) {
	return s.view, s.err
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(middleware.WithUserID(req.Context(), 7))
}

func TestBasketViewSuccess(t *testing.T) {
	view := &basketsvc.BasketDTO{
		ID:       3,
		State:    "basket",
		Items:    []basketsvc.ItemDTO{},
		TotalSum: decimal.RequireFromString("120.50"),
	}
	handler := BasketView(&stubBasketService{view: view}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/api/v1/basket", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data basketsvc.BasketDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != 3 {
		t.Fatalf("unexpected basket id: %d", envelope.Data.ID)
	}
	if !envelope.Data.TotalSum.Equal(decimal.RequireFromString("120.50")) {
		t.Fatalf("unexpected total: %s", envelope.Data.TotalSum)
	}
}

func TestBasketAddItemsCreated(t *testing.T) {
	svc := &stubBasketService{added: 2}
	handler := BasketAddItems(svc, nil)

	body := `{"items":[{"product_info_id":10,"quantity":1},{"product_info_id":11,"quantity":3}]}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/basket/items", body))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if len(svc.gotItems) != 2 {
		t.Fatalf("expected 2 items forwarded, got %d", len(svc.gotItems))
	}
	if svc.gotItems[1].ProductInfoID != 11 || svc.gotItems[1].Quantity != 3 {
		t.Fatalf("unexpected forwarded item: %+v", svc.gotItems[1])
	}
}

func TestBasketAddItemsEmptyRejected(t *testing.T) {
	handler := BasketAddItems(&stubBasketService{}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/basket/items", `{"items":[]}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestBasketUpdateItemsNotFound(t *testing.T) {
	svc := &stubBasketService{err: pkgerrors.New(pkgerrors.CodeNotFound, "basket item not found")}
	handler := BasketUpdateItems(svc, nil)

	body := `{"items":[{"id":99,"quantity":4}]}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPut, "/api/v1/basket/items", body))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestBasketRemoveItemsForwardsRawList(t *testing.T) {
	svc := &stubBasketService{changed: 2}
	handler := BasketRemoveItems(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodDelete, "/api/v1/basket/items", `{"items":"4,5"}`))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.gotRawIDs != "4,5" {
		t.Fatalf("unexpected raw ids: %q", svc.gotRawIDs)
	}

	var envelope struct {
		Data struct {
			Changed int64 `json:"changed"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Changed != 2 {
		t.Fatalf("unexpected changed count: %d", envelope.Data.Changed)
	}
}
