package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	authsvc "github.com/olegbarsky/tradeport-backend/internal/auth"
	"github.com/olegbarsky/tradeport-backend/internal/users"
	pkgerrors "github.com/olegbarsky/tradeport-backend/pkg/errors"
)

type stubAuthService struct {
	token string
	user  *users.UserDTO
	err   error

	gotRegister authsvc.RegisterRequest
	gotEmail    string
}

func (s *stubAuthService) Register(ctx context.Context, req authsvc.RegisterRequest) error {
	s.gotRegister = req
	return s.err
}

func (s *stubAuthService) ConfirmAccount(ctx context.Context, email, token string) error {
	s.gotEmail = email
	return s.err
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (string, error) {
	s.gotEmail = email
	return s.token, s.err
}

func (s *stubAuthService) RequestPasswordReset(ctx context.Context, email string) error {
	s.gotEmail = email
	return s.err
}

func (s *stubAuthService) ConfirmPasswordReset(ctx context.Context, req authsvc.PasswordResetConfirm) error {
	return s.err
}

func (s *stubAuthService) Account(ctx context.Context, userID uint) (*users.UserDTO, error) {
	return s.user, s.err
}

func (s *stubAuthService) UpdateAccount(ctx context.Context, userID uint, req authsvc.UpdateAccountRequest) (*users.UserDTO, error) {
	return s.user, s.err
}

func TestAuthLoginReturnsToken(t *testing.T) {
	svc := &stubAuthService{token: "signed.jwt.token"}
	handler := AuthLogin(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/auth/login", `{"email":"buyer@example.com","password":"hunter2sufficientlylong"}`))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.gotEmail != "buyer@example.com" {
		t.Fatalf("unexpected email forwarded: %q", svc.gotEmail)
	}

	var envelope struct {
		Data authsvc.LoginResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Token != "signed.jwt.token" {
		t.Fatalf("unexpected token: %q", envelope.Data.Token)
	}
}

func TestAuthLoginBadCredentials(t *testing.T) {
	svc := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	handler := AuthLogin(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/auth/login", `{"email":"buyer@example.com","password":"wrongpassword"}`))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRegisterCreated(t *testing.T) {
	svc := &stubAuthService{}
	handler := AuthRegister(svc, nil)

	body := `{"email":"new@example.com","password":"longenoughpassword","first_name":"Nadia","last_name":"Petrova","company":"ACME","position":"buyer"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/auth/register", body))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if svc.gotRegister.Email != "new@example.com" {
		t.Fatalf("unexpected register payload: %+v", svc.gotRegister)
	}
}

func TestAuthRegisterRejectsBadEmail(t *testing.T) {
	handler := AuthRegister(&stubAuthService{}, nil)

	body := `{"email":"not-an-email","password":"longenoughpassword","first_name":"Nadia","last_name":"Petrova"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/auth/register", body))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestPasswordResetRequestAccepted(t *testing.T) {
	svc := &stubAuthService{}
	handler := PasswordResetRequest(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/auth/password-reset", `{"email":"buyer@example.com"}`))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.gotEmail != "buyer@example.com" {
		t.Fatalf("unexpected email forwarded: %q", svc.gotEmail)
	}
}

func TestAccountDetails(t *testing.T) {
	svc := &stubAuthService{user: &users.UserDTO{ID: 7, Email: "buyer@example.com", FirstName: "Nadia"}}
	handler := AccountDetails(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodGet, "/api/v1/account", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data users.UserDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != 7 || envelope.Data.Email != "buyer@example.com" {
		t.Fatalf("unexpected account: %+v", envelope.Data)
	}
}
