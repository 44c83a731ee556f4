package server

import (
	"net/http"
	"testing"

	"github.com/techagentng/sakany/models"
)

func TestSignupLoginLogout(t *testing.T) {
	app := newTestApp(t)

	w, env := app.do(http.MethodPost, "/api/register", "", models.RegisterRequest{
		Email: "Dana@Example.com", Password: "secret123", Name: "Dana", IsLandlord: true,
	})
	app.expectStatus(w, http.StatusCreated)
	var signup models.LoginResponse
	decodeData(t, env, &signup)
	if signup.AccessToken == "" || signup.User == nil || signup.User.Email != "dana@example.com" {
		t.Fatalf("unexpected signup response %+v", signup)
	}

	w, _ = app.do(http.MethodPost, "/api/register", "", models.RegisterRequest{
		Email: "dana@example.com", Password: "secret123", Name: "Dana again",
	})
	app.expectStatus(w, http.StatusBadRequest)

	w, _ = app.do(http.MethodPost, "/api/login", "", models.LoginRequest{Email: "dana@example.com", Password: "wrong-password"})
	app.expectStatus(w, http.StatusUnauthorized)

	w, env = app.do(http.MethodPost, "/api/login", "", models.LoginRequest{Email: "dana@example.com", Password: "secret123"})
	app.expectStatus(w, http.StatusOK)
	var login models.LoginResponse
	decodeData(t, env, &login)
	if login.AccessToken == "" || login.RefreshToken == "" {
		t.Fatalf("expected a token pair, got %+v", login)
	}

	w, env = app.do(http.MethodGet, "/api/user", login.AccessToken, nil)
	app.expectStatus(w, http.StatusOK)
	var me models.User
	decodeData(t, env, &me)
	if me.Name != "Dana" || !me.IsLandlord {
		t.Errorf("unexpected profile %+v", me)
	}

	w, _ = app.do(http.MethodPost, "/api/logout", login.AccessToken, nil)
	app.expectStatus(w, http.StatusOK)
	w, _ = app.do(http.MethodGet, "/api/user", login.AccessToken, nil)
	app.expectStatus(w, http.StatusUnauthorized)
}

func TestSignupRejectsShortPassword(t *testing.T) {
	app := newTestApp(t)
	w, _ := app.do(http.MethodPost, "/api/register", "", models.RegisterRequest{
		Email: "short@example.com", Password: "123", Name: "Short",
	})
	app.expectStatus(w, http.StatusBadRequest)
}

func TestAuthorizeRejectsMissingAndRefreshTokens(t *testing.T) {
	app := newTestApp(t)

	w, _ := app.do(http.MethodGet, "/api/conversations", "", nil)
	app.expectStatus(w, http.StatusUnauthorized)

	w, env := app.do(http.MethodPost, "/api/register", "", models.RegisterRequest{
		Email: "erin@example.com", Password: "secret123", Name: "Erin",
	})
	app.expectStatus(w, http.StatusCreated)
	var signup models.LoginResponse
	decodeData(t, env, &signup)

	w, _ = app.do(http.MethodGet, "/api/conversations", signup.RefreshToken, nil)
	app.expectStatus(w, http.StatusUnauthorized)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	app := newTestApp(t)
	_, userToken := app.createUser("user", false, false)
	_, adminToken := app.createUser("admin", false, true)

	w, _ := app.do(http.MethodGet, "/api/admin/users", userToken, nil)
	app.expectStatus(w, http.StatusForbidden)

	w, env := app.do(http.MethodGet, "/api/admin/users", adminToken, nil)
	app.expectStatus(w, http.StatusOK)
	var users []models.User
	decodeData(t, env, &users)
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
}

func TestAdminDeleteUserRevokesAccess(t *testing.T) {
	app := newTestApp(t)
	user, userToken := app.createUser("user", false, false)
	_, adminToken := app.createUser("admin", false, true)

	w, _ := app.do(http.MethodDelete, "/api/admin/users/"+itoa(user.ID), adminToken, nil)
	app.expectStatus(w, http.StatusOK)

	w, _ = app.do(http.MethodGet, "/api/user", userToken, nil)
	app.expectStatus(w, http.StatusUnauthorized)
}

func TestForgotPasswordHidesUnknownEmails(t *testing.T) {
	app := newTestApp(t)
	app.createUser("known", false, false)

	w, known := app.do(http.MethodPost, "/api/forgot-password", "", models.ForgotPassword{Email: "known@example.com"})
	app.expectStatus(w, http.StatusOK)
	w, unknown := app.do(http.MethodPost, "/api/forgot-password", "", models.ForgotPassword{Email: "nobody@example.com"})
	app.expectStatus(w, http.StatusOK)
	if known.Message != unknown.Message {
		t.Errorf("responses differ: %q vs %q", known.Message, unknown.Message)
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	w, _ := app.do(http.MethodGet, "/api/health", "", nil)
	app.expectStatus(w, http.StatusOK)
}
