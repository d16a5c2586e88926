package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"socialapp/internal/credentials"
	"socialapp/internal/db"
	"socialapp/internal/models"
)

func newCreds(t *testing.T) *credentials.Store {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return credentials.New(database)
}

func TestBearerAttachedWhenStored(t *testing.T) {
	var gotAuth, gotReqID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-Id")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	creds := newCreds(t)
	g, err := New(srv.URL, creds)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := g.Get(context.Background(), "/x", nil); err != nil {
		t.Fatalf("get: %v", err)
	}
	if gotAuth != "" {
		t.Fatalf("anonymous request carried Authorization %q", gotAuth)
	}
	if gotReqID == "" {
		t.Fatal("no X-Request-Id")
	}

	if err := creds.Save(models.Credential{Token: "tok", Username: "alice", UserID: "u1"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := g.Get(context.Background(), "/x", nil); err != nil {
		t.Fatalf("get: %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("Authorization = %q, want Bearer tok", gotAuth)
	}
}

func TestErrorBodyDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"nope"}`))
	}))
	defer srv.Close()

	g, err := New(srv.URL, newCreds(t))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	err = g.Post(context.Background(), "/x", map[string]string{"a": "b"}, nil)
	var apiErr *models.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Message != "nope" {
		t.Fatalf("got %+v", apiErr)
	}
}

func TestErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g, err := New(srv.URL, newCreds(t))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	err = g.Get(context.Background(), "/x", nil)
	var apiErr *models.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.Message != "" || apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("got %+v", apiErr)
	}
	if apiErr.Error() != "server returned status 500" {
		t.Fatalf("Error() = %q", apiErr.Error())
	}
}

func TestCookieRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "access_token", Value: "provider-tok", Path: "/"})
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	g, err := New(srv.URL, newCreds(t))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := g.Get(context.Background(), "/x", nil); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := g.Cookie("access_token"); got != "provider-tok" {
		t.Fatalf("cookie = %q", got)
	}
	g.DropCookies("access_token")
	if got := g.Cookie("access_token"); got != "" {
		t.Fatalf("cookie after drop = %q", got)
	}
}

func TestBearerGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer provider-tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"login":"alice"}`))
	}))
	defer srv.Close()

	var out struct {
		Login string `json:"login"`
	}
	if err := BearerGet(context.Background(), srv.Client(), srv.URL+"/user", "provider-tok", &out); err != nil {
		t.Fatalf("bearer get: %v", err)
	}
	if out.Login != "alice" {
		t.Fatalf("login = %q", out.Login)
	}
}
