// Package apitest provides an in-process stand-in for the blogging
// backend so store tests can exercise the real HTTP path.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"socialapp/internal/models"
)

type account struct {
	id       string
	name     string
	username string
	email    string
	hash     []byte
}

// Backend serves the subset of the service the client core consumes:
// /auth/register, /auth/login, /auth/logout, /auth/me, /posts CRUD and
// the brokered /user/profile/{provider} endpoint.
type Backend struct {
	mu       sync.Mutex
	accounts map[string]*account // by username
	tokens   map[string]string   // token -> user id
	posts    []models.Post       // newest first

	// FailLogout makes /auth/logout answer 500, for asserting that
	// local cleanup proceeds regardless.
	FailLogout bool
	// BrokerStatus, when non-zero, is returned by /user/profile/* with
	// no body.
	BrokerStatus int
	// BrokerUser is returned by /user/profile/* on success.
	BrokerUser map[string]string

	srv *httptest.Server
}

func New() *Backend {
	b := &Backend{
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", b.handleRegister)
	mux.HandleFunc("POST /auth/login", b.handleLogin)
	mux.HandleFunc("POST /auth/logout", b.handleLogout)
	mux.HandleFunc("GET /auth/me", b.handleMe)
	mux.HandleFunc("GET /posts", b.handleList)
	mux.HandleFunc("POST /posts", b.handleCreate)
	mux.HandleFunc("PUT /posts/{id}", b.handleUpdate)
	mux.HandleFunc("DELETE /posts/{id}", b.handleDelete)
	mux.HandleFunc("GET /user/profile/{provider}", b.handleBrokerProfile)
	b.srv = httptest.NewServer(mux)
	return b
}

func (b *Backend) URL() string {
	return b.srv.URL
}

func (b *Backend) Close() {
	b.srv.Close()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"message": msg})
}

func userRecord(a *account) models.User {
	return models.User{ID: a.id, Username: a.username, Name: a.name, Email: a.email}
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil ||
		in.Username == "" || in.Email == "" || in.Password == "" {
		writeError(w, http.StatusBadRequest, "missing fields")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.accounts[in.Username]; ok {
		writeError(w, http.StatusBadRequest, "username already exists")
		return
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.MinCost)
	a := &account{
		id:       uuid.NewString(),
		name:     in.Name,
		username: in.Username,
		email:    in.Email,
		hash:     hash,
	}
	b.accounts[in.Username] = a
	writeJSON(w, http.StatusCreated, userRecord(a))
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "missing fields")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[in.Username]
	if !ok || bcrypt.CompareHashAndPassword(a.hash, []byte(in.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	token := uuid.NewString()
	b.tokens[token] = a.id
	http.SetCookie(w, &http.Cookie{Name: "jwt_token", Value: token, Path: "/"})
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  userRecord(a),
	})
}

func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	if b.FailLogout {
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	if a := b.bearer(r); a != nil {
		b.mu.Lock()
		for tok, id := range b.tokens {
			if id == a.id {
				delete(b.tokens, tok)
			}
		}
		b.mu.Unlock()
	}
	w.WriteHeader(http.StatusOK)
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	a := b.bearer(r)
	if a == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, userRecord(a))
}

func (b *Backend) handleList(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	posts := make([]models.Post, len(b.posts))
	copy(posts, b.posts)
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

func (b *Backend) handleCreate(w http.ResponseWriter, r *http.Request) {
	a := b.bearer(r)
	if a == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var draft models.PostDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil || draft.Title == "" {
		writeError(w, http.StatusBadRequest, "missing fields")
		return
	}
	post := models.Post{
		ID:        uuid.NewString(),
		Title:     draft.Title,
		Content:   draft.Content,
		Image:     draft.Image,
		Author:    models.Author{User: userRecord(a)},
		CreatedAt: time.Now().UTC(),
	}
	b.mu.Lock()
	b.posts = append([]models.Post{post}, b.posts...)
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"post": post})
}

func (b *Backend) handleUpdate(w http.ResponseWriter, r *http.Request) {
	a := b.bearer(r)
	if a == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var draft models.PostDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	id := r.PathValue("id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.posts {
		if b.posts[i].ID == id {
			b.posts[i].Title = draft.Title
			b.posts[i].Content = draft.Content
			b.posts[i].Image = draft.Image
			writeJSON(w, http.StatusOK, map[string]any{"post": b.posts[i]})
			return
		}
	}
	writeError(w, http.StatusNotFound, "post not found")
}

func (b *Backend) handleDelete(w http.ResponseWriter, r *http.Request) {
	a := b.bearer(r)
	if a == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id := r.PathValue("id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.posts {
		if b.posts[i].ID == id {
			b.posts = append(b.posts[:i], b.posts[i+1:]...)
			break
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (b *Backend) handleBrokerProfile(w http.ResponseWriter, r *http.Request) {
	if b.BrokerStatus != 0 {
		writeError(w, b.BrokerStatus, "not authenticated with provider")
		return
	}
	user := b.BrokerUser
	if user == nil {
		user = map[string]string{"name": "Broker User", "email": "broker@example.com"}
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (b *Backend) bearer(r *http.Request) *account {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.tokens[token]
	if !ok {
		return nil
	}
	for _, a := range b.accounts {
		if a.id == id {
			return a
		}
	}
	return nil
}

// Seed registers an account directly and returns its user record.
func (b *Backend) Seed(username, password string) models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	a := &account{
		id:       uuid.NewString(),
		username: username,
		email:    username + "@example.com",
		hash:     hash,
	}
	b.mu.Lock()
	b.accounts[username] = a
	b.mu.Unlock()
	return userRecord(a)
}

// Token mints a valid bearer token for a seeded account.
func (b *Backend) Token(username string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[username]
	if !ok {
		return ""
	}
	token := uuid.NewString()
	b.tokens[token] = a.id
	return token
}

// RevokeTokens invalidates every outstanding token, simulating a
// server-side session expiry.
func (b *Backend) RevokeTokens() {
	b.mu.Lock()
	b.tokens = make(map[string]string)
	b.mu.Unlock()
}

// SeedPost inserts a post at the head of the server's collection.
func (b *Backend) SeedPost(title, content string, author models.User) models.Post {
	post := models.Post{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		Author:    models.Author{User: author},
		CreatedAt: time.Now().UTC(),
	}
	b.mu.Lock()
	b.posts = append([]models.Post{post}, b.posts...)
	b.mu.Unlock()
	return post
}
