package session

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"

	"socialapp/internal/api"
	"socialapp/internal/credentials"
	"socialapp/internal/models"
)

// State is a snapshot of the session. IsAuthenticated true implies User
// is non-nil.
type State struct {
	Status          models.Status
	IsAuthenticated bool
	User            *models.User
	Error           string
}

// Store is the session state machine. Commands never return an error:
// every dispatch settles the shared status to succeeded or failed and,
// on failure, records a message. Callers read the settled State.
type Store struct {
	mu    sync.Mutex
	state State
	subs  []func(State)

	gw    *api.Gateway
	creds *credentials.Store
}

// New seeds a provisional state from the Credential Store: a complete
// cached triple is treated as an authenticated hint until Restore
// confirms or revokes it.
func New(gw *api.Gateway, creds *credentials.Store) *Store {
	st := State{Status: models.StatusIdle}
	if c, err := creds.Load(); err == nil {
		st.IsAuthenticated = true
		st.User = &models.User{ID: c.UserID, Username: c.Username}
	}
	return &Store{state: st, gw: gw, creds: creds}
}

// State returns a copy of the current session state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to observe every state change. Callbacks run
// on the dispatching goroutine.
func (s *Store) Subscribe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *Store) set(mut func(*State)) State {
	s.mu.Lock()
	mut(&s.state)
	st := s.state
	subs := s.subs
	s.mu.Unlock()
	for _, fn := range subs {
		fn(st)
	}
	return st
}

func (s *Store) begin() {
	s.set(func(st *State) {
		st.Status = models.StatusLoading
		st.Error = ""
	})
}

// errMessage surfaces the server's message verbatim when present;
// transport errors and silent bodies degrade to the fallback.
func errMessage(err error, fallback string) string {
	var apiErr *models.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// Register creates an account. Success does not authenticate the
// caller: the user is expected to log in afterwards.
func (s *Store) Register(ctx context.Context, name, username, email, password string) State {
	s.begin()
	payload := map[string]string{
		"name":     name,
		"username": username,
		"email":    email,
		"password": password,
	}
	if err := s.gw.Post(ctx, "/auth/register", payload, nil); err != nil {
		return s.set(func(st *State) {
			st.Status = models.StatusFailed
			st.Error = errMessage(err, "Registration failed")
		})
	}
	return s.set(func(st *State) {
		st.Status = models.StatusSucceeded
	})
}

type loginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Login exchanges credentials for a bearer token and persists the
// triple. On failure the authenticated flag is left untouched.
func (s *Store) Login(ctx context.Context, username, password string) State {
	s.begin()
	payload := map[string]string{"username": username, "password": password}
	var resp loginResponse
	if err := s.gw.Post(ctx, "/auth/login", payload, &resp); err != nil {
		return s.set(func(st *State) {
			st.Status = models.StatusFailed
			st.Error = errMessage(err, "Login failed")
		})
	}
	err := s.creds.Save(models.Credential{
		Token:    resp.Token,
		Username: resp.User.Username,
		UserID:   resp.User.ID,
	})
	if err != nil {
		log.Printf("session: persist credentials: %v", err)
	}
	user := resp.User
	return s.set(func(st *State) {
		st.Status = models.StatusSucceeded
		st.IsAuthenticated = true
		st.User = &user
	})
}

// Logout notifies the server best-effort and always clears local state.
// From the caller's point of view it cannot fail.
func (s *Store) Logout(ctx context.Context) State {
	s.begin()
	if err := s.gw.Post(ctx, "/auth/logout", nil, nil); err != nil {
		log.Printf("session: logout notification: %v", err)
	}
	if err := s.creds.Clear(); err != nil {
		log.Printf("session: clear credentials: %v", err)
	}
	s.gw.DropCookies("jwt_token", "access_token")
	return s.set(func(st *State) {
		st.Status = models.StatusIdle
		st.IsAuthenticated = false
		st.User = nil
	})
}

// Restore asks the backend who the bearer token belongs to. A 401
// revokes the session and clears the stored triple; any other failure
// records an error without touching the authenticated state, since the
// cached hint may still be good.
func (s *Store) Restore(ctx context.Context) State {
	s.begin()
	var user models.User
	err := s.gw.Get(ctx, "/auth/me", &user)
	if err == nil {
		return s.set(func(st *State) {
			st.Status = models.StatusSucceeded
			st.IsAuthenticated = true
			st.User = &user
		})
	}
	var apiErr *models.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		if cerr := s.creds.Clear(); cerr != nil {
			log.Printf("session: clear credentials: %v", cerr)
		}
		return s.set(func(st *State) {
			st.Status = models.StatusFailed
			st.IsAuthenticated = false
			st.User = nil
			st.Error = errMessage(err, "Session expired")
		})
	}
	return s.set(func(st *State) {
		st.Status = models.StatusFailed
		st.Error = errMessage(err, "Failed to restore session")
	})
}

// ClearError is idempotent and touches neither status nor
// authentication.
func (s *Store) ClearError() {
	s.set(func(st *State) {
		st.Error = ""
	})
}
