package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle stage of the most recently dispatched command
// on a store. It is not a long-lived identity state: loading is
// transient and always settles to succeeded or failed.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

type User struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// Author is either a bare user id or an embedded user record, depending
// on whether the backend populated the reference.
type Author struct {
	User
}

func (a *Author) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var id string
		if err := json.Unmarshal(b, &id); err != nil {
			return err
		}
		a.User = User{ID: id}
		return nil
	}
	return json.Unmarshal(b, &a.User)
}

func (a Author) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.User)
}

type Post struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Image     string    `json:"image,omitempty"`
	Author    Author    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type PostDraft struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Image   string `json:"image,omitempty"`
}

var (
	ErrEmptyTitle   = errors.New("title is required")
	ErrEmptyContent = errors.New("content is required")
)

// Validate rejects drafts that must never reach the network. Callers
// check drafts before dispatching a create or update command.
func (d PostDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return ErrEmptyTitle
	}
	if strings.TrimSpace(d.Content) == "" {
		return ErrEmptyContent
	}
	return nil
}

// Credential is the persisted session triple. It is all-or-nothing:
// either every field is present or the session is anonymous.
type Credential struct {
	Token    string
	Username string
	UserID   string
}

func (c Credential) Complete() bool {
	return c.Token != "" && c.Username != "" && c.UserID != ""
}

// APIError carries the backend's message body and HTTP status for any
// non-2xx response.
type APIError struct {
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("server returned status %d", e.Status)
}
