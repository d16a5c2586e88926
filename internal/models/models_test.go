package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestAuthorAcceptsIDOrEmbeddedUser(t *testing.T) {
	var p Post
	if err := json.Unmarshal([]byte(`{"_id":"p1","title":"t","content":"c","author":"u1"}`), &p); err != nil {
		t.Fatalf("unmarshal bare id: %v", err)
	}
	if p.Author.ID != "u1" || p.Author.Username != "" {
		t.Fatalf("author = %+v", p.Author)
	}

	if err := json.Unmarshal([]byte(`{"_id":"p2","author":{"_id":"u2","username":"bob"}}`), &p); err != nil {
		t.Fatalf("unmarshal embedded: %v", err)
	}
	if p.Author.ID != "u2" || p.Author.Username != "bob" {
		t.Fatalf("author = %+v", p.Author)
	}
}

func TestDraftValidate(t *testing.T) {
	if err := (PostDraft{Title: "  ", Content: "c"}).Validate(); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("err = %v", err)
	}
	if err := (PostDraft{Title: "t", Content: ""}).Validate(); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("err = %v", err)
	}
	if err := (PostDraft{Title: "t", Content: "c"}).Validate(); err != nil {
		t.Fatalf("err = %v", err)
	}
}

func TestCredentialComplete(t *testing.T) {
	if (Credential{Token: "t", Username: "u"}).Complete() {
		t.Fatal("partial triple reported complete")
	}
	if !(Credential{Token: "t", Username: "u", UserID: "id"}).Complete() {
		t.Fatal("full triple reported incomplete")
	}
}

func TestAPIErrorMessage(t *testing.T) {
	if got := (&APIError{Message: "nope", Status: 400}).Error(); got != "nope" {
		t.Fatalf("Error() = %q", got)
	}
	if got := (&APIError{Status: 502}).Error(); got != "server returned status 502" {
		t.Fatalf("Error() = %q", got)
	}
}
