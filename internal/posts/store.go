package posts

import (
	"context"
	"errors"
	"sync"

	"socialapp/internal/api"
	"socialapp/internal/models"
)

// Snapshot is a copy of the collection and the last settled command
// outcome.
type Snapshot struct {
	Posts  []models.Post
	Status models.Status
	Error  string
}

// Store owns the ordered post collection. The collection is keyed by
// unique id; a create prepends, an update replaces in place, a delete
// removes exactly one entry, and a list replaces everything with the
// server's order. All commands share one status field, so two in-flight
// commands race and only the last settled outcome is kept.
type Store struct {
	mu     sync.Mutex
	posts  []models.Post
	status models.Status
	errMsg string

	gw *api.Gateway
}

func New(gw *api.Gateway) *Store {
	return &Store{status: models.StatusIdle, gw: gw}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Post, len(s.posts))
	copy(out, s.posts)
	return Snapshot{Posts: out, Status: s.status, Error: s.errMsg}
}

func (s *Store) begin() {
	s.mu.Lock()
	s.status = models.StatusLoading
	s.errMsg = ""
	s.mu.Unlock()
}

func (s *Store) fail(err error, fallback string) Snapshot {
	msg := fallback
	var apiErr *models.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		msg = apiErr.Message
	}
	s.mu.Lock()
	s.status = models.StatusFailed
	s.errMsg = msg
	s.mu.Unlock()
	return s.Snapshot()
}

func (s *Store) succeed(mut func()) Snapshot {
	s.mu.Lock()
	if mut != nil {
		mut()
	}
	s.status = models.StatusSucceeded
	s.mu.Unlock()
	return s.Snapshot()
}

type listResponse struct {
	Posts []models.Post `json:"posts"`
}

type postResponse struct {
	Post models.Post `json:"post"`
}

// List replaces the collection with the server's sequence, in the order
// received. Server order is authoritative; no client resort.
func (s *Store) List(ctx context.Context) Snapshot {
	s.begin()
	var resp listResponse
	if err := s.gw.Get(ctx, "/posts", &resp); err != nil {
		return s.fail(err, "Failed to fetch posts")
	}
	return s.succeed(func() {
		s.posts = resp.Posts
	})
}

// Create submits a draft and prepends the server's canonical post,
// keeping the newest-first display invariant.
func (s *Store) Create(ctx context.Context, draft models.PostDraft) Snapshot {
	s.begin()
	var resp postResponse
	if err := s.gw.Post(ctx, "/posts", draft, &resp); err != nil {
		return s.fail(err, "Failed to create post")
	}
	return s.succeed(func() {
		s.posts = append([]models.Post{resp.Post}, s.posts...)
	})
}

// Update replaces the matching element in place. A missing id means the
// local collection was stale; that is a silent no-op, not an error.
func (s *Store) Update(ctx context.Context, id string, draft models.PostDraft) Snapshot {
	s.begin()
	var resp postResponse
	if err := s.gw.Put(ctx, "/posts/"+id, draft, &resp); err != nil {
		return s.fail(err, "Failed to update post")
	}
	return s.succeed(func() {
		for i := range s.posts {
			if s.posts[i].ID == resp.Post.ID {
				s.posts[i] = resp.Post
				break
			}
		}
	})
}

// Delete removes the matching element; idempotent if already absent.
func (s *Store) Delete(ctx context.Context, id string) Snapshot {
	s.begin()
	if err := s.gw.Delete(ctx, "/posts/"+id); err != nil {
		return s.fail(err, "Failed to delete post")
	}
	return s.succeed(func() {
		for i := range s.posts {
			if s.posts[i].ID == id {
				s.posts = append(s.posts[:i], s.posts[i+1:]...)
				break
			}
		}
	})
}

// ClearError resets the recorded error without touching status or the
// collection.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
}
