package guard

import (
	"socialapp/internal/models"
	"socialapp/internal/session"
)

type Action int

const (
	// Render admits the protected content.
	Render Action = iota
	// Loading asks for a placeholder: the session is still settling and
	// redirecting now would bounce an already-authenticated user.
	Loading
	// Redirect sends the visitor to the authentication screen.
	Redirect
)

// Decision is the guard's verdict for one navigation attempt.
type Decision struct {
	Action Action
	To     string
	From   string
}

// Decide is a pure function of session state. The originating location
// rides along on redirects so the auth screen can return the user
// afterwards, best-effort.
func Decide(st session.State, origin string) Decision {
	if st.Status == models.StatusLoading {
		return Decision{Action: Loading}
	}
	if st.IsAuthenticated {
		return Decision{Action: Render}
	}
	return Decision{Action: Redirect, To: "/auth", From: origin}
}
