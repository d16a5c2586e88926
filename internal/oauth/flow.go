package oauth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"socialapp/internal/api"
	"socialapp/internal/models"
)

// Mode selects how a third-party callback is reconciled into a session.
type Mode string

const (
	// ModeDirect exchanges the provider's short-lived access-token
	// cookie for a profile straight from the provider's API.
	ModeDirect Mode = "v1"
	// ModeBrokered asks the application backend for the profile,
	// authorized by the existing session cookie.
	ModeBrokered Mode = "v2"
)

const (
	ProviderGithub = "github"
	ProviderGoogle = "google"
)

// GraceDelay is the fixed pause between showing the resolved profile
// and navigating on to the posts view. Fire-once, not cancellable.
const GraceDelay = 2500 * time.Millisecond

const (
	authPath  = "/auth"
	postsPath = "/posts"
)

// Route is the parsed callback location.
type Route struct {
	Mode     Mode
	Provider string
}

// ParseRoute maps a callback path like /v1/profile/github onto a Route.
// Mode selection is purely path-based: the two prefixes address the two
// trust modes for the same provider.
func ParseRoute(path string) (Route, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[1] != "profile" {
		return Route{}, fmt.Errorf("not an oauth callback path: %q", path)
	}
	r := Route{Mode: Mode(parts[0]), Provider: parts[2]}
	if r.Mode != ModeDirect && r.Mode != ModeBrokered {
		return Route{}, fmt.Errorf("unknown callback prefix: %q", parts[0])
	}
	if r.Provider != ProviderGithub && r.Provider != ProviderGoogle {
		return Route{}, fmt.Errorf("unknown provider: %q", r.Provider)
	}
	return r, nil
}

// Profile is the provider-reported identity, covering the fields either
// provider returns.
type Profile struct {
	Login     string `json:"login,omitempty"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	HTMLURL   string `json:"html_url,omitempty"`
	Bio       string `json:"bio,omitempty"`
}

// Outcome is where the flow landed. Every failure path carries
// Next == "/auth"; success carries the profile, Next == "/posts" and
// the grace delay.
type Outcome struct {
	Profile *Profile
	Next    string
	Delay   time.Duration
}

// Flow resolves third-party callbacks. Both modes converge on the same
// downstream state and neither leaves the user stranded.
type Flow struct {
	App    *api.Gateway // app origin; source of the provider cookie
	Broker *api.Gateway // backend-brokered profile endpoint
	Client *http.Client // for direct provider calls

	GithubAPI string
	GoogleAPI string

	// Grace overrides GraceDelay when non-zero; tests shrink it.
	Grace time.Duration
}

func (f *Flow) grace() time.Duration {
	if f.Grace > 0 {
		return f.Grace
	}
	return GraceDelay
}

// Resolve reconciles the callback at path into an Outcome. It performs
// the profile fetch but not the navigation; see Run.
func (f *Flow) Resolve(ctx context.Context, path string) Outcome {
	route, err := ParseRoute(path)
	if err != nil {
		log.Printf("oauth: %v", err)
		return Outcome{Next: authPath}
	}
	switch route.Mode {
	case ModeDirect:
		return f.resolveDirect(ctx, route)
	default:
		return f.resolveBrokered(ctx, route)
	}
}

func (f *Flow) resolveDirect(ctx context.Context, route Route) Outcome {
	token := f.App.Cookie("access_token")
	if token == "" {
		// Hard precondition, not a retryable error.
		return Outcome{Next: authPath}
	}
	var url string
	switch route.Provider {
	case ProviderGithub:
		url = f.GithubAPI + "/user"
	case ProviderGoogle:
		url = f.GoogleAPI + "/userinfo"
	}
	var p Profile
	if err := api.BearerGet(ctx, f.Client, url, token, &p); err != nil {
		log.Printf("oauth: %s profile: %v", route.Provider, err)
		return Outcome{Next: authPath}
	}
	return Outcome{Profile: &p, Next: postsPath, Delay: f.grace()}
}

func (f *Flow) resolveBrokered(ctx context.Context, route Route) Outcome {
	var resp struct {
		User Profile `json:"user"`
	}
	err := f.Broker.Get(ctx, "/user/profile/"+route.Provider, &resp)
	if err != nil {
		var apiErr *models.APIError
		if errors.As(err, &apiErr) &&
			(apiErr.Status == http.StatusForbidden || apiErr.Status == http.StatusInternalServerError) {
			// Not actually authenticated with this provider.
			return Outcome{Next: authPath}
		}
		log.Printf("oauth: brokered %s profile: %v", route.Provider, err)
		return Outcome{Next: authPath}
	}
	return Outcome{Profile: &resp.User, Next: postsPath, Delay: f.grace()}
}

// Run resolves the callback, waits out the grace delay on success, then
// hands the destination to navigate.
func (f *Flow) Run(ctx context.Context, path string, navigate func(string)) Outcome {
	out := f.Resolve(ctx, path)
	if out.Delay > 0 {
		time.Sleep(out.Delay)
	}
	navigate(out.Next)
	return out
}
