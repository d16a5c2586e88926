package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"socialapp/internal/credentials"
	"socialapp/internal/models"
)

// Gateway wraps outbound HTTP calls to one backend base URL. Every
// request re-reads the Credential Store immediately before sending and
// attaches the token as a bearer credential. The shared client carries
// a cookie jar because the brokered OAuth flow depends on cookies, not
// the bearer token. The gateway is transport only: it never mutates
// session state, not even on 401.
type Gateway struct {
	base   *url.URL
	creds  *credentials.Store
	client *http.Client
}

func New(base string, creds *credentials.Store) (*Gateway, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return NewWithClient(base, creds, &http.Client{Jar: jar})
}

// NewWithClient builds a gateway over an existing client so several
// gateways (primary backend, OAuth broker) can share one cookie jar.
func NewWithClient(base string, creds *credentials.Store, client *http.Client) (*Gateway, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, err
	}
	return &Gateway{base: u, creds: creds, client: client}, nil
}

func (g *Gateway) Client() *http.Client {
	return g.client
}

func (g *Gateway) Get(ctx context.Context, path string, out any) error {
	return g.do(ctx, http.MethodGet, path, nil, out)
}

func (g *Gateway) Post(ctx context.Context, path string, in, out any) error {
	return g.do(ctx, http.MethodPost, path, in, out)
}

func (g *Gateway) Put(ctx context.Context, path string, in, out any) error {
	return g.do(ctx, http.MethodPut, path, in, out)
}

func (g *Gateway) Delete(ctx context.Context, path string) error {
	return g.do(ctx, http.MethodDelete, path, nil, nil)
}

func (g *Gateway) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.base.String()+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c, err := g.creds.Load(); err == nil {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(resp, out)
}

// Cookie returns the named cookie's value for the gateway's origin, or
// "" if absent. The direct-provider OAuth mode reads its short-lived
// access token this way.
func (g *Gateway) Cookie(name string) string {
	if g.client.Jar == nil {
		return ""
	}
	for _, c := range g.client.Jar.Cookies(g.base) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// DropCookies expires the named cookies for the gateway's origin.
// Logout uses it to discard provider-issued cookies.
func (g *Gateway) DropCookies(names ...string) {
	if g.client.Jar == nil {
		return
	}
	expired := make([]*http.Cookie, 0, len(names))
	for _, n := range names {
		expired = append(expired, &http.Cookie{Name: n, MaxAge: -1})
	}
	g.client.Jar.SetCookies(g.base, expired)
}

// BearerGet fetches rawurl with an explicit bearer token, outside any
// credential-backed gateway. The direct-provider OAuth mode calls the
// provider's profile API this way.
func BearerGet(ctx context.Context, client *http.Client, rawurl, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(resp, out)
}

func decode(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &models.APIError{Status: resp.StatusCode}
		// Best effort: the body may not carry a message.
		json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
