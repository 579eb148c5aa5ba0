package symphony

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lthms/symtree/internal/catalog"
)

const (
	defaultTokenTTL = 50 * time.Minute
	fanOutLimit     = 4
)

// Config holds client initialization parameters.
type Config struct {
	BaseURL    string        // e.g. http://localhost:8082/v1alpha2
	User       string        // login user name
	Password   string        // login password, may be empty
	HTTPClient *http.Client  // nil = client with a 30s timeout
	TokenTTL   time.Duration // how long a token is reused (0 = default 50m)
}

// APIError is a non-2xx answer from the Symphony API.
type APIError struct {
	Method string
	Route  string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("symphony %s %s: [%d] %s", e.Method, e.Route, e.Status, strings.TrimSpace(e.Body))
}

// Client talks to the Symphony REST API.
type Client struct {
	baseURL  string
	user     string
	password string
	http     *http.Client
	tokenTTL time.Duration
	now      func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

type authRequest struct {
	UserName string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
}

// New creates a client. Nothing is sent until the first call.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("symphony: BaseURL must not be empty")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("symphony: parse base url: %w", err)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	ttl := cfg.TokenTTL
	if ttl == 0 {
		ttl = defaultTokenTTL
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		user:     cfg.User,
		password: cfg.Password,
		http:     hc,
		tokenTTL: ttl,
		now:      time.Now,
	}, nil
}

// Login returns a bearer token, reusing the cached one while it is fresh.
func (c *Client) Login(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expires) {
		return c.token, nil
	}

	payload, err := json.Marshal(authRequest{UserName: c.user, Password: c.password})
	if err != nil {
		return "", fmt.Errorf("marshal auth request: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, "/users/auth", payload, "", nil)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}

	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parse auth response: %w", err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("login: no access token in response")
	}

	c.token = "Bearer " + resp.AccessToken
	c.expires = c.now().Add(c.tokenTTL)
	slog.Debug("symphony login succeeded", "user", c.user)
	return c.token, nil
}

func (c *Client) forgetToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}

// ListCatalogs returns the catalog registry, optionally scoped to a
// namespace. A missing registry (404) yields no catalogs.
func (c *Client) ListCatalogs(ctx context.Context, namespace string) ([]catalog.Catalog, error) {
	var params url.Values
	if namespace != "" {
		params = url.Values{"namespace": {namespace}}
	}

	body, err := c.authorized(ctx, http.MethodGet, "/catalogs/registry", params)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list catalogs: %w", err)
	}

	var cats []catalog.Catalog
	if err := json.Unmarshal(body, &cats); err != nil {
		return nil, fmt.Errorf("parse catalogs: %w", err)
	}
	slog.Debug("listed catalogs", "namespace", namespace, "count", len(cats))
	return cats, nil
}

// ListCatalogsIn lists several namespaces concurrently. Results are
// concatenated in namespace order.
func (c *Client) ListCatalogsIn(ctx context.Context, namespaces []string) ([]catalog.Catalog, error) {
	if len(namespaces) == 0 {
		return c.ListCatalogs(ctx, "")
	}

	// Log in once up front so the fan-out does not race on the token.
	if _, err := c.Login(ctx); err != nil {
		return nil, err
	}

	results := make([][]catalog.Catalog, len(namespaces))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for i, ns := range namespaces {
		g.Go(func() error {
			cats, err := c.ListCatalogs(gctx, ns)
			if err != nil {
				return fmt.Errorf("namespace %s: %w", ns, err)
			}
			results[i] = cats
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []catalog.Catalog
	for _, cats := range results {
		out = append(out, cats...)
	}
	return out, nil
}

// authorized performs a request with a bearer token, logging in again once
// if the server rejects the cached token.
func (c *Client) authorized(ctx context.Context, method, route string, params url.Values) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		token, err := c.Login(ctx)
		if err != nil {
			return nil, err
		}
		body, err := c.do(ctx, method, route, nil, token, params)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized && attempt == 0 {
			slog.Debug("symphony token rejected, logging in again", "route", route)
			c.forgetToken()
			continue
		}
		return body, err
	}
}

func (c *Client) do(ctx context.Context, method, route string, payload []byte, token string, params url.Values) ([]byte, error) {
	u := c.baseURL + route
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, &APIError{Method: method, Route: route, Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
