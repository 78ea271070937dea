package bragerone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/brager-bridge/internal/infrastructure/config"
	"github.com/nerrad567/brager-bridge/internal/infrastructure/logging"
)

// maxResponseSize bounds API response bodies (4MB). The describe endpoint
// for a full boiler menu is the largest payload seen in practice (~1MB).
const maxResponseSize = 4 << 20

// Client is the BragerOne cloud API client.
//
// It handles credential login, transparent token refresh, and the REST
// surface the bridge needs: object/module enumeration, permission lookup,
// parameter priming, menu traversal, symbol description, and the two
// command write routes.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Token refresh is serialized; concurrent requests share the result.
type Client struct {
	baseURL    string
	email      string
	password   string
	httpClient *http.Client
	logger     *logging.Logger

	token   *Token
	tokenMu sync.Mutex
}

// NewClient creates a BragerOne API client from configuration.
//
// The client is not authenticated until Login is called.
//
// Parameters:
//   - cfg: BragerOne section of config.yaml
//   - timeout: Per-request timeout (config bragerone.request_timeout)
//   - logger: Component logger (may be nil)
func NewClient(cfg config.BragerOneConfig, timeout time.Duration, logger *logging.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		email:      cfg.Email,
		password:   cfg.Password,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Login authenticates with the account credentials and stores the issued
// token pair. Call once at startup; subsequent requests refresh the token
// automatically as it approaches expiry.
//
// Returns:
//   - error: ErrAuthFailed if the credentials are rejected
func (c *Client) Login(ctx context.Context) error {
	body := map[string]string{
		"email":    c.email,
		"password": c.password,
	}

	var token Token
	if err := c.postJSON(ctx, "/v1/auth/login", body, &token, false); err != nil {
		return fmt.Errorf("%w: login: %w", ErrAuthFailed, err)
	}
	if token.AccessToken == "" {
		return fmt.Errorf("%w: login response carried no access token", ErrAuthFailed)
	}
	token.deriveExpiry()

	c.tokenMu.Lock()
	c.token = &token
	c.tokenMu.Unlock()

	if c.logger != nil {
		c.logger.Debug("authenticated with BragerOne",
			"expires_at", token.ExpiresAt)
	}
	return nil
}

// refresh exchanges the refresh token for a new token pair. Falls back to
// a full credential login when no refresh token is held or the exchange
// is rejected.
func (c *Client) refresh(ctx context.Context) error {
	c.tokenMu.Lock()
	refreshToken := ""
	if c.token != nil {
		refreshToken = c.token.RefreshToken
	}
	c.tokenMu.Unlock()

	if refreshToken != "" {
		var token Token
		err := c.postJSON(ctx, "/v1/auth/refresh", map[string]string{
			"refreshToken": refreshToken,
		}, &token, false)
		if err == nil && token.AccessToken != "" {
			token.deriveExpiry()
			c.tokenMu.Lock()
			c.token = &token
			c.tokenMu.Unlock()
			return nil
		}
		if c.logger != nil {
			c.logger.Warn("token refresh failed, falling back to login", "error", err)
		}
	}

	return c.Login(ctx)
}

// accessToken returns a current access token, refreshing first when the
// held token is stale.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	token := c.token
	c.tokenMu.Unlock()

	if token == nil {
		return "", ErrNotAuthenticated
	}
	if token.Stale(time.Now()) {
		if err := c.refresh(ctx); err != nil {
			return "", err
		}
		c.tokenMu.Lock()
		token = c.token
		c.tokenMu.Unlock()
	}
	return token.AccessToken, nil
}

// AccessToken returns the current raw access token for callers that open
// their own authenticated connections (the event stream).
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	return c.accessToken(ctx)
}

// Objects returns the installation sites visible to the account.
func (c *Client) Objects(ctx context.Context) ([]Object, error) {
	var objects []Object
	if err := c.getJSON(ctx, "/v1/objects", &objects); err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}
	return objects, nil
}

// Modules returns the modules registered under an object.
func (c *Client) Modules(ctx context.Context, objectID int) ([]Module, error) {
	var modules []Module
	path := fmt.Sprintf("/v1/objects/%d/modules", objectID)
	if err := c.getJSON(ctx, path, &modules); err != nil {
		return nil, fmt.Errorf("listing modules for object %d: %w", objectID, err)
	}
	return modules, nil
}

// ObjectPermissions returns the permission names granted on an object.
// Menu traversal uses these to prune entries the account cannot see.
func (c *Client) ObjectPermissions(ctx context.Context, objectID int) ([]string, error) {
	var permissions []Permission
	path := fmt.Sprintf("/v1/objects/%d/permissions", objectID)
	if err := c.getJSON(ctx, path, &permissions); err != nil {
		return nil, fmt.Errorf("listing permissions for object %d: %w", objectID, err)
	}
	names := make([]string, 0, len(permissions))
	for _, permission := range permissions {
		names = append(names, permission.Name)
	}
	return names, nil
}

// PrimeParameters requests a full parameter snapshot for the given modules.
// The snapshot seeds entity state before the event stream delivers its
// first updates. An empty snapshot (API returns 204) is not an error.
func (c *Client) PrimeParameters(ctx context.Context, devIDs []string) (PrimeSnapshot, error) {
	body := map[string]any{"devids": devIDs}

	var response struct {
		Data PrimeSnapshot `json:"data"`
	}
	if err := c.postJSON(ctx, "/v1/modules/parameters/prime", body, &response, true); err != nil {
		return nil, fmt.Errorf("priming parameters: %w", err)
	}
	if response.Data == nil {
		return PrimeSnapshot{}, nil
	}
	return response.Data, nil
}

// ModuleMenu fetches a module's menu tree, pruned to the given permission
// names. Pass nil permissions to request the unpruned tree; bootstrap
// retries without permissions when the pruned fetch fails.
func (c *Client) ModuleMenu(ctx context.Context, deviceMenu int, permissions []string) (*Menu, error) {
	body := map[string]any{}
	if permissions != nil {
		body["permissions"] = permissions
	}

	var menu Menu
	path := fmt.Sprintf("/v1/menus/%d", deviceMenu)
	if err := c.postJSON(ctx, path, body, &menu, true); err != nil {
		return nil, fmt.Errorf("fetching menu %d: %w", deviceMenu, err)
	}
	return &menu, nil
}

// DescribeSymbols resolves metadata for a set of symbol tokens. Symbols
// unknown to the API are simply absent from the result.
func (c *Client) DescribeSymbols(ctx context.Context, symbols []string) (map[string]SymbolDetail, error) {
	body := map[string]any{"symbols": symbols}

	var details map[string]SymbolDetail
	if err := c.postJSON(ctx, "/v1/symbols/describe", body, &details, true); err != nil {
		return nil, fmt.Errorf("describing %d symbols: %w", len(symbols), err)
	}
	if details == nil {
		details = map[string]SymbolDetail{}
	}
	return details, nil
}

// CommandParameter writes a raw value through the direct parameter route.
//
// Parameters:
//   - devID: Target module device id
//   - pool: Parameter pool (e.g. "P4")
//   - parameter: Channel + index (e.g. "v1")
//   - value: Raw value, already validated and transformed
//
// Returns:
//   - error: ErrCommandRejected when the API reports ok=false
func (c *Client) CommandParameter(ctx context.Context, devID, pool, parameter string, value any) error {
	body := map[string]any{
		"pool":      pool,
		"parameter": parameter,
		"value":     value,
	}
	if err := c.command(ctx, devID, body); err != nil {
		return fmt.Errorf("parameter write %s %s.%s: %w", devID, pool, parameter, err)
	}
	return nil
}

// CommandRaw dispatches a named backend command for modules without a
// direct parameter address.
//
// Returns:
//   - error: ErrCommandRejected when the API reports ok=false
func (c *Client) CommandRaw(ctx context.Context, devID, command string, value any) error {
	body := map[string]any{
		"command": command,
	}
	if value != nil {
		body["value"] = value
	}
	if err := c.command(ctx, devID, body); err != nil {
		return fmt.Errorf("raw command %s %q: %w", devID, command, err)
	}
	return nil
}

// command posts a command body and checks the ok flag in the response.
func (c *Client) command(ctx context.Context, devID string, body map[string]any) error {
	var response struct {
		OK bool `json:"ok"`
	}
	path := fmt.Sprintf("/v1/modules/%s/command", devID)
	if err := c.postJSON(ctx, path, body, &response, true); err != nil {
		return err
	}
	if !response.OK {
		return ErrCommandRejected
	}
	return nil
}

// getJSON performs an authenticated GET and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out, true)
}

// postJSON performs a POST with a JSON body and decodes the JSON response.
func (c *Client) postJSON(ctx context.Context, path string, body, out any, authed bool) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out, authed)
}

// doJSON is the single request path: it attaches auth, retries exactly once
// on 401 after a refresh, and decodes the response into out (which may be
// nil for empty or 204 responses).
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any, authed bool) error {
	retried := false
	for {
		status, payload, err := c.do(ctx, method, path, body, authed)
		if err != nil {
			return err
		}

		if status == http.StatusUnauthorized && authed && !retried {
			retried = true
			if err := c.refresh(ctx); err != nil {
				return err
			}
			continue
		}
		if status == http.StatusNoContent {
			return nil
		}
		if status < 200 || status >= 300 {
			return fmt.Errorf("%w: %s %s returned %s", ErrRequestFailed, method, path, strconv.Itoa(status))
		}
		if out == nil || len(payload) == 0 {
			return nil
		}
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("%w: %s %s: %w", ErrDecodeFailed, method, path, err)
		}
		return nil
	}
}

// do executes one HTTP round trip and returns the status and body.
func (c *Client) do(ctx context.Context, method, path string, body any, authed bool) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: encoding %s body: %w", ErrRequestFailed, path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: building %s request: %w", ErrRequestFailed, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		token, err := c.accessToken(ctx)
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: reading %s response: %w", ErrRequestFailed, path, err)
	}
	return resp.StatusCode, payload, nil
}
