package bragerone

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nerrad567/brager-bridge/internal/infrastructure/config"
)

// signedToken returns an HS256 JWT expiring at the given time.
func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return signed
}

// testClient connects a client to a test server and logs in.
func testClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client := NewClient(config.BragerOneConfig{
		APIURL:   server.URL,
		Email:    "user@example.com",
		Password: "secret",
	}, 5*time.Second, nil)
	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	return client
}

// loginHandler answers /v1/auth/login with a long-lived token.
func loginHandler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding login body: %v", err)
		}
		if body["email"] != "user@example.com" || body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(Token{
			AccessToken:  signedToken(t, time.Now().Add(time.Hour)),
			RefreshToken: "refresh-1",
		})
	}
}

// =============================================================================
// Authentication Tests
// =============================================================================

func TestLogin(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/login", loginHandler(t))
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)

	if client.token == nil {
		t.Fatal("token not stored after Login()")
	}
	if client.token.ExpiresAt.IsZero() {
		t.Error("ExpiresAt not derived from access token")
	}
}

func TestLoginRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/login", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(config.BragerOneConfig{
		APIURL:   server.URL,
		Email:    "user@example.com",
		Password: "wrong",
	}, 5*time.Second, nil)

	err := client.Login(context.Background())
	if !errors.Is(err, ErrAuthFailed) {
		t.Errorf("Login() error = %v, want ErrAuthFailed", err)
	}
}

func TestRequestWithoutLogin(t *testing.T) {
	client := NewClient(config.BragerOneConfig{APIURL: "http://127.0.0.1:1"}, time.Second, nil)

	_, err := client.Objects(context.Background())
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Objects() error = %v, want ErrNotAuthenticated", err)
	}
}

func TestRefreshOn401(t *testing.T) {
	var refreshed atomic.Bool
	var objectCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/login", loginHandler(t))
	mux.HandleFunc("/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["refreshToken"] != "refresh-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		refreshed.Store(true)
		json.NewEncoder(w).Encode(Token{
			AccessToken:  signedToken(t, time.Now().Add(time.Hour)),
			RefreshToken: "refresh-2",
		})
	})
	mux.HandleFunc("/v1/objects", func(w http.ResponseWriter, _ *http.Request) {
		// First call pretends the token went stale server-side.
		if objectCalls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode([]Object{{ID: 7, Name: "Home"}})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)

	objects, err := client.Objects(context.Background())
	if err != nil {
		t.Fatalf("Objects() error = %v", err)
	}
	if !refreshed.Load() {
		t.Error("401 did not trigger a token refresh")
	}
	if len(objects) != 1 || objects[0].ID != 7 {
		t.Errorf("Objects() = %+v", objects)
	}
}

func TestStaleTokenRefreshesBeforeRequest(t *testing.T) {
	var refreshed atomic.Bool

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/login", func(w http.ResponseWriter, _ *http.Request) {
		// Already inside the refresh leeway.
		json.NewEncoder(w).Encode(Token{
			AccessToken:  signedToken(t, time.Now().Add(10*time.Second)),
			RefreshToken: "refresh-1",
		})
	})
	mux.HandleFunc("/v1/auth/refresh", func(w http.ResponseWriter, _ *http.Request) {
		refreshed.Store(true)
		json.NewEncoder(w).Encode(Token{
			AccessToken:  signedToken(t, time.Now().Add(time.Hour)),
			RefreshToken: "refresh-2",
		})
	})
	mux.HandleFunc("/v1/objects", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode([]Object{})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)

	if _, err := client.Objects(context.Background()); err != nil {
		t.Fatalf("Objects() error = %v", err)
	}
	if !refreshed.Load() {
		t.Error("stale token was not refreshed before the request")
	}
}

// =============================================================================
// Enumeration Tests
// =============================================================================

func TestModules(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/login", loginHandler(t))
	mux.HandleFunc("/v1/objects/7/modules", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got == "" {
			t.Error("modules request carried no Authorization header")
		}
		json.NewEncoder(w).Encode([]Module{{
			DevID:         "BRG-1234",
			Name:          "Boiler",
			ModuleTitle:   "Pellet Boiler",
			ModuleVersion: "2.1",
			DeviceMenu:    42,
			Gateway:       Gateway{ID: "gw-1"},
		}})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)

	modules, err := client.Modules(context.Background(), 7)
	if err != nil {
		t.Fatalf("Modules() error = %v", err)
	}
	if len(modules) != 1 {
		t.Fatalf("Modules() returned %d modules, want 1", len(modules))
	}
	if modules[0].DevID != "BRG-1234" || modules[0].DeviceMenu != 42 {
		t.Errorf("Modules()[0] = %+v", modules[0])
	}
}

func TestObjectPermissions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/login", loginHandler(t))
	mux.HandleFunc("/v1/objects/7/permissions", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode([]Permission{{Name: "user"}, {Name: "service"}})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)

	permissions, err := client.ObjectPermissions(context.Background(), 7)
	if err != nil {
		t.Fatalf("ObjectPermissions() error = %v", err)
	}
	if len(permissions) != 2 || permissions[0] != "user" || permissions[1] != "service" {
		t.Errorf("ObjectPermissions() = %v", permissions)
	}
}

// =============================================================================
// Bootstrap Data Tests
// =============================================================================

func TestPrimeParameters(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/login", loginHandler(t))
	mux.HandleFunc("/v1/modules/parameters/prime", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			DevIDs []string `json:"devids"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if len(body.DevIDs) != 1 || body.DevIDs[0] != "BRG-1234" {
			t.Errorf("prime body devids = %v", body.DevIDs)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"BRG-1234": map[string]any{
					"P4": map[string]any{"v1": 21.5},
				},
			},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)

	snapshot, err := client.PrimeParameters(context.Background(), []string{"BRG-1234"})
	if err != nil {
		t.Fatalf("PrimeParameters() error = %v", err)
	}
	value, ok := snapshot.Value("BRG-1234", "P4.v1")
	if !ok {
		t.Fatal("snapshot missing P4.v1")
	}
	if value != 21.5 {
		t.Errorf("snapshot value = %v, want 21.5", value)
	}
}

func TestPrimeParametersEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/login", loginHandler(t))
	mux.HandleFunc("/v1/modules/parameters/prime", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)

	snapshot, err := client.PrimeParameters(context.Background(), []string{"BRG-1234"})
	if err != nil {
		t.Fatalf("PrimeParameters() error = %v", err)
	}
	if len(snapshot) != 0 {
		t.Errorf("snapshot = %v, want empty", snapshot)
	}
}

func TestModuleMenu(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/login", loginHandler(t))
	mux.HandleFunc("/v1/menus/42", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["permissions"]; !ok {
			t.Error("menu request carried no permissions field")
		}
		json.NewEncoder(w).Encode(Menu{Items: []MenuNode{
			{Label: "Boiler", Children: []MenuNode{
				{Symbol: "BOILER_TEMP"},
				{Symbol: "TEMP_SET"},
			}},
			{Symbol: "BOILER_TEMP"}, // duplicate across branches
		}})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)

	menu, err := client.ModuleMenu(context.Background(), 42, []string{"user"})
	if err != nil {
		t.Fatalf("ModuleMenu() error = %v", err)
	}
	tokens := menu.AllTokens()
	want := []string{"BOILER_TEMP", "TEMP_SET"}
	if len(tokens) != len(want) {
		t.Fatalf("AllTokens() = %v, want %v", tokens, want)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("AllTokens()[%d] = %q, want %q", i, tokens[i], want[i])
		}
	}
}

func TestDescribeSymbols(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/login", loginHandler(t))
	mux.HandleFunc("/v1/symbols/describe", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"TEMP_SET": map[string]any{
				"label": "Target temperature",
				"unit":  map[string]string{"en": "°C", "pl": "st. C"},
				"pool":  "P4",
				"chan":  "v",
				"idx":   1,
				"min":   10.0,
				"max":   80.0,
				"mapping": map[string]any{
					"component_type": "number",
					"command_rules":  []map[string]any{{"command": "SET_TEMP"}},
				},
			},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)

	details, err := client.DescribeSymbols(context.Background(), []string{"TEMP_SET"})
	if err != nil {
		t.Fatalf("DescribeSymbols() error = %v", err)
	}
	detail, ok := details["TEMP_SET"]
	if !ok {
		t.Fatal("describe result missing TEMP_SET")
	}
	if detail.Label != "Target temperature" {
		t.Errorf("Label = %q", detail.Label)
	}
	if got := detail.UnitString(); got != "°C" {
		t.Errorf("UnitString() = %q, want °C", got)
	}
	if detail.Pool == nil || *detail.Pool != "P4" || detail.Idx == nil || *detail.Idx != 1 {
		t.Errorf("address = %v/%v/%v", detail.Pool, detail.Chan, detail.Idx)
	}
	if detail.Mapping == nil || len(detail.Mapping.CommandRules) != 1 {
		t.Errorf("Mapping = %+v", detail.Mapping)
	}
}

func TestUnitStringPlain(t *testing.T) {
	detail := SymbolDetail{Unit: json.RawMessage(`" kW "`)}
	if got := detail.UnitString(); got != "kW" {
		t.Errorf("UnitString() = %q, want kW", got)
	}
}

// =============================================================================
// Command Tests
// =============================================================================

func TestCommandParameter(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/login", loginHandler(t))
	mux.HandleFunc("/v1/modules/BRG-1234/command", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["pool"] != "P4" || body["parameter"] != "v1" {
			t.Errorf("command body = %v", body)
		}
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)

	err := client.CommandParameter(context.Background(), "BRG-1234", "P4", "v1", 200)
	if err != nil {
		t.Errorf("CommandParameter() error = %v", err)
	}
}

func TestCommandRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/login", loginHandler(t))
	mux.HandleFunc("/v1/modules/BRG-1234/command", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"ok": false})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)

	err := client.CommandRaw(context.Background(), "BRG-1234", "RESET_ALARM", nil)
	if !errors.Is(err, ErrCommandRejected) {
		t.Errorf("CommandRaw() error = %v, want ErrCommandRejected", err)
	}
}

func TestRequestFailureStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/login", loginHandler(t))
	mux.HandleFunc("/v1/objects", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)

	_, err := client.Objects(context.Background())
	if !errors.Is(err, ErrRequestFailed) {
		t.Errorf("Objects() error = %v, want ErrRequestFailed", err)
	}
}
