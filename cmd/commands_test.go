package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"scoreboard/internal/app"
	"scoreboard/internal/config"
	"scoreboard/internal/formatting"
	"scoreboard/internal/intra"
	pkgoauth "scoreboard/pkg/oauth"
)

// intranet fakes the endpoints the commands reach.
type intranet struct {
	*httptest.Server

	mu      sync.Mutex
	revoked []string
}

func newIntranet(t *testing.T) *intranet {
	t.Helper()
	in := &intranet{}
	mux := http.NewServeMux()
	authorized := func(w http.ResponseWriter, r *http.Request) bool {
		if r.Header.Get("Authorization") != "Bearer access-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return false
		}
		w.Header().Set("Content-Type", "application/json")
		return true
	}
	mux.HandleFunc("/oauth/revoke", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		in.mu.Lock()
		in.revoked = append(in.revoked, r.PostForm.Get("token"))
		in.mu.Unlock()
	})
	mux.HandleFunc("/v2/me", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			_, _ = io.WriteString(w, `{"id": 1, "login": "alice", "displayname": "Alice Liddell", "campus": [{"id": 1, "name": "Paris"}]}`)
		}
	})
	mux.HandleFunc("/v2/cursus/21/users", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			_, _ = io.WriteString(w, `[
				{"id": 1, "login": "alice", "displayname": "Alice", "created_at": "2022-10-03T08:00:00Z", "location": "e1r1p1", "cursus_users": [{"cursus_id": 21, "level": 7.5}]},
				{"id": 2, "login": "bob", "displayname": "Bob", "created_at": "2021-10-03T08:00:00Z", "cursus_users": [{"cursus_id": 21, "level": 9.1}]}
			]`)
		}
	})
	mux.HandleFunc("/v2/cursus/9/users", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			_, _ = io.WriteString(w, `[{"id": 3, "login": "carol", "displayname": "Carol", "created_at": "2025-07-07T08:00:00Z", "cursus_users": [{"cursus_id": 9, "level": 3.25}]}]`)
		}
	})
	in.Server = httptest.NewServer(mux)
	t.Cleanup(in.Close)
	return in
}

// newConfigDir writes a config pointing at the fake intranet, with file
// storage inside the same directory.
func newConfigDir(t *testing.T, in *intranet, extra string) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`oauth:
  clientId: client-123
  baseUrl: %s
api:
  baseUrl: %s
logging:
  level: error
%s`, in.URL, in.URL, extra)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0600))
	return dir
}

// signIn stores a credential the way a finished login would.
func signIn(t *testing.T, configDir string) {
	t.Helper()
	cfg, err := config.LoadConfig(configDir)
	require.NoError(t, err)
	s, err := app.InitializeServices(cfg)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Tokens.SetTokens(context.Background(), pkgoauth.TokenResponse{
		AccessToken:  "access-1",
		TokenType:    "bearer",
		ExpiresIn:    7200,
		RefreshToken: "refresh-1",
	}))
}

func TestStudentsCommand(t *testing.T) {
	in := newIntranet(t)
	dir := newConfigDir(t, in, "")
	signIn(t, dir)

	var stderr bytes.Buffer
	out, err := executeCommand(t, &stderr, dir, "students", "-q", "-o", "json", "--sort", "name", "--order", "asc")
	require.NoError(t, err, stderr.String())

	var body struct {
		Students []intra.Student `json:"students"`
		Stats    intra.Stats     `json:"stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	require.Len(t, body.Students, 2)
	assert.Equal(t, "alice", body.Students[0].Login)
	assert.Equal(t, 2, body.Stats.TotalCount)
	assert.Equal(t, 1, body.Stats.OnlineCount)

	out, err = executeCommand(t, &stderr, dir, "students", "-q", "--year", "2021")
	require.NoError(t, err)
	assert.Contains(t, out, "bob")
	assert.NotContains(t, out, "alice")
}

func TestStudentsCommand_InvalidFilters(t *testing.T) {
	in := newIntranet(t)
	dir := newConfigDir(t, in, "")

	for _, args := range [][]string{
		{"students", "--sort", "wallet"},
		{"students", "--order", "sideways"},
		{"students", "--year", "nineteen"},
		{"students", "--page-size", "0"},
		{"students", "-o", "csv"},
	} {
		var stderr bytes.Buffer
		_, err := executeCommand(t, &stderr, dir, args...)
		require.Error(t, err, args)
		assert.Equal(t, ExitCodeError, getExitCode(err), args)
	}
}

func TestPoolersCommand(t *testing.T) {
	in := newIntranet(t)
	dir := newConfigDir(t, in, "")
	signIn(t, dir)

	var stderr bytes.Buffer
	out, err := executeCommand(t, &stderr, dir, "poolers", "-q", "-o", "yaml")
	require.NoError(t, err)

	var body struct {
		Poolers []map[string]interface{} `yaml:"poolers"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &body))
	require.Len(t, body.Poolers, 1)
	assert.Equal(t, "carol", body.Poolers[0]["login"])
}

func TestCommands_RequireSignIn(t *testing.T) {
	in := newIntranet(t)
	dir := newConfigDir(t, in, "")

	for _, args := range [][]string{{"students", "-q"}, {"me"}, {"auth", "whoami"}} {
		var stderr bytes.Buffer
		_, err := executeCommand(t, &stderr, dir, args...)
		require.Error(t, err, args)
		assert.Equal(t, ExitCodeAuthRequired, getExitCode(err), args)
		assert.Contains(t, err.Error(), "scoreboard auth login")
	}
}

func TestMeAndWhoami(t *testing.T) {
	in := newIntranet(t)
	dir := newConfigDir(t, in, "")
	signIn(t, dir)

	var stderr bytes.Buffer
	out, err := executeCommand(t, &stderr, dir, "me")
	require.NoError(t, err)
	assert.Contains(t, out, "Alice Liddell")
	assert.Contains(t, out, "Paris")

	out, err = executeCommand(t, &stderr, dir, "auth", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Login:     alice")
	assert.Contains(t, out, "Campus:    Paris")
}

func TestAuthStatusAndLogout(t *testing.T) {
	in := newIntranet(t)
	dir := newConfigDir(t, in, "")
	signIn(t, dir)

	var stderr bytes.Buffer
	out, err := executeCommand(t, &stderr, dir, "auth", "status", "--verify", "-o", "json")
	require.NoError(t, err)
	var st formatting.TokenStatus
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.True(t, st.Authenticated)
	require.NotNil(t, st.Token)
	assert.True(t, st.Token.Refreshable)
	assert.Equal(t, config.StorageFile, st.Storage)
	assert.Equal(t, "disabled", st.RefreshMode)
	require.NotNil(t, st.Me)
	assert.Equal(t, "alice", st.Me.Login)

	out, err = executeCommand(t, &stderr, dir, "auth", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")
	in.mu.Lock()
	assert.Equal(t, []string{"access-1"}, in.revoked)
	in.mu.Unlock()

	out, err = executeCommand(t, &stderr, dir, "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not authenticated")

	out, err = executeCommand(t, &stderr, dir, "auth", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in.")
}

func TestAuthRefresh_Disabled(t *testing.T) {
	in := newIntranet(t)
	dir := newConfigDir(t, in, "")
	signIn(t, dir)

	var stderr bytes.Buffer
	_, err := executeCommand(t, &stderr, dir, "auth", "refresh")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCOREBOARD_OAUTH_REFRESH")
}

func TestAuthLogin_RequiresClientID(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("storage:\n  backend: memory\n"), 0600))
	t.Setenv("SCOREBOARD_CLIENT_ID", "")

	var stderr bytes.Buffer
	_, err := executeCommand(t, &stderr, dir, "auth", "login", "--no-browser")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCOREBOARD_CLIENT_ID")
	assert.Equal(t, ExitCodeError, getExitCode(err))
}

func TestConfigCommands(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scoreboard")

	var stderr bytes.Buffer
	out, err := executeCommand(t, &stderr, dir, "config", "init", "--client-id", "client-abc", "--storage", "sqlite")
	require.NoError(t, err)
	assert.Contains(t, out, "config.yaml")

	_, err = executeCommand(t, &stderr, dir, "config", "init", "--client-id", "client-abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	t.Setenv("SCOREBOARD_CLIENT_SECRET", "s3cret")
	out, err = executeCommand(t, &stderr, dir, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "clientId: client-abc")
	assert.Contains(t, out, "backend: sqlite")
	assert.Contains(t, out, "clientSecret: <redacted>")
	assert.NotContains(t, out, "s3cret")
}

func TestConfigInit_RequiresClientID(t *testing.T) {
	var stderr bytes.Buffer
	_, err := executeCommand(t, &stderr, t.TempDir(), "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oauth.clientId")
}
