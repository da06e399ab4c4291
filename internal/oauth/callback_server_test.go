package oauth

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeRedirectURI(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return fmt.Sprintf("http://127.0.0.1:%d/oauth/callback", port)
}

func TestNewCallbackServer_Validation(t *testing.T) {
	tests := []struct {
		name    string
		uri     string
		wantErr bool
	}{
		{"localhost", "http://localhost:3000/oauth/callback", false},
		{"ipv4 loopback", "http://127.0.0.1:8080/cb", false},
		{"https rejected", "https://localhost:3000/cb", true},
		{"remote host rejected", "http://scoreboard.example.com/cb", true},
		{"garbage", "://", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCallbackServer(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCallbackServer_DeliversParamsAndRendersResult(t *testing.T) {
	redirectURI := freeRedirectURI(t)
	srv, err := NewCallbackServer(redirectURI)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, srv.Start(ctx))
	defer srv.Stop()

	type response struct {
		status int
		body   string
		err    error
	}
	respCh := make(chan response, 1)
	go func() {
		resp, err := http.Get(redirectURI + "?code=abc&state=xyz")
		if err != nil {
			respCh <- response{err: err}
			return
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		respCh <- response{status: resp.StatusCode, body: string(body)}
	}()

	params, err := srv.WaitForCallback(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", params.Code)
	assert.Equal(t, "xyz", params.State)

	srv.Complete(Result{Success: true, RedirectTo: "/"})

	resp := <-respCh
	require.NoError(t, resp.err)
	assert.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, resp.body, "Signed in")
}

func TestCallbackServer_RendersError(t *testing.T) {
	redirectURI := freeRedirectURI(t)
	srv, err := NewCallbackServer(redirectURI)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, srv.Start(ctx))
	defer srv.Stop()

	done := make(chan *http.Response, 1)
	go func() {
		resp, err := http.Get(redirectURI + "?error=access_denied")
		if err == nil {
			done <- resp
		}
		close(done)
	}()

	params, err := srv.WaitForCallback(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access_denied", params.Error)
	srv.Complete(Result{Err: &AuthorizationDeniedError{Code: params.Error}})

	resp, ok := <-done
	require.True(t, ok)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "access_denied")
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
}

func TestLoginWithCallbackServer(t *testing.T) {
	p := newFakeProvider(t)
	cfg := testFlowConfig(p)
	cfg.RedirectURI = freeRedirectURI(t)

	// The navigator plays the browser: it follows the authorize URL
	// straight to the callback with the state it was given.
	browser := NavigatorFunc(func(_ context.Context, authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		state := u.Query().Get("state")
		go func() {
			resp, err := http.Get(cfg.RedirectURI + "?code=abc&state=" + url.QueryEscape(state))
			if err == nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}
		}()
		return nil
	})

	flow := NewFlow(cfg, NewTokenStore(nil), WithNavigator(browser))
	srv, err := NewCallbackServer(cfg.RedirectURI)
	require.NoError(t, err)

	var shown string
	res := flow.LoginWithCallbackServer(context.Background(), srv, 10*time.Second, func(u string) { shown = u })
	require.NoError(t, res.Err)
	assert.True(t, res.Success)
	assert.NotEmpty(t, shown)
	assert.True(t, flow.IsAuthenticated(context.Background()))
}

func TestLoginWithCallbackServer_Timeout(t *testing.T) {
	p := newFakeProvider(t)
	cfg := testFlowConfig(p)
	cfg.RedirectURI = freeRedirectURI(t)

	flow := NewFlow(cfg, NewTokenStore(nil))
	srv, err := NewCallbackServer(cfg.RedirectURI)
	require.NoError(t, err)

	res := flow.LoginWithCallbackServer(context.Background(), srv, 50*time.Millisecond, nil)
	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Equal(t, 0, p.calls())
}
