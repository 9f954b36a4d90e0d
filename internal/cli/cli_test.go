package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/crafto/internal/app"
)

// quoteServer fakes the remote service, including the upload endpoint.
type quoteServer struct {
	mu         sync.Mutex
	quotes     []map[string]interface{}
	authHeader string
	uploads    int
	rejectAll  bool
}

func (s *quoteServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	if s.rejectAll {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"Invalid token"}`)
		return
	}

	switch r.URL.Path {
	case "/login":
		_, _ = io.WriteString(w, `{"token":"tok1","username":"alice"}`)
	case "/getQuotes":
		s.authHeader = r.Header.Get("Authorization")
		if s.authHeader != "tok1" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"Invalid token"}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": s.quotes})
	case "/postQuote":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		q := map[string]interface{}{
			"id":        len(s.quotes) + 1,
			"username":  "alice",
			"text":      body["text"],
			"mediaUrl":  nil,
			"createdAt": "2024-10-05T10:00:00Z",
		}
		if body["mediaUrl"] != "" {
			q["mediaUrl"] = body["mediaUrl"]
		}
		s.quotes = append([]map[string]interface{}{q}, s.quotes...)
		_ = json.NewEncoder(w).Encode(q)
	case "/upload":
		s.uploads++
		_, _ = io.WriteString(w, `{"mediaUrl":"https://cdn.example.com/sunrise.png"}`)
	default:
		http.NotFound(w, r)
	}
}

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`api:
  base_url: %q
upload:
  endpoint: %q
session:
  backend: sql
  cli_key: test
database:
  driver: sqlite
  path: %q
`, baseURL, baseURL+"/upload", filepath.Join(dir, "crafto.db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestCLI_LoginListPost(t *testing.T) {
	api := &quoteServer{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	cfgPath := writeConfig(t, srv.URL)

	out, err := run(t, cfgPath, "whoami")
	require.NoError(t, err)
	assert.Equal(t, "Not logged in\n", out)

	_, err = run(t, cfgPath, "quotes")
	assert.ErrorContains(t, err, "crafto login")

	out, err = run(t, cfgPath, "login", "--username", "alice", "--otp", "123456")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as alice")

	out, err = run(t, cfgPath, "whoami")
	require.NoError(t, err)
	assert.Equal(t, "alice\n", out)

	out, err = run(t, cfgPath, "quotes")
	require.NoError(t, err)
	assert.Equal(t, "No quotes available.\n", out)
	assert.Equal(t, "tok1", api.authHeader)

	out, err = run(t, cfgPath, "post", "--text", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "Quote created successfully!")

	out, err = run(t, cfgPath, "quotes", "--search", "HELLO")
	require.NoError(t, err)
	assert.Contains(t, out, `"hello"`)
	assert.Contains(t, out, "- alice")

	out, err = run(t, cfgPath, "logout")
	require.NoError(t, err)
	assert.Equal(t, "Logged out\n", out)

	out, err = run(t, cfgPath, "whoami")
	require.NoError(t, err)
	assert.Equal(t, "Not logged in\n", out)
}

func TestCLI_PostWithImage(t *testing.T) {
	api := &quoteServer{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	cfgPath := writeConfig(t, srv.URL)

	imgPath := filepath.Join(t.TempDir(), "sunrise.png")
	f, err := os.Create(imgPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 10, 10))))
	require.NoError(t, f.Close())

	_, err = run(t, cfgPath, "login", "--username", "alice", "--otp", "123456")
	require.NoError(t, err)

	out, err := run(t, cfgPath, "post", "--text", "Sunrise", "--image", imgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "https://cdn.example.com/sunrise.png")
	assert.Equal(t, 1, api.uploads)

	_, err = run(t, cfgPath, "post", "--text", "Broken", "--image", filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorContains(t, err, "Could not open")
	assert.Equal(t, 1, api.uploads)
}

func TestCLI_InvalidTokenClearsLogin(t *testing.T) {
	api := &quoteServer{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	cfgPath := writeConfig(t, srv.URL)

	_, err := run(t, cfgPath, "login", "--username", "alice", "--otp", "123456")
	require.NoError(t, err)

	api.mu.Lock()
	api.rejectAll = true
	api.mu.Unlock()

	_, err = run(t, cfgPath, "quotes")
	assert.ErrorContains(t, err, "Invalid token. Log in again")

	out, err := run(t, cfgPath, "whoami")
	require.NoError(t, err)
	assert.Equal(t, "Not logged in\n", out)
}

func TestCLI_QuotesRejectsZeroPages(t *testing.T) {
	srv := httptest.NewServer(&quoteServer{})
	t.Cleanup(srv.Close)

	_, err := run(t, writeConfig(t, srv.URL), "quotes", "--pages", "0")
	assert.ErrorContains(t, err, "--pages must be at least 1")
}

func TestWithEnv_ClosesAppOnError(t *testing.T) {
	tests := []struct {
		name    string
		runErr  error
		wantErr bool
	}{
		{"success", nil, false},
		{"failure", errors.New("boom"), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := &app.App{}
			closed := 0
			a.OnClose(func() error {
				closed++
				return nil
			})

			cmd := &cobra.Command{}
			cmd.SetContext(context.WithValue(context.Background(), contextKey{}, &env{app: a}))
			run := withEnv(func(cmd *cobra.Command, args []string, e *env) error {
				return tc.runErr
			})

			err := run(cmd, nil)
			if tc.wantErr {
				assert.ErrorIs(t, err, tc.runErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, 1, closed)
		})
	}
}

func TestWithEnv_ReportsCloseError(t *testing.T) {
	a := &app.App{}
	a.OnClose(func() error { return errors.New("close failed") })

	cmd := &cobra.Command{}
	cmd.SetContext(context.WithValue(context.Background(), contextKey{}, &env{app: a}))
	err := withEnv(func(cmd *cobra.Command, args []string, e *env) error { return nil })(cmd, nil)
	assert.EqualError(t, err, "close failed")
}
