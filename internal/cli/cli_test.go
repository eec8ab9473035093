package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/kindledrop/internal/submission"
)

// engineServer is a stand-in engine that answers every send with body.
func engineServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32, *submission.Request) {
	t.Helper()
	var calls atomic.Int32
	var got submission.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, submission.EndpointPath, r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls, &got
}

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func testEnv() (Env, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return Env{
		Stdout:  &out,
		Stderr:  &errOut,
		Secrets: submission.StaticSecret("hunter2"),
	}, &out, &errOut
}

const smtpFile = `{
  "kindleEmail": "reader@kindle.com",
  "smtp": {"host": "smtp.example.com", "user": "bot", "from": "bot@example.com"}
}`

func TestRun_SendEndToEnd(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		status     int
		body       string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{
			name:       "sent",
			status:     http.StatusOK,
			body:       `{"ok":true,"resolvedUrl":"https://raw.githubusercontent.com/x/y/main/f.txt","fileName":"f.txt","bytes":2048,"message":"sent"}`,
			wantCode:   ExitOK,
			wantStdout: "✔ Sent ✅  f.txt (2 KB)\nResolved: https://raw.githubusercontent.com/x/y/main/f.txt\n",
		},
		{
			name:       "engine rejects",
			status:     http.StatusOK,
			body:       `{"ok":false,"message":"mailbox rejected"}`,
			wantCode:   ExitFailure,
			wantStderr: "✖ mailbox rejected\n",
		},
		{
			name:       "engine http error",
			status:     http.StatusBadGateway,
			body:       `{"ok":false,"message":"SMTP failed: auth"}`,
			wantCode:   ExitFailure,
			wantStderr: "✖ SMTP failed: auth\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			engine, calls, got := engineServer(t, tc.status, tc.body)
			path := writeConfig(t, smtpFile)
			env, out, errOut := testEnv()

			err := Run(context.Background(), env, []string{
				"send", "https://github.com/x/y/blob/main/f.txt",
				"--config", path, "--engine", engine.URL,
			})

			assert.Equal(t, tc.wantCode, ExitCode(err))
			assert.Equal(t, tc.wantStdout, out.String())
			assert.Equal(t, tc.wantStderr, errOut.String())
			assert.Equal(t, int32(1), calls.Load())
			assert.Equal(t, "reader@kindle.com", got.KindleEmail)
			require.NotNil(t, got.SMTP)
			assert.Equal(t, 587, got.SMTP.Port)
			assert.Equal(t, "hunter2", got.SMTP.Password)
			require.NotNil(t, got.Limits)
			assert.Equal(t, int64(31457280), got.Limits.MaxBytes)

			var exitErr *ExitError
			if err != nil {
				require.True(t, errors.As(err, &exitErr))
				assert.Empty(t, exitErr.Message, "failure was already rendered")
			}
		})
	}
}

func TestRun_MissingConfigFileUsesDefaults(t *testing.T) {
	t.Parallel()

	engine, calls, got := engineServer(t, http.StatusOK, `{"ok":true,"resolvedUrl":"https://example.com/a.pdf","fileName":"a.pdf"}`)
	env, out, _ := testEnv()

	err := Run(context.Background(), env, []string{
		"send", "https://example.com/a.pdf",
		"--config", filepath.Join(t.TempDir(), "absent.json"),
		"--engine", engine.URL,
		"--to", "reader@kindle.com",
		"--dry-run",
	})

	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, got.DryRun)
	assert.Nil(t, got.SMTP)
	assert.Contains(t, out.String(), "✔ Dry run OK.")
}

func TestRun_UsageErrors(t *testing.T) {
	t.Parallel()

	absent := filepath.Join(t.TempDir(), "absent.json")

	testCases := []struct {
		name       string
		args       []string
		wantStderr string
		wantMsg    string
	}{
		{name: "no url", args: []string{"send"}, wantMsg: "send expects exactly one document URL, got 0"},
		{name: "two urls", args: []string{"send", "a", "b"}, wantMsg: "send expects exactly one document URL, got 2"},
		{name: "unknown flag", args: []string{"send", "u", "--bogus"}, wantMsg: "unknown flag: --bogus"},
		{name: "unknown command", args: []string{"mail", "u"}, wantMsg: `unknown command "mail" for "stk"`},
		{name: "bad log level", args: []string{"send", "u", "--log-level", "loud"}, wantMsg: `invalid log level "loud"`},
		{name: "missing address", args: []string{"send", "u", "--config", absent}, wantStderr: msgMissingAddress + "\n"},
		{name: "missing smtp", args: []string{"send", "u", "--config", absent, "--to", "a@kindle.com"}, wantStderr: msgMissingSMTP + "\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			env, out, errOut := testEnv()
			env.NewSender = func(string) submission.Sender {
				t.Fatal("usage errors must not reach the engine")
				return nil
			}

			err := Run(context.Background(), env, tc.args)

			assert.Equal(t, ExitUsage, ExitCode(err))
			assert.Empty(t, out.String())
			var exitErr *ExitError
			require.True(t, errors.As(err, &exitErr))
			if tc.wantMsg != "" {
				assert.Contains(t, exitErr.Message, tc.wantMsg)
			}
			if tc.wantStderr != "" {
				assert.Equal(t, tc.wantStderr, errOut.String())
			}
		})
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `{"kindleEmail": "not-an-email"}`)
	env, _, errOut := testEnv()

	err := Run(context.Background(), env, []string{"send", "u", "--config", path})

	assert.Equal(t, ExitUsage, ExitCode(err))
	assert.Contains(t, errOut.String(), "invalid config "+path)
}

func TestRun_ServeStopsWithContext(t *testing.T) {
	t.Parallel()

	env, _, _ := testEnv()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Run(ctx, env, []string{
		"serve", "--addr", "127.0.0.1:0",
		"--config", filepath.Join(t.TempDir(), "absent.json"),
	})

	require.NoError(t, err)
}

func TestRun_ServeInvalidConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `{"engineUrl": "ftp://nope"}`)
	env, _, _ := testEnv()

	err := Run(context.Background(), env, []string{"serve", "--addr", "127.0.0.1:0", "--config", path})

	assert.Equal(t, ExitUsage, ExitCode(err))
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Contains(t, exitErr.Message, "invalid config "+path)
}

func TestRun_Version(t *testing.T) {
	t.Parallel()

	env, out, _ := testEnv()

	err := Run(context.Background(), env, []string{"--version"})

	require.NoError(t, err)
	assert.Equal(t, "stk version "+Version+"\n", out.String())
}
