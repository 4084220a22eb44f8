package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mxwizard/sdk-go/internal/config"
)

func setCredentials(t *testing.T, url string) {
	t.Helper()
	t.Setenv("MXW_API_URL", url)
	t.Setenv("MXW_TOKEN_ID", "5")
	t.Setenv("MXW_TOKEN", "cli-token")
	t.Setenv("MXW_TIMEOUT", "")
	t.Setenv("MXW_FROM", "")
	t.Setenv("MXW_FROM_NAME", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "")
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "none.env")
}

func TestRun_SendsMessage(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("mxw-token-id") != "5" {
			t.Errorf("mxw-token-id: got %q, want %q", r.Header.Get("mxw-token-id"), "5")
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("invalid JSON body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	setCredentials(t, server.URL)

	var stdout, stderr bytes.Buffer
	code := run([]string{
		"-env", noEnvFile(t),
		"-from", "sender@example.com",
		"-to", "Alice <alice@example.com>",
		"-to", "bob@example.com",
		"-subject", "  CLI test ",
		"-html", "<p>Hello</p>",
		"-auto-text",
		"-header", "X-Source: cli",
	}, &stdout, &stderr)

	require.Equal(t, 0, code, "stderr: %s", stderr.String())
	assert.Equal(t, "CLI test", got["subject"])
	assert.Equal(t, "<p>Hello</p>", got["html"])
	assert.Equal(t, "Hello", got["text"])
	assert.Equal(t, []any{
		map[string]any{"address": "alice@example.com", "name": "Alice"},
		map[string]any{"address": "bob@example.com"},
	}, got["to"])
	assert.Equal(t, []any{"X-Source: cli"}, got["headers"])
}

func TestRun_APIErrorExitsNonZero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"code": 7, "message": "bad token"}`)
	}))
	defer server.Close()
	setCredentials(t, server.URL)

	var stdout, stderr bytes.Buffer
	code := run([]string{"-env", noEnvFile(t), "-to", "a@example.com"}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "bad token")
}

func TestRun_MissingCredentials(t *testing.T) {
	setCredentials(t, "http://127.0.0.1:1")
	t.Setenv("MXW_TOKEN_ID", "")
	t.Setenv("MXW_TOKEN", "")

	var stdout, stderr bytes.Buffer
	code := run([]string{"-env", noEnvFile(t), "-to", "a@example.com"}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "MXW_TOKEN_ID and MXW_TOKEN are required")
}

func TestRun_DryRun(t *testing.T) {
	setCredentials(t, "http://127.0.0.1:1")

	dir := t.TempDir()
	attachment := filepath.Join(dir, "report.txt")
	require.NoError(t, os.WriteFile(attachment, []byte("numbers"), 0o600))

	var stdout, stderr bytes.Buffer
	code := run([]string{
		"-env", noEnvFile(t),
		"-dry-run",
		"-from", "sender@example.com",
		"-to", "alice@example.com",
		"-subject", "Preview",
		"-text", "body",
		"-attach", attachment,
	}, &stdout, &stderr)

	require.Equal(t, 0, code, "stderr: %s", stderr.String())
	out := stdout.String()
	assert.Contains(t, out, "Subject: Preview\n")
	assert.Contains(t, out, "Attachments: report.txt (text/plain, 7B)\n")
}

func TestRun_DryRunReportsUnreadableAttachment(t *testing.T) {
	setCredentials(t, "http://127.0.0.1:1")

	var stdout, stderr bytes.Buffer
	code := run([]string{
		"-env", noEnvFile(t),
		"-dry-run",
		"-to", "alice@example.com",
		"-attach", filepath.Join(t.TempDir(), "missing.pdf"),
	}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "is not readable")
}

func TestRun_BadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run([]string{"-no-such-flag"}, &stdout, &stderr))
}

func TestBuildDraft_MergesEMLConfigAndFlags(t *testing.T) {
	t.Parallel()

	emlPath := filepath.Join(t.TempDir(), "message.eml")
	raw := "From: Original <original@example.com>\r\n" +
		"To: first@example.com\r\n" +
		"Subject: From file\r\n" +
		"X-Origin: eml\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"file body"
	require.NoError(t, os.WriteFile(emlPath, []byte(raw), 0o600))

	cfg := &config.Config{Sender: config.SenderConfig{
		Address: "config@example.com",
		Headers: []string{"X-Mailer: mxw-send"},
	}}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	opts, err := parseFlags(fs, []string{
		"-eml", emlPath,
		"-to", "second@example.com",
		"-from-name", "Renamed",
		"-header", "X-Extra: 1",
	})
	require.NoError(t, err)

	draft, err := buildDraft(cfg, opts)
	require.NoError(t, err)

	assert.Equal(t, "original@example.com", draft.From.Address)
	assert.Equal(t, "Renamed", draft.From.Name)
	require.Len(t, draft.To, 2)
	assert.Equal(t, "first@example.com", draft.To[0].Address)
	assert.Equal(t, "second@example.com", draft.To[1].Address)
	assert.Equal(t, "From file", draft.Subject)
	assert.Equal(t, "file body", draft.TextBody)
	assert.Equal(t, []string{"X-Mailer: mxw-send", "X-Origin: eml", "X-Extra: 1"}, draft.Headers)
}

func TestBuildDraft_ConfigSenderAndBodyFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	htmlPath := filepath.Join(dir, "body.html")
	require.NoError(t, os.WriteFile(htmlPath, []byte("<b>file html</b>"), 0o600))

	cfg := &config.Config{Sender: config.SenderConfig{Address: "config@example.com", Name: "Config"}}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	opts, err := parseFlags(fs, []string{"-html-file", htmlPath, "-html", "ignored"})
	require.NoError(t, err)

	draft, err := buildDraft(cfg, opts)
	require.NoError(t, err)

	assert.Equal(t, "config@example.com", draft.From.Address)
	assert.Equal(t, "Config", draft.From.Name)
	assert.Equal(t, "<b>file html</b>", draft.HTMLBody)
	assert.Empty(t, draft.TextBody)
}

func TestBuildDraft_MissingBodyFile(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	opts, err := parseFlags(fs, []string{"-text-file", filepath.Join(t.TempDir(), "nope.txt")})
	require.NoError(t, err)

	_, err = buildDraft(&config.Config{}, opts)
	assert.Error(t, err)
}
