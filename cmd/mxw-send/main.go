// Package main is the entry point for the mxw-send command, which sends a
// single message through the MX Wizard API.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/mxwizard/sdk-go/internal/config"
	"github.com/mxwizard/sdk-go/internal/email"
	"github.com/mxwizard/sdk-go/internal/eml"
	"github.com/mxwizard/sdk-go/internal/logger"
	"github.com/mxwizard/sdk-go/internal/preview"
	"github.com/mxwizard/sdk-go/mailer"
)

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ", ")
}

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// options holds the parsed command line.
type options struct {
	configPath string
	envPath    string
	emlPath    string
	from       string
	fromName   string
	to         stringList
	cc         stringList
	bcc        stringList
	subject    string
	html       string
	htmlFile   string
	text       string
	textFile   string
	attach     stringList
	headers    stringList
	autoText   bool
	dryRun     bool
}

func parseFlags(fs *flag.FlagSet, args []string) (*options, error) {
	opts := &options{}

	fs.StringVar(&opts.configPath, "config", "", "path to YAML configuration file (optional)")
	fs.StringVar(&opts.envPath, "env", ".env", "path to a .env file loaded before configuration (optional)")
	fs.StringVar(&opts.emlPath, "eml", "", "import an RFC 5322 message file as the starting point")
	fs.StringVar(&opts.from, "from", "", "sender address, overrides configuration")
	fs.StringVar(&opts.fromName, "from-name", "", "sender display name")
	fs.Var(&opts.to, "to", `recipient, "addr" or "Name <addr>" (repeatable)`)
	fs.Var(&opts.cc, "cc", "carbon copy recipient (repeatable)")
	fs.Var(&opts.bcc, "bcc", "blind carbon copy recipient (repeatable)")
	fs.StringVar(&opts.subject, "subject", "", "message subject")
	fs.StringVar(&opts.html, "html", "", "HTML body")
	fs.StringVar(&opts.htmlFile, "html-file", "", "read the HTML body from a file")
	fs.StringVar(&opts.text, "text", "", "plain-text body")
	fs.StringVar(&opts.textFile, "text-file", "", "read the plain-text body from a file")
	fs.Var(&opts.attach, "attach", "file to attach (repeatable)")
	fs.Var(&opts.headers, "header", `custom header line, e.g. "X-Campaign: spring" (repeatable)`)
	fs.BoolVar(&opts.autoText, "auto-text", false, "derive the plain-text body from HTML when missing")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "print the message instead of sending it")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return opts, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mxw-send", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts, err := parseFlags(fs, args)
	if err != nil {
		return 2
	}

	if err := config.LoadEnvFile(opts.envPath); err != nil {
		fmt.Fprintf(stderr, "mxw-send: %v\n", err)
		return 1
	}

	// Load configuration
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "mxw-send: failed to load configuration: %v\n", err)
		return 1
	}

	// Setup structured logging
	log := logger.New(stderr, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()
	ctx = logger.WithAttrs(ctx, slog.String("run_id", uuid.NewString()))

	draft, err := buildDraft(cfg, opts)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build message", "error", err)
		return 1
	}

	if !opts.dryRun && !cfg.CredentialsConfigured() {
		slog.ErrorContext(ctx, "MXW_TOKEN_ID and MXW_TOKEN are required to send")
		return 1
	}

	m := mailer.New(cfg.API.TokenID, cfg.API.Token)
	m.URL = cfg.API.URL
	m.Timeout = cfg.API.Timeout
	m.Logger = log
	draft.Apply(m)

	if opts.dryRun {
		if err := preview.Write(stdout, m.Message()); err != nil {
			slog.ErrorContext(ctx, "failed to write preview", "error", err)
			return 1
		}
		if err := m.Err(); err != nil {
			slog.ErrorContext(ctx, "message would not be sent", "error", err)
			return 1
		}
		return 0
	}

	slog.InfoContext(ctx, "sending message",
		"url", m.URL,
		"to", len(draft.To),
		"cc", len(draft.Cc),
		"bcc", len(draft.Bcc),
		"attachments", len(draft.Attachments),
	)

	if !m.SendContext(ctx) {
		slog.ErrorContext(ctx, "message not sent",
			"error_code", m.ErrorCode(),
			"error", m.ErrorMessage(),
		)
		return 1
	}

	slog.InfoContext(ctx, "message sent")
	return 0
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// buildDraft merges the .eml import, configuration defaults and flags.
// Flags override single values and append to lists.
func buildDraft(cfg *config.Config, opts *options) (*email.Email, error) {
	draft := &email.Email{}

	if opts.emlPath != "" {
		f, err := os.Open(opts.emlPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open message file: %w", err)
		}
		defer f.Close()

		draft, err = eml.Parse(f)
		if err != nil {
			return nil, err
		}
	}

	if draft.From.Address == "" && cfg.Sender.Address != "" {
		draft.From = email.Address{Address: cfg.Sender.Address, Name: cfg.Sender.Name}
	}
	if opts.from != "" {
		draft.From = email.Address{Address: opts.from, Name: opts.fromName}
	} else if opts.fromName != "" {
		draft.From.Name = opts.fromName
	}

	for _, a := range opts.to {
		draft.To = append(draft.To, email.ParseAddress(a))
	}
	for _, a := range opts.cc {
		draft.Cc = append(draft.Cc, email.ParseAddress(a))
	}
	for _, a := range opts.bcc {
		draft.Bcc = append(draft.Bcc, email.ParseAddress(a))
	}

	if opts.subject != "" {
		draft.Subject = opts.subject
	}

	html, err := flagOrFile(opts.html, opts.htmlFile)
	if err != nil {
		return nil, err
	}
	if html != "" {
		draft.HTMLBody = html
	}

	text, err := flagOrFile(opts.text, opts.textFile)
	if err != nil {
		return nil, err
	}
	if text != "" {
		draft.TextBody = text
	}

	if opts.autoText {
		if err := draft.DeriveText(); err != nil {
			return nil, err
		}
	}

	for _, path := range opts.attach {
		draft.Attachments = append(draft.Attachments, email.Attachment{Path: path})
	}

	headers := append([]string{}, cfg.Sender.Headers...)
	headers = append(headers, draft.Headers...)
	draft.Headers = append(headers, opts.headers...)

	return draft, nil
}

// flagOrFile returns value, or the content of path when path is set.
func flagOrFile(value, path string) (string, error) {
	if path == "" {
		return value, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read body file: %w", err)
	}
	return string(data), nil
}
