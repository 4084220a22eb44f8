// Package mailer is a client for the MX Wizard mail sending API.
//
// A Mailer accumulates a single message through chained calls and delivers
// it with one authenticated POST request:
//
//	m := mailer.New(tokenID, token).
//		SetFrom("noreply@example.com", "Example").
//		AddTo("alice@example.com", "Alice").
//		SetSubject("Hello").
//		SetText("Hi Alice")
//	if !m.Send() {
//		log.Printf("send failed: %d %s", m.ErrorCode(), m.ErrorMessage())
//	}
//
// Failures never panic and are not returned from the builder methods.
// They are recorded on the Mailer and stay there until overwritten by a
// later failure, so a failed attachment prevents any subsequent Send.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultURL is the MX Wizard send endpoint.
	DefaultURL = "https://mxwizard.net/api/v1/mailer/send"

	// DefaultTimeout bounds a single Send call.
	DefaultTimeout = 20 * time.Second
)

// Authentication header names. They are sent exactly as written here.
const (
	HeaderTokenID = "mxw-token-id"
	HeaderToken   = "mxw-token"
)

// Mailer builds a message and sends it to the MX Wizard API.
// A Mailer is not safe for concurrent use.
type Mailer struct {
	// URL is the endpoint the message is posted to.
	URL string

	// Timeout limits the whole request, including reading the response.
	// Zero means no limit beyond the context passed to SendContext.
	Timeout time.Duration

	// HTTPClient performs the request. Nil means a client with no overall
	// timeout. Redirects are never followed; a 3xx answer is a failed send.
	HTTPClient *http.Client

	// Logger receives debug and warning records. Nil means slog.Default().
	Logger *slog.Logger

	tokenID int
	token   string

	msg Message

	errorCode    int
	errorMessage string
}

// New creates a Mailer authenticating with the given token pair.
func New(tokenID int, token string) *Mailer {
	return &Mailer{
		URL:     DefaultURL,
		Timeout: DefaultTimeout,
		tokenID: tokenID,
		token:   token,
		msg:     newMessage(),
	}
}

// SetFrom replaces the sender. An empty name is left out of the request.
func (m *Mailer) SetFrom(address, name string) *Mailer {
	m.msg.From = newRecipient(address, name)
	return m
}

// AddTo appends a "To" recipient.
func (m *Mailer) AddTo(address, name string) *Mailer {
	m.msg.To = append(m.msg.To, newRecipient(address, name))
	return m
}

// AddCc appends a "Cc" recipient.
func (m *Mailer) AddCc(address, name string) *Mailer {
	m.msg.Cc = append(m.msg.Cc, newRecipient(address, name))
	return m
}

// AddBcc appends a "Bcc" recipient.
func (m *Mailer) AddBcc(address, name string) *Mailer {
	m.msg.Bcc = append(m.msg.Bcc, newRecipient(address, name))
	return m
}

// SetSubject sets the subject, trimmed of surrounding whitespace.
func (m *Mailer) SetSubject(subject string) *Mailer {
	m.msg.Subject = strings.TrimSpace(subject)
	return m
}

// SetHTML sets the HTML body verbatim.
func (m *Mailer) SetHTML(html string) *Mailer {
	m.msg.HTML = &html
	return m
}

// SetText sets the plain-text body verbatim.
func (m *Mailer) SetText(text string) *Mailer {
	m.msg.Text = &text
	return m
}

// AddCustomHeader appends a raw header line such as "X-Campaign: spring".
// The line is not parsed or validated.
func (m *Mailer) AddCustomHeader(header string) *Mailer {
	m.msg.Headers = append(m.msg.Headers, header)
	return m
}

// Message returns a copy of the request body accumulated so far.
func (m *Mailer) Message() Message {
	return m.msg.clone()
}

// ErrorCode returns the code of the most recent failure, or 0.
func (m *Mailer) ErrorCode() int {
	return m.errorCode
}

// ErrorMessage returns the message of the most recent failure, or "".
func (m *Mailer) ErrorMessage() string {
	return m.errorMessage
}

// Err returns the most recent failure as an *Error, or nil if none is set.
func (m *Mailer) Err() error {
	if m.errorCode == 0 {
		return nil
	}
	return &Error{Code: m.errorCode, Message: m.errorMessage}
}

// Send posts the message and reports whether the API answered 200 OK.
func (m *Mailer) Send() bool {
	return m.SendContext(context.Background())
}

// SendContext is Send with a caller supplied context. Timeout still applies.
//
// If an earlier failure is recorded, no request is made and false is
// returned with the recorded error left untouched. Otherwise a non-200
// answer records the code and message from the response body, falling back
// to UnknownError and "Unknown error".
func (m *Mailer) SendContext(ctx context.Context) bool {
	if m.errorCode != 0 {
		m.logger().DebugContext(ctx, "send skipped, error already recorded",
			"error_code", m.errorCode,
			"error", m.errorMessage,
		)
		return false
	}

	status, body, err := m.doSendRequest(ctx)
	if err != nil {
		m.logger().WarnContext(ctx, "MX Wizard request failed",
			"url", m.URL,
			"error", err,
		)
		m.setError(UnknownError, err.Error())
		return false
	}

	if status != http.StatusOK {
		code, message := parseErrorResponse(body)
		m.logger().WarnContext(ctx, "MX Wizard rejected message",
			"status", status,
			"error_code", code,
			"error", message,
		)
		m.setError(code, message)
		return false
	}

	m.logger().DebugContext(ctx, "message accepted by MX Wizard",
		"to", len(m.msg.To),
		"cc", len(m.msg.Cc),
		"bcc", len(m.msg.Bcc),
		"attachments", len(m.msg.Attachments),
	)
	return true
}

// doSendRequest performs the single POST and returns the status and body.
// err is only set when no HTTP response was received.
func (m *Mailer) doSendRequest(ctx context.Context) (int, []byte, error) {
	bodyJSON, err := json.Marshal(m.msg)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	if m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.URL, bytes.NewReader(bodyJSON))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	// Assigned directly to keep the lowercase names.
	req.Header[HeaderTokenID] = []string{strconv.Itoa(m.tokenID)}
	req.Header[HeaderToken] = []string{m.token}

	m.logger().DebugContext(ctx, "sending message to MX Wizard",
		"url", m.URL,
		"bytes", len(bodyJSON),
	)

	resp, err := m.httpClient().Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	// A body that cannot be read is handled like an empty one.
	body, _ := io.ReadAll(resp.Body)

	return resp.StatusCode, body, nil
}

// parseErrorResponse extracts the code and message from an error body.
// Each field falls back on its own when missing or of the wrong type.
func parseErrorResponse(body []byte) (int, string) {
	code, message := UnknownError, unknownErrorMessage

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return code, message
	}

	var c *int
	if len(errResp.Code) > 0 && json.Unmarshal(errResp.Code, &c) == nil && c != nil {
		code = *c
	}

	var s *string
	if len(errResp.Message) > 0 && json.Unmarshal(errResp.Message, &s) == nil && s != nil {
		message = *s
	}

	return code, message
}

func (m *Mailer) setError(code int, message string) {
	m.errorCode = code
	m.errorMessage = message
}

// httpClient returns a shallow copy of the configured client that reports
// redirects instead of following them.
func (m *Mailer) httpClient() *http.Client {
	client := http.Client{}
	if m.HTTPClient != nil {
		client = *m.HTTPClient
	}
	client.CheckRedirect = noRedirect
	return &client
}

func noRedirect(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

func (m *Mailer) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}
