// Package eml imports RFC 5322 messages (.eml files) into an email draft.
package eml

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/mxwizard/sdk-go/internal/email"
)

// passThroughHeaders are copied to the draft as custom header lines in
// addition to every X- header. Other headers are rebuilt by the API.
var passThroughHeaders = map[string]bool{
	"Reply-To":         true,
	"Message-Id":       true,
	"In-Reply-To":      true,
	"References":       true,
	"List-Unsubscribe": true,
}

// Parse reads a raw message and returns it as a draft. The first text/plain
// and text/html parts become the bodies; every other part carrying content
// becomes an attachment. Unknown charsets are logged and the raw bytes kept.
func Parse(r io.Reader) (*email.Email, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !isRecoverable(err) {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if err != nil {
		slog.Warn("message uses an unknown charset or encoding", "error", err)
	}
	defer mr.Close()

	result := &email.Email{
		To:  parseAddressList(mr.Header, "To"),
		Cc:  parseAddressList(mr.Header, "Cc"),
		Bcc: parseAddressList(mr.Header, "Bcc"),
	}
	if from := parseAddressList(mr.Header, "From"); len(from) > 0 {
		result.From = from[0]
	}

	result.Subject, err = mr.Header.Subject()
	if err != nil {
		slog.Warn("failed to decode subject, using raw value", "error", err)
		result.Subject = mr.Header.Get("Subject")
	}

	result.Headers = passThrough(mr.Header)

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if part == nil || !isRecoverable(err) {
				return nil, fmt.Errorf("failed to read message part: %w", err)
			}
			slog.Warn("message part uses an unknown charset or encoding", "error", err)
		}

		content, err := io.ReadAll(part.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read part content: %w", err)
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			addInlinePart(result, &h.Header, content)
		case *mail.AttachmentHeader:
			mediaType, params, _ := h.ContentType()
			filename, err := h.Filename()
			if err != nil || filename == "" {
				filename = fallbackFilename(mediaType, params)
			}
			result.Attachments = append(result.Attachments, email.Attachment{
				Filename:    filename,
				ContentType: mediaType,
				Content:     content,
			})
		}
	}

	return result, nil
}

// addInlinePart stores inline text as a body. Inline parts that are not
// text, such as embedded images, are kept as attachments.
func addInlinePart(result *email.Email, h *message.Header, content []byte) {
	mediaType, params, err := h.ContentType()
	if err != nil || mediaType == "" {
		mediaType = "text/plain"
	}

	switch mediaType {
	case "text/plain":
		if result.TextBody == "" {
			result.TextBody = string(content)
			return
		}
	case "text/html":
		if result.HTMLBody == "" {
			result.HTMLBody = string(content)
			return
		}
	}

	if strings.HasPrefix(mediaType, "text/") && len(strings.TrimSpace(string(content))) == 0 {
		return
	}

	_, dispParams, _ := h.ContentDisposition()
	filename := dispParams["filename"]
	if filename == "" {
		filename = fallbackFilename(mediaType, params)
	}

	slog.Debug("keeping inline part as attachment",
		"content_type", mediaType,
		"filename", filename,
	)
	result.Attachments = append(result.Attachments, email.Attachment{
		Filename:    filename,
		ContentType: mediaType,
		Content:     content,
	})
}

// fallbackFilename prefers the Content-Type name parameter and otherwise
// derives "attachment.<subtype>" from the media type.
func fallbackFilename(mediaType string, params map[string]string) string {
	if name := params["name"]; name != "" {
		return name
	}
	if _, subtype, ok := strings.Cut(mediaType, "/"); ok && subtype != "" {
		return "attachment." + subtype
	}
	return "attachment"
}

// parseAddressList returns the addresses of a header field, keeping names.
func parseAddressList(h mail.Header, key string) []email.Address {
	list, err := h.AddressList(key)
	if err != nil {
		slog.Warn("failed to parse address list, splitting on commas",
			"header", key,
			"error", err,
		)
		return splitAddressList(h.Get(key))
	}

	result := make([]email.Address, 0, len(list))
	for _, addr := range list {
		result = append(result, email.Address{
			Address: addr.Address,
			Name:    addr.Name,
		})
	}
	return result
}

// splitAddressList is the fallback for header values net/mail rejects.
func splitAddressList(raw string) []email.Address {
	parts := strings.Split(raw, ",")
	result := make([]email.Address, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, email.ParseAddress(trimmed))
		}
	}
	return result
}

// passThrough collects the header lines forwarded to the API verbatim.
func passThrough(h mail.Header) []string {
	var lines []string
	fields := h.Fields()
	for fields.Next() {
		key := fields.Key()
		if !passThroughHeaders[key] && !strings.HasPrefix(key, "X-") {
			continue
		}
		lines = append(lines, key+": "+fields.Value())
	}
	return lines
}

func isRecoverable(err error) bool {
	return message.IsUnknownCharset(err) || message.IsUnknownEncoding(err)
}
