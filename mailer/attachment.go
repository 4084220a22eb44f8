package mailer

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// AddAttachment reads the file at path and appends it as an attachment.
//
// An empty filename defaults to the base name of path and an empty
// contentType is detected from the file content. If the file cannot be read
// nothing is appended and FileNotReadable is recorded, which makes any
// later Send fail without contacting the API.
func (m *Mailer) AddAttachment(path, filename, contentType string) *Mailer {
	data, err := readAttachment(path)
	if err != nil {
		m.logger().Warn("attachment not readable",
			"path", path,
			"error", err,
		)
		m.setError(FileNotReadable, fmt.Sprintf(`File "%s" is not readable`, path))
		return m
	}

	if filename == "" {
		filename = filepath.Base(path)
	}

	return m.appendAttachment(filename, contentType, data)
}

// AttachData appends an attachment from memory. Type detection follows the
// same rules as AddAttachment; an empty filename becomes "attachment".
func (m *Mailer) AttachData(filename, contentType string, data []byte) *Mailer {
	if filename == "" {
		filename = "attachment"
	}
	return m.appendAttachment(filename, contentType, data)
}

func (m *Mailer) appendAttachment(filename, contentType string, data []byte) *Mailer {
	if contentType == "" {
		contentType = detectContentType(data)
	}

	m.msg.Attachments = append(m.msg.Attachments, Attachment{
		Filename: filename,
		Type:     contentType,
		Data:     base64.StdEncoding.EncodeToString(data),
	})
	return m
}

// readAttachment returns the content of a regular, readable file.
func readAttachment(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, errors.New("path is a directory")
	}
	return os.ReadFile(path)
}

// detectContentType sniffs the media type of data without parameters.
// Unrecognized content yields the detector's root type,
// application/octet-stream.
func detectContentType(data []byte) string {
	mediaType, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	return strings.TrimSpace(mediaType)
}
