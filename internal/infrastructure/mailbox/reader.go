package mailbox

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dailybrief/internal/domain"
	"dailybrief/internal/ports"
	"dailybrief/pkg/htmltext"
)

// Reader loads one newsletter issue per source and day from a local mail
// drop directory. A delivery agent files messages as
// <root>/<source>/<YYYY-MM-DD>.eml; plain .html and .txt drops are
// accepted as fallbacks for sources without real mail delivery.
type Reader struct {
	root string
}

var _ ports.MessageSource = (*Reader)(nil)

// NewReader builds a reader over the given drop directory.
func NewReader(root string) *Reader {
	return &Reader{root: root}
}

// Fetch returns the issue for the requested day, preferring the richest
// format available. A day without a file is domain.ErrSourceNotFound.
func (r *Reader) Fetch(ctx context.Context, source domain.Source, date time.Time) (domain.RawDocument, error) {
	day := date.Format("2006-01-02")
	dir := filepath.Join(r.root, source.Name)

	for _, ext := range []string{".eml", ".html", ".txt"} {
		path := filepath.Join(dir, day+ext)
		raw, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return domain.RawDocument{}, fmt.Errorf("read %s: %w", path, err)
		}
		return r.document(source, date, ext, raw)
	}

	return domain.RawDocument{}, fmt.Errorf("%s has no issue for %s: %w", source.Name, day, domain.ErrSourceNotFound)
}

func (r *Reader) document(source domain.Source, date time.Time, ext string, raw []byte) (domain.RawDocument, error) {
	doc := domain.RawDocument{
		Source:      source,
		Date:        date,
		Subject:     source.DisplayName,
		RetrievedAt: time.Now(),
	}

	switch ext {
	case ".eml":
		subject, body, err := parseMessage(raw)
		if err != nil {
			return domain.RawDocument{}, err
		}
		if subject != "" {
			doc.Subject = subject
		}
		doc.Body = body
	case ".html":
		body, err := htmltext.Convert(string(raw))
		if err != nil {
			return domain.RawDocument{}, err
		}
		doc.Body = body
	default:
		doc.Body = string(raw)
	}

	return doc, nil
}

// parseMessage extracts the subject and readable body of an RFC 5322
// message. The plain rendition wins when present; HTML-only messages are
// converted to text.
func parseMessage(raw []byte) (subject, body string, err error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return "", "", fmt.Errorf("parse message: %w", err)
	}

	subject = decodeWord(msg.Header.Get("Subject"))
	html, plain, err := readParts(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if err != nil {
		return "", "", err
	}

	if text := strings.TrimSpace(plain); text != "" {
		return subject, text, nil
	}
	if html != "" {
		if text, cErr := htmltext.Convert(html); cErr == nil && text != "" {
			return subject, text, nil
		}
	}
	return subject, "", nil
}

// readParts walks a message body, descending into multipart containers.
// The first HTML and first plain part found are kept; a part that cannot
// be read is skipped rather than failing the whole message.
func readParts(contentType, encoding string, body io.Reader) (html, plain string, err error) {
	mediaType := "text/plain"
	var params map[string]string
	if contentType != "" {
		mediaType, params, err = mime.ParseMediaType(contentType)
		if err != nil {
			return "", "", fmt.Errorf("parse content type: %w", err)
		}
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		reader := multipart.NewReader(body, params["boundary"])
		for {
			part, pErr := reader.NextPart()
			if errors.Is(pErr, io.EOF) {
				break
			}
			if pErr != nil {
				return html, plain, fmt.Errorf("read part: %w", pErr)
			}
			partHTML, partPlain, pErr := readParts(part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), part)
			if pErr != nil {
				continue
			}
			if html == "" {
				html = partHTML
			}
			if plain == "" {
				plain = partPlain
			}
		}
		return html, plain, nil
	}

	data, err := io.ReadAll(decodeTransfer(body, encoding))
	if err != nil {
		return "", "", fmt.Errorf("read body: %w", err)
	}
	if strings.HasPrefix(mediaType, "text/html") {
		return string(data), "", nil
	}
	return "", string(data), nil
}

func decodeTransfer(r io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

func decodeWord(s string) string {
	decoded, err := new(mime.WordDecoder).DecodeHeader(s)
	if err != nil {
		return s
	}
	return decoded
}
