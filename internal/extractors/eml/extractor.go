package eml

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	mdbase "github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"

	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
	"github.com/custodia-labs/medingest/internal/extractors/base"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

var providerNameRe = regexp.MustCompile(`^(?:Dr\.?\s+\S+|.+,\s*(?:MD|DO|NP|PA-C|PA|RN)\b)`)

var markdownNoise = strings.NewReplacer("**", "", "__", "", "\\", "")

// Extractor handles RFC 822 email messages such as portal notifications
// and forwarded letters. Plain text parts are preferred over HTML.
type Extractor struct {
	md *converter.Converter
}

// New creates a new email extractor.
func New() *Extractor {
	return &Extractor{
		md: converter.NewConverter(
			converter.WithPlugins(
				mdbase.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
	}
}

// Name returns the format name.
func (e *Extractor) Name() string {
	return "eml"
}

// Extensions returns the file extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{".eml"}
}

// MIMETypes returns the MIME types this extractor handles.
func (e *Extractor) MIMETypes() []string {
	return []string{"message/rfc822"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50
}

// CanHandle reports whether the path has an email extension.
func (e *Extractor) CanHandle(path string) bool {
	return base.HasExtension(path, e.Extensions())
}

// ProcessFile parses headers and body. The sender is recorded as a
// provider when the display name looks like a clinician.
func (e *Extractor) ProcessFile(ctx context.Context, path string) (*domain.Document, error) {
	f, err := base.Read(ctx, path)
	if err != nil {
		return nil, err
	}

	msg, err := mail.ReadMessage(bytes.NewReader(f.Content))
	if err != nil {
		return nil, fmt.Errorf("%w: parse message: %w", domain.ErrExtractionFailure, err)
	}

	subject := decodeHeader(msg.Header.Get("Subject"))
	from := decodeHeader(msg.Header.Get("From"))
	to := decodeHeader(msg.Header.Get("To"))

	body, err := e.extractBody(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if err != nil {
		return nil, err
	}

	doc := base.NewDocument(f, e.Name(), "message/rfc822")
	if subject != "" {
		doc.Title = subject
	}

	var header strings.Builder
	for _, h := range [][2]string{{"From", from}, {"To", to}, {"Date", msg.Header.Get("Date")}, {"Subject", subject}} {
		if h[1] != "" {
			header.WriteString(h[0] + ": " + h[1] + "\n")
		}
	}
	if header.Len() > 0 {
		doc.Sections = append(doc.Sections, domain.Section{Kind: "header", Text: strings.TrimSpace(header.String())})
	}
	doc.Sections = append(doc.Sections, base.Paragraphs(body)...)

	if from != "" {
		doc.Metadata.Extra["from"] = from
		if addr, err := mail.ParseAddress(from); err == nil && providerNameRe.MatchString(addr.Name) {
			doc.Metadata.Providers = append(doc.Metadata.Providers, addr.Name)
		}
	}
	if to != "" {
		doc.Metadata.Extra["to"] = to
	}
	if date, err := msg.Header.Date(); err == nil {
		doc.Metadata.Dates = append(doc.Metadata.Dates, date.UTC().Format("2006-01-02"))
	}
	return base.Finish(doc)
}

// decodeHeader decodes RFC 2047 encoded headers.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// extractBody returns the text of a (possibly multipart) body.
func (e *Extractor) extractBody(contentType, encoding string, r io.Reader) (string, error) {
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return e.extractMultipart(r, params["boundary"])
	}

	content, err := io.ReadAll(decodeTransfer(encoding, r))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %w", domain.ErrExtractionFailure, err)
	}
	if mediaType == "text/html" {
		return e.htmlToText(string(content)), nil
	}
	return string(content), nil
}

// extractMultipart walks parts and prefers text/plain over text/html.
func (e *Extractor) extractMultipart(r io.Reader, boundary string) (string, error) {
	if boundary == "" {
		return "", nil
	}

	mr := multipart.NewReader(r, boundary)
	var textParts, htmlParts []string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		mediaType, params, perr := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if perr != nil {
			mediaType = "application/octet-stream"
		}
		if strings.HasPrefix(mediaType, "multipart/") {
			if nested, nerr := e.extractMultipart(part, params["boundary"]); nerr == nil && nested != "" {
				textParts = append(textParts, nested)
			}
			part.Close()
			continue
		}

		// multipart.Reader already decodes quoted-printable parts.
		content, rerr := io.ReadAll(part)
		part.Close()
		if rerr != nil {
			continue
		}

		switch mediaType {
		case "text/plain":
			textParts = append(textParts, string(content))
		case "text/html":
			htmlParts = append(htmlParts, e.htmlToText(string(content)))
		}
	}

	if len(textParts) > 0 {
		return strings.Join(textParts, "\n\n"), nil
	}
	return strings.Join(htmlParts, "\n\n"), nil
}

// htmlToText converts an HTML body to readable markdown-ish text.
func (e *Extractor) htmlToText(html string) string {
	out, err := e.md.ConvertString(html)
	if err != nil || strings.TrimSpace(out) == "" {
		return ""
	}
	return strings.TrimSpace(markdownNoise.Replace(out))
}

func decodeTransfer(encoding string, r io.Reader) io.Reader {
	if strings.EqualFold(strings.TrimSpace(encoding), "quoted-printable") {
		return quotedprintable.NewReader(r)
	}
	return r
}
