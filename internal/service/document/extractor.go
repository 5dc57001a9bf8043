package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/microcosm-cc/bluemonday"

	"github.com/padalah/interviewflow/internal/metrics"
)

const (
	// MaxUploadBytes is the hard size limit for any uploaded document.
	MaxUploadBytes = 5 << 20
	// MaxTextLength is the cap on extracted (and session-field) text.
	MaxTextLength = 2000
)

// Supported content types. Parameters (charset etc.) are stripped before
// matching.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypeText = "text/plain"
)

var (
	ErrTooLarge        = errors.New("document exceeds the 5MB size limit")
	ErrUnsupportedType = errors.New("unsupported content type")
	ErrUnparsable      = errors.New("document could not be parsed")
)

var (
	scriptTagPattern  = regexp.MustCompile(`(?i)<\s*/?\s*script\b[^>]*>`)
	jsURIPattern      = regexp.MustCompile(`(?i)javascript\s*:`)
	eventAttrPattern  = regexp.MustCompile(`(?i)\bon[a-z]+\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)
	sqlInjectPattern  = regexp.MustCompile(`(?i)\b(union\s+select|select\s+\*\s+from|insert\s+into|delete\s+from|drop\s+table|drop\s+database|exec\s*\(|xp_cmdshell)\b`)
	whitespacePattern = regexp.MustCompile(`[ \t]{2,}`)
)

// maxUnescapeDepth bounds the entity-decoding fixpoint loop; payloads nested
// deeper than this stay escaped and therefore inert.
const maxUnescapeDepth = 4

// Extractor pulls readable text out of uploaded documents and scrubs it
// before it is stored or echoed anywhere.
type Extractor struct {
	policy *bluemonday.Policy
}

// NewExtractor builds an extractor with a strict sanitization policy: no
// markup survives.
func NewExtractor() *Extractor {
	return &Extractor{policy: bluemonday.StrictPolicy()}
}

// Extract converts raw document bytes into sanitized, length-capped text.
// The size check runs before any parsing so an oversized payload is rejected
// regardless of content type.
func (e *Extractor) Extract(data []byte, contentType string) (string, error) {
	if len(data) > MaxUploadBytes {
		return "", ErrTooLarge
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty document", ErrUnparsable)
	}

	mediaType := contentType
	if idx := strings.IndexByte(mediaType, ';'); idx >= 0 {
		mediaType = mediaType[:idx]
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))

	var (
		text   string
		format string
		err    error
	)
	switch mediaType {
	case ContentTypePDF:
		format = "pdf"
		text, err = extractPDF(data)
	case ContentTypeDocx:
		format = "docx"
		text, err = extractDocx(data)
	case ContentTypeText:
		format = "txt"
		text, err = extractPlainText(data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	if err != nil {
		return "", err
	}

	metrics.DocumentsProcessed.WithLabelValues(format).Inc()
	return e.Sanitize(text), nil
}

// Sanitize strips markup (script tags and their bodies included), inline
// event handlers, javascript: URIs and crude SQL fragments, then truncates
// the result to MaxTextLength characters.
func (e *Extractor) Sanitize(text string) string {
	// Decode entity-encoded input to a fixpoint before the policy runs, so
	// markup cannot hide behind one or more layers of HTML escaping and be
	// resurrected by a later decode.
	cleaned := text
	for i := 0; i < maxUnescapeDepth; i++ {
		decoded := html.UnescapeString(cleaned)
		if decoded == cleaned {
			break
		}
		cleaned = decoded
	}

	cleaned = e.policy.Sanitize(cleaned)
	// The policy HTML-escapes what it keeps; uploaded documents are plain
	// text to us, so undo that single escaping layer once the markup is gone.
	cleaned = html.UnescapeString(cleaned)

	cleaned = scriptTagPattern.ReplaceAllString(cleaned, "")
	cleaned = eventAttrPattern.ReplaceAllString(cleaned, "")
	cleaned = jsURIPattern.ReplaceAllString(cleaned, "")
	cleaned = sqlInjectPattern.ReplaceAllString(cleaned, "")
	cleaned = whitespacePattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	runes := []rune(cleaned)
	if len(runes) > MaxTextLength {
		return string(runes[:MaxTextLength])
	}
	return cleaned
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnparsable, err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnparsable, err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnparsable, err)
	}
	return buf.String(), nil
}

// extractDocx walks word/document.xml inside the package and collects the
// character data of <w:t> runs, with paragraph ends mapped to newlines.
func extractDocx(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnparsable, err)
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("%w: word/document.xml missing", ErrUnparsable)
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnparsable, err)
	}
	defer rc.Close()

	var buf strings.Builder
	inText := false
	decoder := xml.NewDecoder(rc)
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnparsable, err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				buf.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				buf.Write(el)
			}
		}
	}
	return buf.String(), nil
}

func extractPlainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: not valid UTF-8 text", ErrUnparsable)
	}
	return string(data), nil
}
