package document_test

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/padalah/interviewflow/internal/service/document"
)

func TestExtractPlainText(t *testing.T) {
	e := document.NewExtractor()

	text, err := e.Extract([]byte("Five years of Go experience.\nShipped three services."), document.ContentTypeText)
	if err != nil {
		t.Fatalf("Extract err: %v", err)
	}
	if !strings.Contains(text, "Five years of Go experience.") {
		t.Fatalf("unexpected extracted text: %q", text)
	}
}

func TestExtractRejectsOversizeForEveryType(t *testing.T) {
	e := document.NewExtractor()
	oversize := bytes.Repeat([]byte("a"), document.MaxUploadBytes+1)

	for _, ct := range []string{document.ContentTypeText, document.ContentTypePDF, document.ContentTypeDocx, "image/png"} {
		if _, err := e.Extract(oversize, ct); !errors.Is(err, document.ErrTooLarge) {
			t.Fatalf("content type %s: expected ErrTooLarge, got %v", ct, err)
		}
	}
}

func TestExtractRejectsUnsupportedType(t *testing.T) {
	e := document.NewExtractor()

	if _, err := e.Extract([]byte("data"), "image/png"); !errors.Is(err, document.ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestExtractStripsContentTypeParameters(t *testing.T) {
	e := document.NewExtractor()

	text, err := e.Extract([]byte("plain resume text"), "text/plain; charset=utf-8")
	if err != nil {
		t.Fatalf("Extract err: %v", err)
	}
	if text != "plain resume text" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractRejectsInvalidUTF8Text(t *testing.T) {
	e := document.NewExtractor()

	if _, err := e.Extract([]byte{0xff, 0xfe, 0xfd}, document.ContentTypeText); !errors.Is(err, document.ErrUnparsable) {
		t.Fatalf("expected ErrUnparsable, got %v", err)
	}
}

func TestExtractRejectsBrokenPDF(t *testing.T) {
	e := document.NewExtractor()

	if _, err := e.Extract([]byte("not a pdf at all"), document.ContentTypePDF); !errors.Is(err, document.ErrUnparsable) {
		t.Fatalf("expected ErrUnparsable, got %v", err)
	}
}

func buildDocx(t *testing.T, paragraphs []string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("zip create err: %v", err)
	}

	var doc strings.Builder
	doc.WriteString(`<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		doc.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	doc.WriteString(`</w:body></w:document>`)

	if _, err := w.Write([]byte(doc.String())); err != nil {
		t.Fatalf("zip write err: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close err: %v", err)
	}
	return buf.Bytes()
}

func TestExtractDocx(t *testing.T) {
	e := document.NewExtractor()
	data := buildDocx(t, []string{"Senior engineer with platform experience.", "Led a team of four."})

	text, err := e.Extract(data, document.ContentTypeDocx)
	if err != nil {
		t.Fatalf("Extract err: %v", err)
	}
	if !strings.Contains(text, "Senior engineer with platform experience.") {
		t.Fatalf("missing first paragraph: %q", text)
	}
	if !strings.Contains(text, "Led a team of four.") {
		t.Fatalf("missing second paragraph: %q", text)
	}
}

func TestExtractDocxWithoutDocumentXML(t *testing.T) {
	e := document.NewExtractor()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("word/other.xml")
	_, _ = w.Write([]byte("<w:document/>"))
	_ = zw.Close()

	if _, err := e.Extract(buf.Bytes(), document.ContentTypeDocx); !errors.Is(err, document.ErrUnparsable) {
		t.Fatalf("expected ErrUnparsable, got %v", err)
	}
}

func TestSanitizeStripsScriptEntirely(t *testing.T) {
	e := document.NewExtractor()

	got := e.Sanitize(`resume intro <script>alert(1)</script> resume outro`)
	if strings.Contains(got, "script") || strings.Contains(got, "alert(1)") {
		t.Fatalf("script content survived sanitization: %q", got)
	}
	if !strings.Contains(got, "resume intro") || !strings.Contains(got, "resume outro") {
		t.Fatalf("legitimate text lost during sanitization: %q", got)
	}
}

func TestSanitizeStripsEntityEncodedScript(t *testing.T) {
	e := document.NewExtractor()

	got := e.Sanitize("resume &lt;script&gt;alert(1)&lt;/script&gt; text")
	if strings.Contains(got, "<script>") || strings.Contains(got, "alert(1)") {
		t.Fatalf("entity-encoded script survived sanitization: %q", got)
	}
	if !strings.Contains(got, "resume") || !strings.Contains(got, "text") {
		t.Fatalf("legitimate text lost during sanitization: %q", got)
	}
}

func TestSanitizeStripsDoubleEncodedScript(t *testing.T) {
	e := document.NewExtractor()

	got := e.Sanitize("intro &amp;lt;script&amp;gt;alert(1)&amp;lt;/script&amp;gt; outro")
	if strings.Contains(got, "<script>") || strings.Contains(got, "alert(1)") {
		t.Fatalf("double-encoded script survived sanitization: %q", got)
	}
	if !strings.Contains(got, "intro") || !strings.Contains(got, "outro") {
		t.Fatalf("legitimate text lost during sanitization: %q", got)
	}
}

func TestSanitizeKeepsHarmlessEntities(t *testing.T) {
	e := document.NewExtractor()

	got := e.Sanitize("C&amp;D Engineering, revenue &gt; plan")
	if !strings.Contains(got, "C&D Engineering") || !strings.Contains(got, "revenue > plan") {
		t.Fatalf("harmless entities not decoded to plain text: %q", got)
	}
}

func TestSanitizeStripsEventHandlersAndJSURIs(t *testing.T) {
	e := document.NewExtractor()

	got := e.Sanitize(`click onclick="steal()" here javascript:void(0) done`)
	lowered := strings.ToLower(got)
	if strings.Contains(lowered, "onclick") || strings.Contains(lowered, "javascript:") {
		t.Fatalf("active content survived sanitization: %q", got)
	}
}

func TestSanitizeStripsSQLFragments(t *testing.T) {
	e := document.NewExtractor()

	got := e.Sanitize("experience'; DROP TABLE users; UNION SELECT password")
	lowered := strings.ToLower(got)
	if strings.Contains(lowered, "drop table") || strings.Contains(lowered, "union select") {
		t.Fatalf("sql fragment survived sanitization: %q", got)
	}
}

func TestSanitizeTruncates(t *testing.T) {
	e := document.NewExtractor()

	got := e.Sanitize(strings.Repeat("x", document.MaxTextLength*2))
	if len([]rune(got)) != document.MaxTextLength {
		t.Fatalf("unexpected truncated length: %d", len([]rune(got)))
	}
}
