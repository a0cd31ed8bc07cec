package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestExtractBytes_plain(t *testing.T) {
	e := NewExtractor()
	tests := []struct {
		name    string
		content []byte
		ext     string
		want    string
	}{
		{"txt", []byte("Alice: Hello team\nBob: Hi Alice"), ".txt", "Alice: Hello team\nBob: Hi Alice"},
		{"crlf", []byte("Alice: one\r\nBob: two\r\n"), ".txt", "Alice: one\nBob: two\n"},
		{"utf8", []byte("caf\xc3\xa9"), ".md", "café"},
		{"bom", []byte("\xef\xbb\xbfAlice: hi"), ".txt", "Alice: hi"},
		{"invalid utf8", []byte("hello\x80world"), ".txt", "hello\uFFFDworld"},
		{"no extension", []byte("raw"), "", "raw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.ExtractBytes(tt.content, tt.ext)
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractBytes_unsupported(t *testing.T) {
	_, err := NewExtractor().ExtractBytes([]byte("x"), ".xlsx")
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestSupported(t *testing.T) {
	for _, ext := range []string{".txt", ".MD", ".pdf", ".docx", ".odt", ".rtf"} {
		if !Supported(ext) {
			t.Errorf("%s should be supported", ext)
		}
	}
	for _, ext := range []string{".xlsx", ".pptx", ".go", ""} {
		if Supported(ext) {
			t.Errorf("%q should not be supported", ext)
		}
	}
}

func TestExtract_plainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m1.txt")
	if err := os.WriteFile(path, []byte("Alice: File content"), 0600); err != nil {
		t.Fatal(err)
	}
	got, err := NewExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "Alice: File content" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_nonexistent(t *testing.T) {
	if _, err := NewExtractor().Extract("/nonexistent/path/file.txt"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

const docxBody = `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
	`<w:p w:rsidR="00A1"><w:pPr><w:jc w:val="left"/></w:pPr><w:r><w:t xml:space="preserve">Alice: </w:t></w:r><w:r><w:t>Hello &amp; welcome</w:t></w:r></w:p>` +
	`<w:p><w:r><w:t></w:t></w:r></w:p>` +
	`<w:p><w:r><w:t>Bob: Hi Alice</w:t></w:r></w:p>` +
	`</w:body></w:document>`

func TestExtractBytes_docxParagraphs(t *testing.T) {
	content := zipBytes(t, map[string]string{"word/document.xml": docxBody})
	got, err := NewExtractor().ExtractBytes(content, ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	want := "Alice: Hello & welcome\nBob: Hi Alice"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractBytes_docxContentTypes(t *testing.T) {
	ct := `<?xml version="1.0"?><Types><Override PartName="/word/document2.xml" ` +
		`ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`
	content := zipBytes(t, map[string]string{
		"[Content_Types].xml": ct,
		"word/document2.xml":  docxBody,
	})
	got, err := NewExtractor().ExtractBytes(content, ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Alice: Hello & welcome\nBob: Hi Alice" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_docxErrors(t *testing.T) {
	e := NewExtractor()
	if _, err := e.ExtractBytes([]byte("not a zip"), ".docx"); err == nil {
		t.Error("expected error for non-zip docx")
	}
	if _, err := e.ExtractBytes(zipBytes(t, map[string]string{"other.xml": "x"}), ".docx"); err == nil {
		t.Error("expected error for docx without document.xml")
	}
}

func TestExtractBytes_invalidPDF(t *testing.T) {
	if _, err := NewExtractor().ExtractBytes([]byte("%PDF-garbage"), ".pdf"); err == nil {
		t.Error("expected error for invalid PDF")
	}
}
