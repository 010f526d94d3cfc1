package crawler

import (
	"strings"
	"testing"
)

func TestCanonicalizeLowercasesSchemeAndHost(t *testing.T) {
	got, err := canonicalize("HTTPS://Example.COM/Docs/")
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if got != "https://example.com/Docs" {
		t.Fatalf("unexpected canonical url: %q", got)
	}
}

func TestCanonicalizeStripsFragment(t *testing.T) {
	got, err := canonicalize("https://example.com/page#section-2")
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if got != "https://example.com/page" {
		t.Fatalf("expected the fragment to be stripped, got %q", got)
	}
}

func TestCanonicalizeKeepsRootSlash(t *testing.T) {
	got, err := canonicalize("https://example.com/")
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if got != "https://example.com/" {
		t.Fatalf("expected root path to keep its trailing slash, got %q", got)
	}
}

func TestCanonicalizeRejectsUnsupportedScheme(t *testing.T) {
	if _, err := canonicalize("ftp://example.com/file"); err == nil {
		t.Fatalf("expected an error for an unsupported scheme")
	}
}

func TestExtractTextStripsBoilerplate(t *testing.T) {
	html := `<html><head><title>Ignored</title></head><body>
		<nav>Site nav</nav>
		<main>Useful article content goes here.</main>
		<footer>Copyright notice</footer>
	</body></html>`

	text := extractText(html)
	if want := "Useful article content goes here."; !strings.Contains(text, want) {
		t.Fatalf("expected extracted text to contain %q, got %q", want, text)
	}
	if strings.Contains(text, "Site nav") || strings.Contains(text, "Copyright notice") {
		t.Fatalf("expected nav/footer boilerplate to be stripped, got %q", text)
	}
}

func TestExtractTitlePrefersTitleTag(t *testing.T) {
	html := `<html><head><title>Page Title</title></head><body><h1>Heading</h1></body></html>`
	if got := extractTitle(html); got != "Page Title" {
		t.Fatalf("expected Page Title, got %q", got)
	}
}

func TestExtractTitleFallsBackToH1(t *testing.T) {
	html := `<html><head></head><body><h1>Only Heading</h1></body></html>`
	if got := extractTitle(html); got != "Only Heading" {
		t.Fatalf("expected Only Heading, got %q", got)
	}
}

func TestFallbackHeadingFromURLUsesLastSegment(t *testing.T) {
	if got := fallbackHeadingFromURL("https://example.com/docs/getting-started"); got != "getting-started" {
		t.Fatalf("expected getting-started, got %q", got)
	}
}

func TestFallbackHeadingFromURLHandlesRoot(t *testing.T) {
	if got := fallbackHeadingFromURL("https://example.com/"); got != "" {
		t.Fatalf("expected an empty heading for the bare root path, got %q", got)
	}
}
