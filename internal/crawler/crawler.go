// Package crawler fetches a URL, respecting robots.txt,
// extracting readable text, and falling back to a headless browser for
// client-rendered pages.
package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"github.com/relayforge/knowbase/internal/apperr"
	"github.com/relayforge/knowbase/pkg/logger"
	"github.com/relayforge/knowbase/pkg/utils"
)

const (
	minVisibleTextChars = 200
	minExtractedChars   = 200
	userAgent           = "knowbase-crawler/1.0 (+https://knowbase.example/bot)"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Result is the outcome of fetching and extracting a single URL.
type Result struct {
	Text         string
	Title        string
	CanonicalURL string
	ETag         string
	LastModified string
	Checksum     string
}

type Crawler struct {
	httpClient *http.Client
}

func New(fetchTimeout time.Duration) *Crawler {
	return &Crawler{httpClient: &http.Client{Timeout: fetchTimeout}}
}

// Fetch runs the full protocol: canonicalize, robots check, GET (with a
// headless fallback when the page reads as client-rendered), extract,
// checksum.
func (c *Crawler) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	canonical, err := canonicalize(rawURL)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidationFailed, "invalid url", err)
	}

	allowed, err := c.checkRobots(ctx, canonical)
	if err != nil {
		logger.Warn("robots.txt check failed, proceeding", zap.Error(err))
	} else if !allowed {
		return nil, apperr.New(apperr.KindRobotsDenied, "robots.txt disallows this url")
	}

	html, etag, lastModified, err := c.fetch(ctx, canonical)
	if err != nil {
		return nil, err
	}

	text := extractText(html)
	if len(strings.TrimSpace(text)) < minVisibleTextChars {
		rendered, renderErr := c.fetchRendered(ctx, canonical)
		if renderErr == nil && len(strings.TrimSpace(extractText(rendered))) > len(strings.TrimSpace(text)) {
			html = rendered
			text = extractText(html)
		}
	}

	if len(strings.TrimSpace(text)) < minExtractedChars {
		return nil, apperr.New(apperr.KindInsufficientContent, "extracted text below minimum threshold")
	}

	title := extractTitle(html)
	if title == "" {
		title = fallbackHeadingFromURL(canonical)
	}

	return &Result{
		Text:         text,
		Title:        title,
		CanonicalURL: canonical,
		ETag:         etag,
		LastModified: lastModified,
		Checksum:     utils.SHA256Hex(text),
	}, nil
}

func canonicalize(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	return u.String(), nil
}

func (c *Crawler) checkRobots(ctx context.Context, rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, err
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return true, err // origin has no reachable robots.txt; fail open
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return true, nil
	}
	if resp.StatusCode != http.StatusOK {
		return true, fmt.Errorf("robots.txt returned status %d", resp.StatusCode)
	}

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return true, err
	}

	group := data.FindGroup(userAgent)
	return group.Test(u.Path), nil
}

func (c *Crawler) fetch(ctx context.Context, rawURL string) (html, etag, lastModified string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", "", "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", "", apperr.Wrap(apperr.KindProviderUnavailable, "fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", "", "", apperr.New(apperr.KindProviderRejected, fmt.Sprintf("fetch returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to read response body: %w", err)
	}

	return string(body), resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), nil
}

// fetchRendered runs a headless browser for client-rendered pages whose
// initial HTML response carries too little visible text.
func (c *Crawler) fetchRendered(ctx context.Context, rawURL string) (string, error) {
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	timeoutCtx, cancel := context.WithTimeout(browserCtx, 15*time.Second)
	defer cancel()

	var html string
	err := chromedp.Run(timeoutCtx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("headless fetch failed: %w", err)
	}
	return html, nil
}

func extractText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	doc.Find("script, style, nav, footer, header, aside, noscript").Each(func(_ int, s *goquery.Selection) {
		s.Remove()
	})

	text := doc.Find("body").Text()
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func extractTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	return title
}

func fallbackHeadingFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}
