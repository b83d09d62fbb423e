package pagemeta

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	defaultMaxBytes  = 2 << 20
	defaultUserAgent = "Mozilla/5.0 (compatible; SustainlyBot/1.0)"
	maxTextWords     = 600
)

// Page is the metadata scraped from a product page.
type Page struct {
	URL         string
	Title       string
	Description string
	ImageURL    string
	Text        string
}

// Fetcher downloads product pages and extracts their metadata.
type Fetcher struct {
	httpClient *http.Client
	maxBytes   int64
	userAgent  string
}

// NewFetcher creates a fetcher with the given per-request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		maxBytes:  defaultMaxBytes,
		userAgent: defaultUserAgent,
	}
}

// Fetch downloads pageURL and extracts its metadata.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch page: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	return Extract(body, pageURL)
}

// Extract parses an HTML document into a Page.
func Extract(content []byte, pageURL string) (*Page, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	page := &Page{URL: pageURL}
	meta := map[string]string{}
	collectMeta(doc, meta)

	page.Title = firstNonEmpty(meta["og:title"], cleanText(findTitle(doc)))
	page.Description = firstNonEmpty(meta["og:description"], meta["description"])
	page.ImageURL = meta["og:image"]
	if page.ImageURL == "" {
		page.ImageURL = findAttr(doc, "img", "id", "landingImage", "src")
	}
	page.Text = truncateWords(cleanText(bodyText(doc)), maxTextWords)
	return page, nil
}

func collectMeta(n *html.Node, out map[string]string) {
	if n.Type == html.ElementNode && n.Data == "meta" {
		var key, content string
		for _, a := range n.Attr {
			switch strings.ToLower(a.Key) {
			case "property", "name":
				key = strings.ToLower(a.Val)
			case "content":
				content = strings.TrimSpace(a.Val)
			}
		}
		if key != "" && content != "" {
			if _, seen := out[key]; !seen {
				out[key] = content
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectMeta(c, out)
	}
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return nodeText(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := findTitle(c); title != "" {
			return title
		}
	}
	return ""
}

// findAttr returns attribute want of the first tag element whose attribute
// key equals val.
func findAttr(n *html.Node, tag, key, val, want string) string {
	if n.Type == html.ElementNode && n.Data == tag {
		var matched bool
		var found string
		for _, a := range n.Attr {
			if a.Key == key && a.Val == val {
				matched = true
			}
			if a.Key == want {
				found = a.Val
			}
		}
		if matched && found != "" {
			return found
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if v := findAttr(c, tag, key, val, want); v != "" {
			return v
		}
	}
	return ""
}

func bodyText(n *html.Node) string {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript", "nav", "footer", "header", "aside", "head":
			return ""
		}
	}
	if n.Type == html.TextNode {
		return n.Data + " "
	}
	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		text.WriteString(bodyText(c))
	}
	return text.String()
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		text.WriteString(nodeText(c))
	}
	return text.String()
}

func cleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func truncateWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	return strings.Join(words[:maxWords], " ") + "..."
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
