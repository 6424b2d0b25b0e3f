package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"

	"devwell/backend/features/library"
)

const defaultMaxBytes = 5 << 20

var (
	ErrUnsupportedContent = fmt.Errorf("%w: unsupported content type", library.ErrUnsupportedLink)
	ErrTooLarge           = errors.New("page exceeds size limit")
)

// Fetcher downloads a page and reduces it to readable text.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: 30 * time.Second},
		maxBytes: defaultMaxBytes,
	}
}

func (f *Fetcher) FetchPage(ctx context.Context, pageURL string) (library.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return library.Page{}, err
	}
	req.Header.Set("User-Agent", "DevWell-Library/1.0")
	req.Header.Set("Accept", "text/html,text/plain;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return library.Page{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return library.Page{}, fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = ""
	}

	switch mediaType {
	case "text/html", "application/xhtml+xml", "text/plain", "text/markdown":
	default:
		return library.Page{}, fmt.Errorf("%w: %q", ErrUnsupportedContent, mediaType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return library.Page{}, err
	}
	if int64(len(data)) > f.maxBytes {
		return library.Page{}, fmt.Errorf("%w: %s is over %d bytes", ErrTooLarge, pageURL, f.maxBytes)
	}

	// Decode to UTF-8 using the declared charset, or a <meta> tag for HTML.
	body, err := charset.NewReader(bytes.NewReader(data), contentType)
	if err != nil {
		return library.Page{}, fmt.Errorf("decode %s: %w", pageURL, err)
	}

	if mediaType == "text/html" || mediaType == "application/xhtml+xml" {
		return ParseHTML(body)
	}
	decoded, err := io.ReadAll(body)
	if err != nil {
		return library.Page{}, err
	}
	return library.Page{Text: string(decoded)}, nil
}

var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Svg:      true,
	atom.Template: true,
	atom.Iframe:   true,
	atom.Nav:      true,
	atom.Footer:   true,
}

var blocks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Tr: true, atom.Pre: true, atom.Blockquote: true, atom.Section: true, atom.Article: true,
}

// ParseHTML returns the document title and its visible text, one block per
// line.
func ParseHTML(r io.Reader) (library.Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return library.Page{}, err
	}

	var page library.Page
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.DataAtom == atom.Title {
				if page.Title == "" && n.FirstChild != nil {
					page.Title = strings.TrimSpace(n.FirstChild.Data)
				}
				return
			}
			if skipped[n.DataAtom] {
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
				if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blocks[n.DataAtom] && sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteByte('\n')
		}
	}
	walk(doc)

	page.Text = strings.TrimSpace(sb.String())
	return page, nil
}
