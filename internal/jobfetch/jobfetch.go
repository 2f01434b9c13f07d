// Package jobfetch downloads job postings and extracts their description text.
package jobfetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/andybalholm/cascadia"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	DefaultTimeout   = 15 * time.Second
	DefaultMaxLength = 20000
	DefaultUserAgent = "assessment-recommender/1.0"

	maxBodyBytes = 5 << 20
)

// descriptionSelectors are tried in order before falling back to article
// extraction.
var descriptionSelectors = []cascadia.Selector{
	cascadia.MustCompile("div.job-description"),
	cascadia.MustCompile("div.description"),
}

// ErrBlockedAddress is returned when a URL resolves to an address the
// fetcher refuses to connect to.
var ErrBlockedAddress = errors.New("blocked address")

// Options configure a Fetcher.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	// MaxLength caps the returned text in runes.
	MaxLength int
	// AllowPrivate permits loopback, private and link-local targets.
	AllowPrivate bool
}

// Fetcher extracts job description text from web pages.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxLength int
}

// New creates a Fetcher with its own HTTP client. Unless AllowPrivate is
// set, connections to non-public addresses are refused after DNS resolution.
func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	dialer := &net.Dialer{Timeout: opts.Timeout}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !opts.AllowPrivate {
		dialer.Control = guardDial
		// A proxy would be dialled instead of the target.
		transport.Proxy = nil
	}
	transport.DialContext = dialer.DialContext

	return NewWithClient(&http.Client{Timeout: opts.Timeout, Transport: transport}, opts)
}

// guardDial runs for every resolved address right before connecting.
func guardDial(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	if !Public(addr) {
		return fmt.Errorf("%w: %s is not a public address", ErrBlockedAddress, addr)
	}
	return nil
}

// Public reports whether addr is a globally routable unicast address.
func Public(addr netip.Addr) bool {
	addr = addr.Unmap()
	switch {
	case !addr.IsValid(),
		addr.IsUnspecified(),
		addr.IsLoopback(),
		addr.IsPrivate(),
		addr.IsLinkLocalUnicast(),
		addr.IsLinkLocalMulticast(),
		addr.IsInterfaceLocalMulticast(),
		addr.IsMulticast():
		return false
	}
	for _, p := range reservedPrefixes {
		if p.Contains(addr) {
			return false
		}
	}
	return true
}

var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("64:ff9b::/96"),
}

// NewWithClient creates a Fetcher using the given HTTP client.
func NewWithClient(client *http.Client, opts Options) *Fetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultMaxLength
	}
	return &Fetcher{client: client, userAgent: opts.UserAgent, maxLength: opts.MaxLength}
}

// Fetch downloads rawURL and returns the job description text. A dedicated
// description block wins; otherwise the main article text is used, and as a
// last resort the text of the whole page.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request for %s: %w", u, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s returned status %d", u, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", u, err)
	}

	return f.truncate(Extract(body, u)), nil
}

// Extract returns the job description text of an HTML page.
func Extract(page []byte, pageURL *url.URL) string {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return ""
	}

	for _, sel := range descriptionSelectors {
		if node := cascadia.Query(doc, sel); node != nil {
			if text := nodeText(node); text != "" {
				return text
			}
		}
	}

	if article, err := readability.FromReader(bytes.NewReader(page), pageURL); err == nil {
		if text := collapse(article.TextContent); text != "" {
			return text
		}
	}

	return nodeText(doc)
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Head:
				return
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return collapse(sb.String())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (f *Fetcher) truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= f.maxLength {
		return s
	}
	return strings.TrimSpace(string(runes[:f.maxLength]))
}
