package render

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	tls2 "github.com/refraction-networking/utls"
	"golang.org/x/net/proxy"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

const maxBodyBytes = 10 << 20

// HTTPFetcher fetches pages over plain HTTP, presenting a Chrome TLS
// fingerprint (utls) on https connections. Pages that look like a
// client-side shell are logged so the operator can switch to the browser
// renderer.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates a fetcher. proxyURL may be empty, an http(s)
// proxy or a socks5:// address.
func NewHTTPFetcher(proxyURL, userAgent string) *HTTPFetcher {
	if userAgent == "" {
		userAgent = chromeUA
	}

	var dialer proxy.ContextDialer = &net.Dialer{}
	transport := &http.Transport{}
	if u, err := url.Parse(proxyURL); err == nil && proxyURL != "" {
		switch u.Scheme {
		case "http", "https":
			transport.Proxy = http.ProxyURL(u)
		case "socks5", "socks5h":
			if d, err := proxy.FromURL(u, proxy.Direct); err == nil {
				if cd, ok := d.(proxy.ContextDialer); ok {
					dialer = cd
				}
			} else {
				slog.Warn("ignoring unusable proxy", "proxy", proxyURL, "error", err)
			}
		}
	}
	transport.DialContext = dialer.DialContext
	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return chromeHandshake(ctx, dialer, network, addr)
	}

	return &HTTPFetcher{
		client:    &http.Client{Transport: transport},
		userAgent: userAgent,
	}
}

// Fetch retrieves targetURL. Responses with status >= 400 are errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, targetURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("httpfetch: build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpfetch: get %s: %w", targetURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("httpfetch: HTTP %d for %s", resp.StatusCode, targetURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("httpfetch: read body: %w", err)
	}
	if reason := shellReason(body); reason != "" {
		slog.Warn("page looks client-rendered; static renderer may miss content",
			"url", targetURL, "reason", reason)
	}
	return body, nil
}

// Close releases idle connections.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

func chromeHandshake(ctx context.Context, dialer proxy.ContextDialer, network, addr string) (net.Conn, error) {
	raw, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	conn := tls2.UClient(raw, &tls2.Config{ServerName: host}, tls2.HelloChrome_Auto)
	if err := conn.HandshakeContext(ctx); err != nil {
		raw.Close()
		return nil, fmt.Errorf("tls handshake with %s: %w", host, err)
	}
	return conn, nil
}

var reNoscript = regexp.MustCompile(`<noscript[^>]*>[^<]*(enable|activate|turn on|requires?)\s+javascript`)

var spaRoots = []string{
	`<div id="root"></div>`,
	`<div id="app"></div>`,
	`<div id="__next"></div>`,
	`<div id="__nuxt"></div>`,
}

// shellReason explains why body looks like a page that only renders with
// JavaScript, or returns "".
func shellReason(body []byte) string {
	text := VisibleText(body)
	if len(text) < 200 {
		return "little visible text"
	}
	lower := strings.ToLower(string(body))
	for _, root := range spaRoots {
		if strings.Contains(lower, root) {
			return "empty application root"
		}
	}
	if reNoscript.MatchString(lower) {
		return "noscript warning"
	}
	if strings.Count(lower, "<script") > 10 && len(text) < 500 {
		return "script heavy"
	}
	return ""
}
