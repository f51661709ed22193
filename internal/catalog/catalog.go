// Package catalog fetches product pages from the source e-commerce site and
// extracts the display name and primary image address.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/gnemet/CueForge/internal/config"
)

var (
	// ErrBlocked means the request was redirected to a verification or
	// login page by the site's anti-automation defenses.
	ErrBlocked = errors.New("blocked by source site verification")
	// ErrNoTitle means the page came back but no product name could be
	// extracted from it.
	ErrNoTitle = errors.New("product title not found on page")
)

// imagePattern matches product image addresses embedded anywhere in the page
// body, protocol-relative as the site emits them.
var imagePattern = regexp.MustCompile(`//img\d{1,2}\.360buyimg\.com/n[01]/jfs/[^"]+\.jpg`)

// Product is the record scraped from one catalog page. Price and Image are
// filled in later by the runner.
type Product struct {
	SKU      string
	Title    string
	ImageURL string
	Price    string
	Image    []byte
}

type Client struct {
	cfg  config.CatalogConfig
	http *http.Client
	log  *zap.Logger
}

func NewClient(cfg config.CatalogConfig, log *zap.Logger) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout()},
		log:  log,
	}
}

// headers builds the per-request header set with a randomized User-Agent.
func (c *Client) headers() http.Header {
	h := http.Header{}
	if len(c.cfg.UserAgents) > 0 {
		h.Set("User-Agent", c.cfg.UserAgents[rand.Intn(len(c.cfg.UserAgents))])
	}
	h.Set("Referer", c.cfg.Referer)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", "zh-CN,zh;q=0.9")
	h.Set("Connection", "keep-alive")
	return h
}

// Fetch retrieves and parses one product page. A failure aborts this item
// only; the caller skips it and moves on.
func (c *Client) Fetch(ctx context.Context, sku string) (*Product, error) {
	url := fmt.Sprintf("%s/%s.html", strings.TrimRight(c.cfg.BaseURL, "/"), sku)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header = c.headers()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch product page: %w", err)
	}
	defer resp.Body.Close()

	// A redirect landing on a verification/login path is a total failure
	// for this item.
	final := resp.Request.URL.String()
	if strings.Contains(final, "verify") || strings.Contains(final, "passport") {
		return nil, ErrBlocked
	}

	// The source pages declare their own (non-UTF-8) encoding; decode by
	// what the page says, never by assumption.
	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("detect page charset: %w", err)
	}
	body, err := io.ReadAll(io.LimitReader(reader, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read product page: %w", err)
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse product page: %w", err)
	}

	title := extractTitle(doc)
	if title == "" {
		return nil, ErrNoTitle
	}

	p := &Product{
		SKU:      sku,
		Title:    title,
		ImageURL: extractImageURL(doc, string(body)),
	}
	c.log.Debug("scraped product", zap.String("sku", sku), zap.String("title", p.Title))
	return p, nil
}

func extractTitle(doc *html.Node) string {
	raw := ""
	if n := findByClass(doc, "div", "sku-name"); n != nil {
		raw = strings.TrimSpace(textContent(n))
	}
	if raw == "" {
		if n := findByTag(doc, "title"); n != nil {
			raw = strings.TrimSpace(strings.SplitN(textContent(n), "-", 2)[0])
		}
	}
	if raw == "" {
		return ""
	}
	// Strip the site's boilerplate brand markers.
	raw = strings.ReplaceAll(raw, "京东", "")
	raw = strings.ReplaceAll(raw, "自营", "")
	return strings.TrimSpace(raw)
}

// extractImageURL unions the main image element's attributes with every
// pattern match over the raw body, then returns the first valid candidate.
func extractImageURL(doc *html.Node, body string) string {
	var candidates []string
	if img := findByID(doc, "spec-img"); img != nil {
		candidates = append(candidates, attr(img, "data-origin"), attr(img, "src"))
	}
	candidates = append(candidates, imagePattern.FindAllString(body, -1)...)

	for _, cand := range candidates {
		if cand == "" || !strings.Contains(cand, "jfs") || !strings.Contains(cand, ".jpg") {
			continue
		}
		return normalizeImageURL(cand)
	}
	return ""
}

// normalizeImageURL makes the address absolute with a secure scheme and
// rewrites known low-resolution path segments to the high-resolution one.
func normalizeImageURL(u string) string {
	if !strings.HasPrefix(u, "http") {
		if strings.HasPrefix(u, "//") {
			u = "https:" + u
		} else {
			u = "https://" + u
		}
	}
	u = strings.ReplaceAll(u, "/n1/", "/n0/")
	u = strings.ReplaceAll(u, "/n5/", "/n0/")
	return u
}
