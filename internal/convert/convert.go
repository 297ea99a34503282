// Package convert turns OneNote page HTML into Markdown and localizes the
// embedded resources it references.
package convert

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/starford/noteport/internal/checksum"
	"github.com/starford/noteport/internal/graph"
	"github.com/starford/noteport/internal/models"
	"github.com/starford/noteport/internal/storage"
)

// AssetsDir is the export-root directory holding per-page resources.
const AssetsDir = "assets"

// resourceAttrs are checked in order; the first present attribute wins.
var resourceAttrs = []string{"data-fullres-src", "data-src", "src", "data"}

// Fetcher downloads an embedded resource.
type Fetcher interface {
	FetchResource(ctx context.Context, rawURL string) (*graph.Resource, error)
}

// Result is the outcome of converting one page.
type Result struct {
	Markdown string
	Assets   []models.Asset
}

// Converter renders page HTML and writes resources under the export root.
type Converter struct {
	fetch  Fetcher
	store  storage.Provider
	logger *slog.Logger
}

// New creates a Converter. A nil fetcher leaves every resource reference
// pointing at its remote URL.
func New(fetch Fetcher, store storage.Provider, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{fetch: fetch, store: store, logger: logger}
}

// Convert parses rawHTML, downloads its resources into assets/<pageID>/ and
// returns the Markdown body. A failed download is logged and the reference
// keeps its remote URL.
func (c *Converter) Convert(ctx context.Context, pageID, rawHTML string) (Result, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return Result{}, fmt.Errorf("convert: parse html: %w", err)
	}
	var assets []models.Asset
	if c.fetch != nil && c.store != nil {
		assets = c.localize(ctx, doc, pageID)
	}
	return Result{Markdown: Markdown(doc), Assets: assets}, nil
}

func (c *Converter) localize(ctx context.Context, doc *html.Node, pageID string) []models.Asset {
	var assets []models.Asset
	used := map[string]int{}

	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "img" || n.Data == "object") {
			if a, ok := c.localizeOne(ctx, n, pageID, used); ok {
				assets = append(assets, a)
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			visit(ch)
		}
	}
	visit(doc)
	return assets
}

func (c *Converter) localizeOne(ctx context.Context, n *html.Node, pageID string, used map[string]int) (models.Asset, bool) {
	var resURL string
	for _, key := range resourceAttrs {
		if v, ok := attr(n, key); ok {
			resURL = v
			break
		}
	}
	if !strings.HasPrefix(resURL, "http") {
		return models.Asset{}, false
	}

	res, err := c.fetch.FetchResource(ctx, resURL)
	if err != nil {
		c.logger.Warn("convert: resource download failed",
			slog.String("page_id", pageID), slog.String("url", resURL), slog.String("error", err.Error()))
		return models.Asset{}, false
	}

	name := safeName(res.Filename)
	if name == "" {
		name = FilenameFromURL(resURL, "res-"+strings.ReplaceAll(uuid.NewString(), "-", ""))
	}
	name = dedupe(name, used)

	rel := path.Join(AssetsDir, pageID, name)
	if err := c.store.Write(rel, res.Data); err != nil {
		c.logger.Warn("convert: resource write failed",
			slog.String("page_id", pageID), slog.String("path", rel), slog.String("error", err.Error()))
		return models.Asset{}, false
	}

	link := "../" + rel
	if n.Data == "img" {
		setAttr(n, "src", link)
		removeAttr(n, "data-fullres-src")
		removeAttr(n, "data-src")
	} else {
		setAttr(n, "data", link)
	}

	mt := res.ContentType
	if mt == "" {
		mt = DetectMediaType(name, res.Data)
	}
	return models.Asset{
		PageID:    pageID,
		RelPath:   rel,
		MimeType:  mt,
		SizeBytes: int64(len(res.Data)),
		SHA256:    checksum.Sum(res.Data),
	}, true
}

// FilenameFromURL returns the last path segment of rawURL, or fallback.
func FilenameFromURL(rawURL, fallback string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fallback
	}
	if name := safeName(path.Base(u.Path)); name != "" {
		return name
	}
	return fallback
}

// MediaType prefers an explicit content type, then the file extension.
func MediaType(name, contentType string) string {
	if contentType != "" {
		return contentType
	}
	if mt := mime.TypeByExtension(path.Ext(name)); mt != "" {
		if base, _, err := mime.ParseMediaType(mt); err == nil {
			return base
		}
		return mt
	}
	return "application/octet-stream"
}

// DetectMediaType resolves a type for a stored file: the extension first,
// then the leading bytes of data.
func DetectMediaType(name string, data []byte) string {
	if mt := MediaType(name, ""); mt != "application/octet-stream" || len(data) == 0 {
		return mt
	}
	base, _, err := mime.ParseMediaType(http.DetectContentType(data))
	if err != nil {
		return "application/octet-stream"
	}
	return base
}

// safeName reduces a server-supplied name to a single harmless segment.
func safeName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "." || name == "/" || name == ".." || strings.HasPrefix(name, ".") {
		return ""
	}
	return name
}

func dedupe(name string, used map[string]int) string {
	n := used[name]
	used[name] = n + 1
	if n == 0 {
		return name
	}
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + "-" + strconv.Itoa(n+1) + ext
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			out = append(out, a)
		}
	}
	n.Attr = out
}
