package convert

import (
	"path"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var (
	spaceRun = regexp.MustCompile(`[ \t\r\n\f]+`)
	blankRun = regexp.MustCompile(`\n{3,}`)
)

var skipTags = map[string]bool{
	"head": true, "meta": true, "title": true,
	"script": true, "style": true, "noscript": true,
}

// Markdown renders a parsed HTML document as Markdown: ATX headings, `*`
// bullets, pipe tables, fenced code. The result is trimmed, has no run of
// more than one blank line and ends with a single newline.
func Markdown(doc *html.Node) string {
	var r renderer
	out := r.children(doc)

	lines := strings.Split(out, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	out = blankRun.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(out) + "\n"
}

type renderer struct {
	listDepth int
}

func (r *renderer) children(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.node(c, &sb)
	}
	return sb.String()
}

func (r *renderer) node(n *html.Node, w *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		w.WriteString(spaceRun.ReplaceAllString(n.Data, " "))
		return
	case html.DocumentNode:
		w.WriteString(r.children(n))
		return
	case html.ElementNode:
	default:
		return
	}
	if skipTags[n.Data] {
		return
	}

	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := int(n.Data[1] - '0')
		text := oneLine(r.children(n))
		if text != "" {
			w.WriteString("\n\n" + strings.Repeat("#", level) + " " + text + "\n\n")
		}
	case "p":
		w.WriteString("\n\n" + todoMarker(n) + strings.TrimSpace(r.children(n)) + "\n\n")
	case "div", "section", "article", "body", "html":
		w.WriteString("\n" + strings.TrimSpace(r.children(n)) + "\n")
	case "br":
		w.WriteString("\n")
	case "hr":
		w.WriteString("\n\n---\n\n")
	case "strong", "b":
		w.WriteString(wrap(r.children(n), "**"))
	case "em", "i":
		w.WriteString(wrap(r.children(n), "*"))
	case "s", "del", "strike":
		w.WriteString(wrap(r.children(n), "~~"))
	case "code":
		if text := textContent(n); text != "" {
			w.WriteString("`" + text + "`")
		}
	case "pre":
		w.WriteString("\n\n```\n" + strings.Trim(textContent(n), "\n") + "\n```\n\n")
	case "a":
		text := oneLine(r.children(n))
		href, _ := attr(n, "href")
		switch {
		case href == "":
			w.WriteString(text)
		case text == "":
			w.WriteString("<" + href + ">")
		default:
			w.WriteString("[" + text + "](" + href + ")")
		}
	case "img":
		src, _ := attr(n, "src")
		if src == "" {
			return
		}
		alt, _ := attr(n, "alt")
		w.WriteString("![" + oneLine(alt) + "](" + src + ")")
	case "object":
		data, _ := attr(n, "data")
		if data == "" {
			return
		}
		name, ok := attr(n, "data-attachment")
		if !ok || name == "" {
			name = path.Base(data)
		}
		w.WriteString("[" + oneLine(name) + "](" + data + ")")
	case "ul", "ol":
		r.list(n, w)
	case "table":
		r.table(n, w)
	case "blockquote":
		inner := strings.TrimSpace(r.children(n))
		lines := strings.Split(inner, "\n")
		for i, l := range lines {
			lines[i] = strings.TrimRight("> "+l, " ")
		}
		w.WriteString("\n\n" + strings.Join(lines, "\n") + "\n\n")
	default:
		w.WriteString(r.children(n))
	}
}

func (r *renderer) list(n *html.Node, w *strings.Builder) {
	r.listDepth++
	defer func() { r.listDepth-- }()

	ordered := n.Data == "ol"
	num := 1
	if s, ok := attr(n, "start"); ok {
		if v, err := strconv.Atoi(s); err == nil {
			num = v
		}
	}

	var items []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "li" {
			continue
		}
		marker := "* "
		if ordered {
			marker = strconv.Itoa(num) + ". "
			num++
		}
		body := blankRun.ReplaceAllString(strings.TrimSpace(r.children(c)), "\n")
		body = strings.ReplaceAll(body, "\n\n", "\n")
		items = append(items, marker+indentTail(body, strings.Repeat(" ", len(marker))))
	}
	if len(items) == 0 {
		return
	}
	sep := "\n\n"
	if r.listDepth > 1 {
		sep = "\n"
	}
	w.WriteString(sep + strings.Join(items, "\n") + sep)
}

func (r *renderer) table(n *html.Node, w *strings.Builder) {
	var rows [][]string
	var collect func(*html.Node)
	collect = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "tr":
				var cells []string
				for td := c.FirstChild; td != nil; td = td.NextSibling {
					if td.Type == html.ElementNode && (td.Data == "td" || td.Data == "th") {
						cell := oneLine(r.children(td))
						cells = append(cells, strings.ReplaceAll(cell, "|", `\|`))
					}
				}
				rows = append(rows, cells)
			case "thead", "tbody", "tfoot":
				collect(c)
			}
		}
	}
	collect(n)

	cols := 0
	for _, row := range rows {
		cols = max(cols, len(row))
	}
	if cols == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString("\n\n")
	for i, row := range rows {
		for len(row) < cols {
			row = append(row, "")
		}
		sb.WriteString("| " + strings.Join(row, " | ") + " |\n")
		if i == 0 {
			sb.WriteString("|" + strings.Repeat(" --- |", cols) + "\n")
		}
	}
	sb.WriteString("\n")
	w.WriteString(sb.String())
}

// todoMarker renders OneNote to-do tags as task list checkboxes.
func todoMarker(n *html.Node) string {
	tag, ok := attr(n, "data-tag")
	if !ok {
		return ""
	}
	for _, t := range strings.Split(tag, ",") {
		switch strings.TrimSpace(t) {
		case "to-do":
			return "- [ ] "
		case "to-do:completed":
			return "- [x] "
		}
	}
	return ""
}

func wrap(s, mark string) string {
	inner := strings.TrimSpace(s)
	if inner == "" {
		return s
	}
	lead := s[:len(s)-len(strings.TrimLeft(s, " "))]
	trail := s[len(strings.TrimRight(s, " ")):]
	return lead + mark + inner + mark + trail
}

func oneLine(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

func indentTail(s, pad string) string {
	lines := strings.Split(s, "\n")
	for i := 1; i < len(lines); i++ {
		if lines[i] != "" {
			lines[i] = pad + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		switch {
		case p.Type == html.TextNode:
			sb.WriteString(p.Data)
		case p.Type == html.ElementNode && p.Data == "br":
			sb.WriteString("\n")
		}
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
