// Package frontmatter reads and writes the metadata block at the top of every
// page artifact.
//
// The block is a list of "key: value" lines between two "---" lines. Since
// format_version 1 values are escaped so they never span lines: a backslash is
// written as `\\`, LF as `\n` and CR as `\r`. Blocks without a format_version
// key are treated as version 0 and read verbatim.
package frontmatter

import (
	"bytes"
	"strconv"
	"strings"
)

const (
	// Delimiter opens and closes the block.
	Delimiter = "---"
	// Version is the format version written by Encode.
	Version = 1

	versionKey = "format_version"
)

// Keys lists the page fields in the order they are written.
var Keys = []string{
	"notebook",
	"section",
	"section_id",
	"title",
	"page_id",
	"created",
	"modified",
	"web_url",
	"client_url",
	"content_hash",
}

// Fields holds the page metadata carried in the block.
type Fields struct {
	Notebook    string
	Section     string
	SectionID   string
	Title       string
	PageID      string
	Created     string
	Modified    string
	WebURL      string
	ClientURL   string
	ContentHash string
}

func (f Fields) values() []string {
	return []string{
		f.Notebook, f.Section, f.SectionID, f.Title, f.PageID,
		f.Created, f.Modified, f.WebURL, f.ClientURL, f.ContentHash,
	}
}

func (f *Fields) set(key, value string) bool {
	switch key {
	case "notebook":
		f.Notebook = value
	case "section":
		f.Section = value
	case "section_id":
		f.SectionID = value
	case "title":
		f.Title = value
	case "page_id":
		f.PageID = value
	case "created":
		f.Created = value
	case "modified":
		f.Modified = value
	case "web_url":
		f.WebURL = value
	case "client_url":
		f.ClientURL = value
	case "content_hash":
		f.ContentHash = value
	default:
		return false
	}
	return true
}

// Document is a parsed artifact.
type Document struct {
	Fields Fields
	// Present records which known keys appeared in the block.
	Present map[string]bool
	// Extra keeps keys this version does not know about.
	Extra   map[string]string
	Version int
	// HasFrontMatter is false when no well-formed block was found; the whole
	// input is then treated as body.
	HasFrontMatter bool
	// Heading is the injected "# <title>" line, empty when absent.
	Heading string
	// Body is the rendered page body with front matter and heading removed.
	Body string
}

// Encode renders the front-matter block followed by one blank line.
func Encode(f Fields) string {
	var sb strings.Builder
	sb.WriteString(Delimiter + "\n")
	sb.WriteString(versionKey + ": " + strconv.Itoa(Version) + "\n")
	for i, v := range f.values() {
		sb.WriteString(Keys[i])
		sb.WriteString(": ")
		sb.WriteString(escape(strings.TrimSpace(v)))
		sb.WriteString("\n")
	}
	sb.WriteString(Delimiter + "\n\n")
	return sb.String()
}

// Heading returns the title heading injected above the body.
func Heading(title string) string {
	return "# " + strings.ReplaceAll(title, "\n", " ")
}

// Render returns a complete artifact: block, title heading, blank line, body.
func Render(f Fields, body string) []byte {
	var sb strings.Builder
	sb.WriteString(Encode(f))
	sb.WriteString(Heading(f.Title))
	sb.WriteString("\n\n")
	sb.WriteString(body)
	return []byte(sb.String())
}

// Parse splits an artifact into metadata, heading and body. It never fails:
// malformed lines are skipped and a missing block leaves every field empty.
func Parse(data []byte) Document {
	doc := Document{
		Present: make(map[string]bool),
		Extra:   make(map[string]string),
	}

	block, rest, ok := splitBlock(data)
	if !ok {
		doc.Body = string(data)
		return doc
	}
	doc.HasFrontMatter = true

	raw := make(map[string]string)
	var order []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimRight(line, "\r")
		i := strings.Index(line, ":")
		if i <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:i])
		if key == "" {
			continue
		}
		if _, dup := raw[key]; !dup {
			order = append(order, key)
		}
		raw[key] = strings.TrimSpace(line[i+1:])
	}

	if v, ok := raw[versionKey]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			doc.Version = n
		}
	}
	for _, key := range order {
		if key == versionKey {
			continue
		}
		value := raw[key]
		if doc.Version >= 1 {
			value = unescape(value)
		}
		if doc.Fields.set(key, value) {
			doc.Present[key] = true
		} else {
			doc.Extra[key] = value
		}
	}

	doc.Heading, doc.Body = splitHeading(rest)
	return doc
}

// splitBlock separates the block between leading delimiters from the rest.
// The single blank line written after the closing delimiter is consumed.
func splitBlock(data []byte) (string, string, bool) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	first, after, found := bytes.Cut(trimmed, []byte("\n"))
	if !found || strings.TrimRight(string(first), "\r") != Delimiter {
		return "", "", false
	}

	var block []string
	rest := after
	for len(rest) > 0 {
		var line []byte
		line, rest, _ = bytes.Cut(rest, []byte("\n"))
		if strings.TrimRight(string(line), "\r") == Delimiter {
			body := string(rest)
			if strings.HasPrefix(body, "\r\n") {
				body = body[2:]
			} else if strings.HasPrefix(body, "\n") {
				body = body[1:]
			}
			return strings.Join(block, "\n"), body, true
		}
		block = append(block, string(line))
	}
	// No closing delimiter.
	return "", "", false
}

// splitHeading removes a leading H1 line plus the blank line after it.
func splitHeading(rest string) (string, string) {
	line, after, found := strings.Cut(rest, "\n")
	if !strings.HasPrefix(line, "# ") {
		return "", rest
	}
	if !found {
		return line, ""
	}
	return line, strings.TrimPrefix(after, "\n")
}

func escape(s string) string {
	if !strings.ContainsAny(s, "\\\n\r") {
		return s
	}
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			sb.WriteByte(c)
			continue
		}
		switch s[i+1] {
		case '\\':
			sb.WriteByte('\\')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		default:
			sb.WriteByte(c)
			sb.WriteByte(s[i+1])
		}
		i++
	}
	return sb.String()
}
