package mcpserver

// ArtifactFormatContract describes the export tree and the page artifact
// format so LLM consumers can read pages without guessing.
const ArtifactFormatContract = `# Noteport Artifact Format

Each notebook is exported to its own directory named after the notebook slug.

## Layout

` + "```" + `text
<notebook-slug>/
  pages/<page-slug>-<id8>.md     one artifact per page
  assets/<page_id>/<file>        resources extracted from that page
  <section-slug>/section.jsonl   one JSON object per page of the section
  <notebook-slug>-pages.jsonl    one JSON object per page of the notebook
  index.json                     array of every exported page
  <notebook-slug>-compiled.md    optional merged document (plus other formats)
` + "```" + `

- ` + "`" + `<id8>` + "`" + ` is the first 8 characters of the page id.
- Slugs are lowercase, hyphen separated, at most 80 characters; an empty slug is ` + "`" + `untitled` + "`" + `.

## Page artifact

` + "```" + `markdown
---
format_version: 1
notebook: Work
section: Meetings
section_id: 0-abc
title: Weekly standup
page_id: 0-def
created: 2025-01-20T09:00:00Z
modified: 2025-01-20T10:30:00Z
web_url: https://...
client_url: onenote:...
content_hash: <sha256 hex of the body>
---

# Weekly standup

Body in Markdown.
` + "```" + `

## Rules

1. The front matter is a list of ` + "`" + `key: value` + "`" + ` lines between two ` + "`" + `---` + "`" + ` lines.
   Keys always appear in the order shown above.
2. Since ` + "`" + `format_version: 1` + "`" + ` values are escaped: a backslash is ` + "`" + `\\` + "`" + `,
   a line feed is ` + "`" + `\n` + "`" + ` and a carriage return is ` + "`" + `\r` + "`" + `.
   Files without ` + "`" + `format_version` + "`" + ` are read verbatim.
3. The ` + "`" + `# <title>` + "`" + ` heading and the blank line after it are not part of the body.
4. ` + "`" + `content_hash` + "`" + ` is the SHA-256 of the body bytes only; front matter edits do not change it.
5. Images and attachments are referenced as ` + "`" + `../assets/<page_id>/<file>` + "`" + `.
   A reference that still points at a remote URL could not be downloaded.

## Listings

- ` + "`" + `index.json` + "`" + ` entries: ` + "`" + `notebook, section, section_id, title, page_id, created, modified, path, web_url, client_url` + "`" + `.
- JSONL records: ` + "`" + `id, title, notebook, section, created, modified, content` + "`" + `,
  where ` + "`" + `content` + "`" + ` is the full artifact text.
`
