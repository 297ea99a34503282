package models

import "time"

// IndexEntry is one element of index.json, in traversal order.
type IndexEntry struct {
	Notebook  string `json:"notebook"`
	Section   string `json:"section"`
	SectionID string `json:"section_id"`
	Title     string `json:"title"`
	PageID    string `json:"page_id"`
	Created   string `json:"created"`
	Modified  string `json:"modified"`
	Path      string `json:"path"`
	WebURL    string `json:"web_url"`
	ClientURL string `json:"client_url"`
}

// CorpusRecord is one line of a section.jsonl or <notebook>-pages.jsonl file.
// Content is the artifact as read back from disk.
type CorpusRecord struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Notebook string `json:"notebook"`
	Section  string `json:"section"`
	Created  string `json:"created"`
	Modified string `json:"modified"`
	Content  string `json:"content"`
}

// FileMetadata is a lightweight description of a file under the export root.
type FileMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}
