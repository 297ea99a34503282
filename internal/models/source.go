package models

// NotebookDescriptor is a notebook as reported by the content source.
type NotebookDescriptor struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Created  string `json:"created"`
	Modified string `json:"modified"`
}

// SectionDescriptor is a section as reported by the content source.
type SectionDescriptor struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Created  string `json:"created"`
	Modified string `json:"modified"`
}

// PageDescriptor is a page as reported by the content source. Modified is the
// raw remote timestamp and is compared verbatim against the catalog.
type PageDescriptor struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Created   string `json:"created"`
	Modified  string `json:"modified"`
	WebURL    string `json:"web_url"`
	ClientURL string `json:"client_url"`
}
