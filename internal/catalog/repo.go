package catalog

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/noteport/internal/apperr"
	"github.com/starford/noteport/internal/models"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// writer returns the run transaction, beginning it on first use.
// Callers must hold s.mu.
func (s *Store) writer() (querier, error) {
	if s.closed {
		return nil, apperr.ErrCatalogClosed
	}
	if s.tx == nil {
		tx, err := s.conn.Begin()
		if err != nil {
			return nil, fmt.Errorf("catalog: begin tx: %w", err)
		}
		s.tx = tx
	}
	return s.tx, nil
}

// reader returns the open transaction when there is one so uncommitted writes
// are visible. Callers must hold s.mu.
func (s *Store) reader() (querier, error) {
	if s.closed {
		return nil, apperr.ErrCatalogClosed
	}
	if s.tx != nil {
		return s.tx, nil
	}
	return s.conn, nil
}

func invalid(kind, id string, err error) error {
	return fmt.Errorf("catalog: %s %q: %w: %v", kind, id, apperr.ErrInvalidRecord, err)
}

// UpsertNotebook inserts the notebook or overwrites every field of the existing row.
func (s *Store) UpsertNotebook(nb models.Notebook) error {
	if err := nb.Validate(); err != nil {
		return invalid("notebook", nb.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.writer()
	if err != nil {
		return err
	}
	_, err = q.Exec(`
		INSERT INTO notebooks (id, name, slug, created, modified)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name     = excluded.name,
			slug     = excluded.slug,
			created  = excluded.created,
			modified = excluded.modified
	`, nb.ID, nb.Name, nb.Slug, nb.Created, nb.Modified)
	if err != nil {
		return fmt.Errorf("catalog: upsert notebook: %w", err)
	}
	return nil
}

// UpsertSection inserts the section or overwrites every field of the existing row.
func (s *Store) UpsertSection(sec models.Section) error {
	if err := sec.Validate(); err != nil {
		return invalid("section", sec.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.writer()
	if err != nil {
		return err
	}
	_, err = q.Exec(`
		INSERT INTO sections (id, notebook_id, name, slug, created, modified)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			notebook_id = excluded.notebook_id,
			name        = excluded.name,
			slug        = excluded.slug,
			created     = excluded.created,
			modified    = excluded.modified
	`, sec.ID, sec.NotebookID, sec.Name, sec.Slug, sec.Created, sec.Modified)
	if err != nil {
		return fmt.Errorf("catalog: upsert section: %w", err)
	}
	return nil
}

// UpsertPage inserts the page or overwrites every field of the existing row.
// There is no field-level merge: the supplied record wins.
func (s *Store) UpsertPage(p models.Page) error {
	if err := p.Validate(); err != nil {
		return invalid("page", p.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.writer()
	if err != nil {
		return err
	}
	_, err = q.Exec(`
		INSERT INTO pages (
			id, section_id, notebook_id, title, slug, created, modified,
			md_path, merged_path, jsonl_path, content_hash, word_count, page_order
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			section_id   = excluded.section_id,
			notebook_id  = excluded.notebook_id,
			title        = excluded.title,
			slug         = excluded.slug,
			created      = excluded.created,
			modified     = excluded.modified,
			md_path      = excluded.md_path,
			merged_path  = excluded.merged_path,
			jsonl_path   = excluded.jsonl_path,
			content_hash = excluded.content_hash,
			word_count   = excluded.word_count,
			page_order   = excluded.page_order
	`, p.ID, p.SectionID, p.NotebookID, p.Title, p.Slug, p.Created, p.Modified,
		p.MDPath, p.MergedPath, p.JSONLPath, p.ContentHash, p.WordCount, p.PageOrder)
	if err != nil {
		return fmt.Errorf("catalog: upsert page: %w", err)
	}
	return nil
}

// UpsertAssets replaces the asset rows of a page: delete then bulk insert.
// Entries without a relative path are dropped.
func (s *Store) UpsertAssets(pageID string, assets []models.Asset) error {
	if pageID == "" {
		return invalid("assets", pageID, errors.New("page id is required"))
	}
	keep := make([]models.Asset, 0, len(assets))
	for _, a := range assets {
		if a.RelPath == "" {
			continue
		}
		if err := a.Validate(); err != nil {
			return invalid("asset", a.RelPath, err)
		}
		keep = append(keep, a)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.writer()
	if err != nil {
		return err
	}
	if _, err := q.Exec(`DELETE FROM assets WHERE page_id = ?`, pageID); err != nil {
		return fmt.Errorf("catalog: delete assets: %w", err)
	}
	for _, a := range keep {
		_, err := q.Exec(`
			INSERT INTO assets (page_id, rel_path, mime_type, size_bytes, sha256)
			VALUES (?, ?, ?, ?, ?)
		`, pageID, a.RelPath, a.MimeType, a.SizeBytes, a.SHA256)
		if err != nil {
			return fmt.Errorf("catalog: insert asset: %w", err)
		}
	}
	return nil
}

// GetPageState returns the last recorded modified timestamp and content hash
// of a page, or nil when the page is unknown.
func (s *Store) GetPageState(pageID string) (*models.PageState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.reader()
	if err != nil {
		return nil, err
	}
	var st models.PageState
	err = q.QueryRow(`SELECT id, modified, content_hash FROM pages WHERE id = ?`, pageID).
		Scan(&st.ID, &st.Modified, &st.ContentHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: page state: %w", err)
	}
	return &st, nil
}

// SetJSONLPath records the corpus file a page was last aggregated into.
func (s *Store) SetJSONLPath(pageID, path string) error {
	return s.setPath(`UPDATE pages SET jsonl_path = ? WHERE id = ?`, pageID, path)
}

// SetMergedPath records the compiled document a page was last merged into.
func (s *Store) SetMergedPath(pageID, path string) error {
	return s.setPath(`UPDATE pages SET merged_path = ? WHERE id = ?`, pageID, path)
}

func (s *Store) setPath(stmt, pageID, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.writer()
	if err != nil {
		return err
	}
	if _, err := q.Exec(stmt, path, pageID); err != nil {
		return fmt.Errorf("catalog: update path: %w", err)
	}
	return nil
}

// Commit makes every buffered write durable. Later writes open a new transaction.
func (s *Store) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return apperr.ErrCatalogClosed
	}
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("catalog: commit: %w", err)
	}
	return nil
}

// Rollback discards the run transaction, if any.
func (s *Store) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return apperr.ErrCatalogClosed
	}
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("catalog: rollback: %w", err)
	}
	return nil
}
