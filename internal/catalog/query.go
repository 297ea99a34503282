package catalog

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/noteport/internal/apperr"
	"github.com/starford/noteport/internal/models"
)

const pageColumns = `id, section_id, notebook_id, title, slug, created, modified,
	md_path, merged_path, jsonl_path, content_hash, word_count, page_order`

type scanner interface {
	Scan(dest ...any) error
}

func scanPage(row scanner) (models.Page, error) {
	var p models.Page
	err := row.Scan(&p.ID, &p.SectionID, &p.NotebookID, &p.Title, &p.Slug, &p.Created, &p.Modified,
		&p.MDPath, &p.MergedPath, &p.JSONLPath, &p.ContentHash, &p.WordCount, &p.PageOrder)
	return p, err
}

// ListNotebooks returns every notebook ordered by name.
func (s *Store) ListNotebooks() ([]models.Notebook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.reader()
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(`SELECT id, name, slug, created, modified FROM notebooks ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list notebooks: %w", err)
	}
	defer rows.Close()

	var out []models.Notebook
	for rows.Next() {
		var nb models.Notebook
		if err := rows.Scan(&nb.ID, &nb.Name, &nb.Slug, &nb.Created, &nb.Modified); err != nil {
			return nil, err
		}
		out = append(out, nb)
	}
	return out, rows.Err()
}

// FindNotebook returns the notebook recorded under slug, preferring the
// first by id when several share it. It returns nil when there is none.
func (s *Store) FindNotebook(slug string) (*models.Notebook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.reader()
	if err != nil {
		return nil, err
	}
	var nb models.Notebook
	err = q.QueryRow(`SELECT id, name, slug, created, modified FROM notebooks WHERE slug = ? ORDER BY id LIMIT 1`, slug).
		Scan(&nb.ID, &nb.Name, &nb.Slug, &nb.Created, &nb.Modified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: find notebook: %w", err)
	}
	return &nb, nil
}

// ListPages returns pages in export order, optionally limited to one notebook,
// together with the total number of matching rows.
func (s *Store) ListPages(notebookID string, limit, offset int) ([]models.Page, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.reader()
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := q.QueryRow(`SELECT count(*) FROM pages WHERE (? = '' OR notebook_id = ?)`, notebookID, notebookID).
		Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("catalog: count pages: %w", err)
	}

	rows, err := q.Query(`SELECT `+pageColumns+` FROM pages
		WHERE (? = '' OR notebook_id = ?)
		ORDER BY notebook_id, section_id, page_order, title
		LIMIT ? OFFSET ?`, notebookID, notebookID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list pages: %w", err)
	}
	defer rows.Close()

	var out []models.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// GetPage returns a full page row or apperr.ErrNotFound.
func (s *Store) GetPage(id string) (*models.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.reader()
	if err != nil {
		return nil, err
	}
	p, err := scanPage(q.QueryRow(`SELECT `+pageColumns+` FROM pages WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get page: %w", err)
	}
	return &p, nil
}

// PageAssets returns the asset rows of a page ordered by relative path.
func (s *Store) PageAssets(pageID string) ([]models.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.reader()
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(`SELECT page_id, rel_path, mime_type, size_bytes, sha256
		FROM assets WHERE page_id = ? ORDER BY rel_path`, pageID)
	if err != nil {
		return nil, fmt.Errorf("catalog: page assets: %w", err)
	}
	defer rows.Close()

	var out []models.Asset
	for rows.Next() {
		var a models.Asset
		if err := rows.Scan(&a.PageID, &a.RelPath, &a.MimeType, &a.SizeBytes, &a.SHA256); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SearchPages matches query against page titles and slugs.
func (s *Store) SearchPages(query string, limit int) ([]models.Page, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"

	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.reader()
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(`SELECT `+pageColumns+` FROM pages
		WHERE title LIKE ? OR slug LIKE ?
		ORDER BY title
		LIMIT ?`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: search: %w", err)
	}
	defer rows.Close()

	var out []models.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
