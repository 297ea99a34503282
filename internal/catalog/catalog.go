package catalog

import "github.com/starford/noteport/internal/models"

// Catalog is the capability the export engine records its state through.
// The engine is handed either a *Store or Null at startup.
type Catalog interface {
	UpsertNotebook(nb models.Notebook) error
	UpsertSection(sec models.Section) error
	UpsertPage(p models.Page) error
	// UpsertAssets replaces every asset row of pageID with assets.
	UpsertAssets(pageID string, assets []models.Asset) error
	// GetPageState returns nil when the page has never been recorded.
	GetPageState(pageID string) (*models.PageState, error)
	SetJSONLPath(pageID, path string) error
	SetMergedPath(pageID, path string) error
	// FindNotebook returns the recorded notebook with the given slug, or nil.
	FindNotebook(slug string) (*models.Notebook, error)
	Commit() error
	// Rollback discards every write since the last Commit.
	Rollback() error
	Close() error
}

var (
	_ Catalog = (*Store)(nil)
	_ Catalog = Null{}
)

// Null is the Catalog used when cataloging is disabled. It records nothing and
// never reports prior state, so every page is rendered.
type Null struct{}

func (Null) UpsertNotebook(models.Notebook) error { return nil }
func (Null) UpsertSection(models.Section) error { return nil }
func (Null) UpsertPage(models.Page) error { return nil }
func (Null) UpsertAssets(string, []models.Asset) error { return nil }
func (Null) GetPageState(string) (*models.PageState, error) { return nil, nil }
func (Null) SetJSONLPath(string, string) error { return nil }
func (Null) SetMergedPath(string, string) error { return nil }
func (Null) FindNotebook(string) (*models.Notebook, error) { return nil, nil }
func (Null) Commit() error { return nil }
func (Null) Rollback() error { return nil }
func (Null) Close() error { return nil }
