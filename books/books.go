package books

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"estante/common"
	"estante/metrics"
	"estante/models"
)

const (
	defaultSearchLimit = 12
	maxSearchLimit     = 50
	maxBookIDLength    = 64
)

// BooksModule is the local cache of catalog records. Entries are created on
// first reference and never expire.
type BooksModule struct {
	db      *gorm.DB
	catalog Catalog
	log     logrus.FieldLogger
}

func NewBooksModule(db *gorm.DB, catalog Catalog, log logrus.FieldLogger) *BooksModule {
	return &BooksModule{
		db:      db,
		catalog: catalog,
		log:     log.WithField("module", "books"),
	}
}

func validateBookID(id string) error {
	if strings.TrimSpace(id) == "" || len(id) > maxBookIDLength {
		return common.Invalid("book id must be between 1 and %d characters", maxBookIDLength)
	}
	return nil
}

// Get returns the cached record without consulting the catalog.
func (m *BooksModule) Get(ctx context.Context, id string) (*models.Book, error) {
	var book models.Book
	if err := m.db.WithContext(ctx).Where("id = ?", id).First(&book).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("book %s: %w", id, common.ErrNotFound)
		}
		return nil, err
	}
	return &book, nil
}

// GetOrFetch returns the cached record for id, fetching and storing it on a
// miss. Cached records are returned as they are, without a refresh.
func (m *BooksModule) GetOrFetch(ctx context.Context, id string) (*models.Book, error) {
	if err := validateBookID(id); err != nil {
		return nil, err
	}

	book, err := m.Get(ctx, id)
	if err == nil {
		metrics.RecordCatalogLookup("hit")
		return book, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	// no transaction is open while the catalog is consulted
	entry, err := m.catalog.Lookup(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrUnknownBook):
			metrics.RecordCatalogLookup("unknown")
			return nil, err
		case errors.Is(err, common.ErrUpstreamUnavailable):
		default:
			err = fmt.Errorf("%w: %v", common.ErrUpstreamUnavailable, err)
		}
		metrics.RecordCatalogLookup("unavailable")
		return nil, err
	}

	fetched := models.Book{
		ID:       id,
		Title:    entry.Title,
		Author:   entry.Author,
		CoverURL: entry.CoverURL,
	}

	// insert-if-absent, then re-read: a concurrent fetch of the same id
	// converges on whichever row landed first
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fetched).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&fetched).Error
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordCatalogLookup("fetched")
	return &fetched, nil
}

// UpsertFromSearchResult overwrites the cached fields for id. Last write wins.
func (m *BooksModule) UpsertFromSearchResult(ctx context.Context, id, title string, author, coverURL *string) (*models.Book, error) {
	if err := validateBookID(id); err != nil {
		return nil, err
	}
	if strings.TrimSpace(title) == "" {
		return nil, common.Invalid("title is required")
	}

	book := models.Book{ID: id, Title: title, Author: author, CoverURL: coverURL}
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return upsertBook(tx, &book)
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// Search queries the catalog and refreshes the cache with every result.
func (m *BooksModule) Search(ctx context.Context, query string, limit int) ([]models.Book, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return nil, common.Invalid("query must have at least 2 characters")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	entries, err := m.catalog.Search(ctx, query, limit)
	if err != nil {
		if !errors.Is(err, common.ErrUpstreamUnavailable) {
			err = fmt.Errorf("%w: %v", common.ErrUpstreamUnavailable, err)
		}
		return nil, err
	}

	results := make([]models.Book, 0, len(entries))
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, entry := range entries {
			if validateBookID(entry.ID) != nil {
				continue
			}
			book := models.Book{ID: entry.ID, Title: entry.Title, Author: entry.Author, CoverURL: entry.CoverURL}
			if err := upsertBook(tx, &book); err != nil {
				return err
			}
			results = append(results, book)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func upsertBook(tx *gorm.DB, book *models.Book) error {
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "author", "cover_url", "updated_at"}),
	}).Create(book).Error
	if err != nil {
		return err
	}
	return tx.Where("id = ?", book.ID).First(book).Error
}
