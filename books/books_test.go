package books

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"estante/common"
	"estante/database"
	"estante/models"
)

// fakeCatalog serves entries from memory and counts lookups.
type fakeCatalog struct {
	mu       sync.Mutex
	entries  map[string]CatalogEntry
	results  []CatalogEntry
	err      error
	lookups  int
	searches int
}

func (f *fakeCatalog) Lookup(ctx context.Context, id string) (*CatalogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++

	if f.err != nil {
		return nil, f.err
	}
	entry, ok := f.entries[id]
	if !ok {
		return nil, common.ErrUnknownBook
	}
	return &entry, nil
}

func (f *fakeCatalog) Search(ctx context.Context, query string, limit int) ([]CatalogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches++

	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func strPtr(s string) *string { return &s }

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := common.OpenSQLite(":memory:", nil)
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	require.NoError(t, database.RunMigrations(db, logger))
	return db
}

func setupModule(t *testing.T, catalog *fakeCatalog) (*BooksModule, *gorm.DB) {
	db := setupTestDB(t)
	logger, _ := test.NewNullLogger()
	return NewBooksModule(db, catalog, logger), db
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{entries: map[string]CatalogEntry{
		"OL1W": {ID: "OL1W", Title: "Dom Casmurro", Author: strPtr("Machado de Assis"), CoverURL: strPtr("https://covers/1.jpg")},
	}}
}

func TestGetOrFetch_FetchesOnceThenServesCache(t *testing.T) {
	catalog := newFakeCatalog()
	m, db := setupModule(t, catalog)
	ctx := context.Background()

	book, err := m.GetOrFetch(ctx, "OL1W")
	require.NoError(t, err)
	assert.Equal(t, "Dom Casmurro", book.Title)
	require.NotNil(t, book.Author)
	assert.Equal(t, "Machado de Assis", *book.Author)

	// the catalog changes, the cache does not refresh
	catalog.entries["OL1W"] = CatalogEntry{ID: "OL1W", Title: "Renamed"}

	again, err := m.GetOrFetch(ctx, "OL1W")
	require.NoError(t, err)
	assert.Equal(t, "Dom Casmurro", again.Title)
	assert.Equal(t, 1, catalog.lookups)

	var n int64
	db.Model(&models.Book{}).Count(&n)
	assert.Equal(t, int64(1), n)
}

func TestGetOrFetch_UnknownBook(t *testing.T) {
	catalog := newFakeCatalog()
	m, db := setupModule(t, catalog)

	_, err := m.GetOrFetch(context.Background(), "OL404W")
	assert.ErrorIs(t, err, common.ErrUnknownBook)
	assert.Equal(t, common.KindNotFound, common.KindOf(err))

	var n int64
	db.Model(&models.Book{}).Count(&n)
	assert.Equal(t, int64(0), n)
}

func TestGetOrFetch_UpstreamUnavailableNotCached(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.err = errors.New("connection refused")
	m, _ := setupModule(t, catalog)
	ctx := context.Background()

	_, err := m.GetOrFetch(ctx, "OL1W")
	assert.ErrorIs(t, err, common.ErrUpstreamUnavailable)
	assert.Equal(t, common.KindUpstream, common.KindOf(err))

	// the failure is not remembered: the next call asks again
	catalog.err = nil
	book, err := m.GetOrFetch(ctx, "OL1W")
	require.NoError(t, err)
	assert.Equal(t, "Dom Casmurro", book.Title)
	assert.Equal(t, 2, catalog.lookups)
}

func TestGetOrFetch_InvalidID(t *testing.T) {
	m, _ := setupModule(t, newFakeCatalog())

	_, err := m.GetOrFetch(context.Background(), "  ")
	assert.Equal(t, common.KindValidation, common.KindOf(err))
}

func TestGetOrFetch_ConcurrentCallersShareOneRow(t *testing.T) {
	catalog := newFakeCatalog()
	m, db := setupModule(t, catalog)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.GetOrFetch(context.Background(), "OL1W")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}

	var n int64
	db.Model(&models.Book{}).Where("id = ?", "OL1W").Count(&n)
	assert.Equal(t, int64(1), n)
}

func TestUpsertFromSearchResult_LastWriteWins(t *testing.T) {
	catalog := newFakeCatalog()
	m, _ := setupModule(t, catalog)
	ctx := context.Background()

	_, err := m.GetOrFetch(ctx, "OL1W")
	require.NoError(t, err)

	book, err := m.UpsertFromSearchResult(ctx, "OL1W", "Dom Casmurro (2nd ed.)", nil, strPtr("https://covers/2.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "Dom Casmurro (2nd ed.)", book.Title)
	assert.Nil(t, book.Author)

	cached, err := m.GetOrFetch(ctx, "OL1W")
	require.NoError(t, err)
	assert.Equal(t, "Dom Casmurro (2nd ed.)", cached.Title)
	require.NotNil(t, cached.CoverURL)
	assert.Equal(t, "https://covers/2.jpg", *cached.CoverURL)

	created, err := m.UpsertFromSearchResult(ctx, "OL9W", "New Book", strPtr("Someone"), nil)
	require.NoError(t, err)
	assert.Equal(t, "OL9W", created.ID)
}

func TestSearch_UpsertsResults(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.results = []CatalogEntry{
		{ID: "OL1W", Title: "Dom Casmurro", Author: strPtr("Machado de Assis")},
		{ID: "OL2W", Title: "Memórias Póstumas de Brás Cubas"},
	}
	m, db := setupModule(t, catalog)
	ctx := context.Background()

	results, err := m.Search(ctx, "machado", 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "OL1W", results[0].ID)

	var n int64
	db.Model(&models.Book{}).Count(&n)
	assert.Equal(t, int64(2), n)

	// cached now, so no lookup is needed
	_, err = m.GetOrFetch(ctx, "OL2W")
	require.NoError(t, err)
	assert.Equal(t, 0, catalog.lookups)
}

func TestSearch_ShortQuery(t *testing.T) {
	catalog := newFakeCatalog()
	m, _ := setupModule(t, catalog)

	_, err := m.Search(context.Background(), "a", 0)
	assert.Equal(t, common.KindValidation, common.KindOf(err))
	assert.Equal(t, 0, catalog.searches)
}
