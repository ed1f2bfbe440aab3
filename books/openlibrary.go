package books

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"estante/common"
	"estante/metrics"
)

const untitled = "Untitled"

// OpenLibrary implements Catalog against the openlibrary.org JSON API.
type OpenLibrary struct {
	baseURL   string
	coversURL string
	client    *http.Client
}

func NewOpenLibrary(baseURL, coversURL string, timeout time.Duration) *OpenLibrary {
	return &OpenLibrary{
		baseURL:   strings.TrimRight(baseURL, "/"),
		coversURL: strings.TrimRight(coversURL, "/"),
		client:    &http.Client{Timeout: timeout},
	}
}

// Lookup fetches a work by id. The first listed author is resolved with a
// second request; if that fails the author is left empty.
func (o *OpenLibrary) Lookup(ctx context.Context, id string) (*CatalogEntry, error) {
	body, status, err := o.get(ctx, "lookup", "/works/"+url.PathEscape(id)+".json", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUpstreamUnavailable, err)
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("work %s: %w", id, common.ErrUnknownBook)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: work %s returned status %d", common.ErrUpstreamUnavailable, id, status)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: work %s returned malformed json", common.ErrUpstreamUnavailable, id)
	}

	work := gjson.ParseBytes(body)
	entry := &CatalogEntry{
		ID:    id,
		Title: work.Get("title").String(),
	}
	if entry.Title == "" {
		entry.Title = untitled
	}
	if coverID := work.Get("covers.0").Int(); coverID > 0 {
		entry.CoverURL = o.coverURL(coverID)
	}
	if authorKey := work.Get("authors.0.author.key").String(); authorKey != "" {
		entry.Author = o.authorName(ctx, authorKey)
	}
	return entry, nil
}

// Search runs a free-text query and keeps only results that are works.
func (o *OpenLibrary) Search(ctx context.Context, query string, limit int) ([]CatalogEntry, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))

	body, status, err := o.get(ctx, "search", "/search.json", params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUpstreamUnavailable, err)
	}
	if status != http.StatusOK || !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: search returned status %d", common.ErrUpstreamUnavailable, status)
	}

	var entries []CatalogEntry
	gjson.GetBytes(body, "docs").ForEach(func(_, doc gjson.Result) bool {
		if len(entries) >= limit {
			return false
		}

		key := doc.Get("key").String() // e.g. "/works/OL82563W"
		if !strings.HasPrefix(key, "/works/") {
			return true
		}

		entry := CatalogEntry{
			ID:    strings.TrimPrefix(key, "/works/"),
			Title: doc.Get("title").String(),
		}
		if entry.Title == "" {
			entry.Title = untitled
		}

		var names []string
		for _, name := range doc.Get("author_name").Array() {
			if len(names) == 3 {
				break
			}
			names = append(names, name.String())
		}
		if len(names) > 0 {
			authors := strings.Join(names, "; ")
			entry.Author = &authors
		}

		if coverID := doc.Get("cover_i").Int(); coverID > 0 {
			entry.CoverURL = o.coverURL(coverID)
		}

		entries = append(entries, entry)
		return true
	})

	return entries, nil
}

func (o *OpenLibrary) authorName(ctx context.Context, key string) *string {
	body, status, err := o.get(ctx, "author", key+".json", nil)
	if err != nil || status != http.StatusOK {
		return nil
	}
	name := gjson.GetBytes(body, "name").String()
	if name == "" {
		return nil
	}
	return &name
}

func (o *OpenLibrary) coverURL(coverID int64) *string {
	u := fmt.Sprintf("%s/b/id/%d-L.jpg", o.coversURL, coverID)
	return &u
}

func (o *OpenLibrary) get(ctx context.Context, operation, path string, params url.Values) ([]byte, int, error) {
	target := o.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := o.client.Do(req)
	metrics.ObserveCatalogRequest(operation, time.Since(start))
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}
