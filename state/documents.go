// Package state holds client-side views of backend data: the document
// list, the loaded knowledge graph and user settings. Each is an explicit
// object the caller creates; all are safe for concurrent use.
package state

import (
	"cmp"
	"slices"
	"sync"

	"github.com/sweetpotato0/ragdeck/api"
)

// Sortable document fields.
const (
	SortByCreated  = "created_at"
	SortByUpdated  = "updated_at"
	SortByID       = "id"
	SortByFilePath = "file_path"
	SortByLength   = "content_length"
	SortByStatus   = "status"
)

// Documents is the client-side document list with a selection.
type Documents struct {
	mu           sync.RWMutex
	docs         []api.Document
	selected     map[string]struct{}
	statusCounts map[string]int
	loading      bool
}

// NewDocuments creates an empty list.
func NewDocuments() *Documents {
	return &Documents{selected: make(map[string]struct{})}
}

// Set replaces the list. Selected IDs no longer present are dropped.
func (d *Documents) Set(docs []api.Document) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.docs = slices.Clone(docs)
	present := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		present[doc.ID] = struct{}{}
	}
	for id := range d.selected {
		if _, ok := present[id]; !ok {
			delete(d.selected, id)
		}
	}
}

// Add appends a document.
func (d *Documents) Add(doc api.Document) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.docs = append(d.docs, doc)
}

// Update applies fn to the document with id and reports whether it exists.
func (d *Documents) Update(id string, fn func(*api.Document)) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.docs {
		if d.docs[i].ID == id {
			fn(&d.docs[i])
			d.docs[i].ID = id
			return true
		}
	}
	return false
}

// Delete removes documents and their selection.
func (d *Documents) Delete(ids ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
		delete(d.selected, id)
	}
	d.docs = slices.DeleteFunc(d.docs, func(doc api.Document) bool {
		_, ok := drop[doc.ID]
		return ok
	})
}

// All returns a copy of the list.
func (d *Documents) All() []api.Document {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.docs)
}

// Get returns one document.
func (d *Documents) Get(id string) (api.Document, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, doc := range d.docs {
		if doc.ID == id {
			return doc, true
		}
	}
	return api.Document{}, false
}

// Len returns the number of documents.
func (d *Documents) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.docs)
}

// ToggleSelection flips the selection of id and returns the new state.
func (d *Documents) ToggleSelection(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.selected[id]; ok {
		delete(d.selected, id)
		return false
	}
	d.selected[id] = struct{}{}
	return true
}

// SelectAll replaces the selection with ids.
func (d *Documents) SelectAll(ids []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selected = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		d.selected[id] = struct{}{}
	}
}

// ClearSelection empties the selection.
func (d *Documents) ClearSelection() {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.selected)
}

// IsSelected reports whether id is selected.
func (d *Documents) IsSelected(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.selected[id]
	return ok
}

// Selected returns the selected IDs in sorted order.
func (d *Documents) Selected() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]string, 0, len(d.selected))
	for id := range d.selected {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// SetStatusCounts stores counts reported by the backend.
func (d *Documents) SetStatusCounts(counts map[string]int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.statusCounts = make(map[string]int, len(counts))
	for k, v := range counts {
		d.statusCounts[k] = v
	}
}

// StatusCounts returns the backend-reported counts when set, otherwise
// counts computed from the list.
func (d *Documents) StatusCounts() map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]int)
	if d.statusCounts != nil {
		for k, v := range d.statusCounts {
			out[k] = v
		}
		return out
	}
	for _, doc := range d.docs {
		out[string(doc.Status)]++
	}
	return out
}

// SetLoading marks a refresh in progress.
func (d *Documents) SetLoading(loading bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loading = loading
}

// Loading reports whether a refresh is in progress.
func (d *Documents) Loading() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loading
}

// Filter returns documents with status, or all documents for "".
func (d *Documents) Filter(status api.DocStatus) []api.Document {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return filter(d.docs, status)
}

func filter(docs []api.Document, status api.DocStatus) []api.Document {
	out := make([]api.Document, 0, len(docs))
	for _, doc := range docs {
		if status == "" || doc.Status == status {
			out = append(out, doc)
		}
	}
	return out
}

// Sorted returns a copy ordered by field. Unknown fields sort by update time.
// Ties keep list order.
func (d *Documents) Sorted(field string, dir api.SortDirection) []api.Document {
	docs := d.All()
	sortDocs(docs, field, dir)
	return docs
}

func sortDocs(docs []api.Document, field string, dir api.SortDirection) {
	compare := func(a, b api.Document) int {
		switch field {
		case SortByCreated:
			return cmp.Compare(a.CreatedAt, b.CreatedAt)
		case SortByID:
			return cmp.Compare(a.ID, b.ID)
		case SortByFilePath:
			return cmp.Compare(a.FilePath, b.FilePath)
		case SortByLength:
			return cmp.Compare(a.ContentLength, b.ContentLength)
		case SortByStatus:
			return cmp.Compare(statusRank(a.Status), statusRank(b.Status))
		default:
			return cmp.Compare(a.UpdatedAt, b.UpdatedAt)
		}
	}
	slices.SortStableFunc(docs, func(a, b api.Document) int {
		if dir == api.SortDesc {
			return compare(b, a)
		}
		return compare(a, b)
	})
}

func statusRank(s api.DocStatus) int {
	if i := slices.Index(api.DocStatuses, s); i >= 0 {
		return i
	}
	return len(api.DocStatuses)
}

// DefaultPageSize is used when a PageQuery leaves PageSize unset.
const DefaultPageSize = 10

// PageQuery selects one page of the local list.
type PageQuery struct {
	Page      int
	PageSize  int
	Status    api.DocStatus
	SortField string
	SortDir   api.SortDirection
}

// Page filters, sorts and slices the list the same way the backend's
// paginated endpoint does.
func (d *Documents) Page(q PageQuery) api.PaginatedDocsResponse {
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	d.mu.RLock()
	all := slices.Clone(d.docs)
	d.mu.RUnlock()

	counts := make(map[string]int)
	for _, doc := range all {
		counts[string(doc.Status)]++
	}

	docs := filter(all, q.Status)
	sortDocs(docs, q.SortField, q.SortDir)

	p := api.NewPagination(q.Page, q.PageSize, len(docs))
	start := (p.Page - 1) * p.PageSize
	if start > len(docs) {
		start = len(docs)
	}
	end := min(start+p.PageSize, len(docs))

	return api.PaginatedDocsResponse{
		Documents:    docs[start:end],
		Pagination:   p,
		StatusCounts: counts,
	}
}
