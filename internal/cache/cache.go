package cache

import (
	"sort"
	"strings"
	"sync"

	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/models"
)

// View modes for the local filter. "pending" keeps only orders whose
// lifecycle state is not done; "all" (or empty) keeps everything.
const (
	ModePending = "pending"
	ModeAll     = "all"
)

// RowCache holds the most recently fetched order set. It is replaced
// wholesale on each full load and mutated in place only for the
// optimistic status patch after a successful action. Single writer
// (the load/patch path); readers get copies.
type RowCache struct {
	mu   sync.RWMutex
	rows []models.OrderRecord
}

func New() *RowCache { return &RowCache{} }

// Replace swaps the entire row set and re-sorts it by id descending
// so the newest order is always first.
func (c *RowCache) Replace(rows []models.OrderRecord) {
	sorted := make([]models.OrderRecord, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID > sorted[j].ID })

	c.mu.Lock()
	c.rows = sorted
	c.mu.Unlock()
}

// Snapshot returns a copy of the cached rows in display order.
func (c *RowCache) Snapshot() []models.OrderRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.OrderRecord, len(c.rows))
	copy(out, c.rows)
	return out
}

// Len returns the cached row count.
func (c *RowCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rows)
}

// Filter returns the rows whose searchable fields (HN, patient name,
// department, requester) contain the query, case-insensitively, after
// applying the mode filter. An empty query matches everything.
func (c *RowCache) Filter(mode, query string) []models.OrderRecord {
	query = strings.ToLower(strings.TrimSpace(query))

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.OrderRecord, 0, len(c.rows))
	for _, r := range c.rows {
		if mode == ModePending && r.State() == models.StateDone {
			continue
		}
		if query != "" && !matches(&r, query) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matches(r *models.OrderRecord, query string) bool {
	haystack := strings.ToLower(strings.Join([]string{
		r.HN, r.PatientName, r.Department, r.Requester,
	}, " "))
	return strings.Contains(haystack, query)
}

// Page returns the first offset+limit rows of the filtered set.
// Paging is cumulative ("load more" extends the visible prefix), so a
// larger window never drops rows the user has already seen.
func Page(rows []models.OrderRecord, offset, limit int) []models.OrderRecord {
	if limit <= 0 {
		return rows
	}
	if offset < 0 {
		offset = 0
	}
	n := offset + limit
	if n > len(rows) {
		n = len(rows)
	}
	return rows[:n]
}

// PatchStatus overwrites the status of the record with the given id.
// Missing ids are a no-op; the reconciling full reload will catch up.
func (c *RowCache) PatchStatus(id int64, status string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.rows {
		if c.rows[i].ID == id {
			c.rows[i].Status = status
			return true
		}
	}
	return false
}

// Find returns the cached record with the given id.
func (c *RowCache) Find(id int64) (models.OrderRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.rows {
		if c.rows[i].ID == id {
			return c.rows[i], true
		}
	}
	return models.OrderRecord{}, false
}

// CountNonDone counts cached rows that have not reached the terminal
// state. Used as the degraded pending count when the backend count
// is unavailable.
func (c *RowCache) CountNonDone() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for i := range c.rows {
		if c.rows[i].State() != models.StateDone {
			n++
		}
	}
	return n
}
