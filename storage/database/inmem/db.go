package inmemdb

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/darpanintel/darpan/core"
	"github.com/darpanintel/darpan/core/analysis"
	"github.com/darpanintel/darpan/core/appointment"
	"github.com/darpanintel/darpan/core/checklist"
	"github.com/darpanintel/darpan/core/coe"
	"github.com/darpanintel/darpan/core/offerletter"
	"github.com/darpanintel/darpan/core/scholarship"
	"github.com/darpanintel/darpan/core/user"
)

// DB keeps every table behind a single lock so that multi-table writes are atomic.
type DB struct {
	mutex sync.RWMutex

	users        *table[user.User]
	scholarships *table[scholarship.Scholarship]
	analyses     *table[analysis.Analysis]
	offerLetters *table[offerletter.Info]
	coes         *table[coe.Info]
	appointments *table[appointment.Appointment]
	templates    *table[checklist.DocumentTemplate]
	checklists   *table[checklist.DocumentChecklist]
}

func Open() *DB {
	return &DB{
		users:        newTable[user.User](),
		scholarships: newTable[scholarship.Scholarship](),
		analyses:     newTable[analysis.Analysis](),
		offerLetters: newTable[offerletter.Info](),
		coes:         newTable[coe.Info](),
		appointments: newTable[appointment.Appointment](),
		templates:    newTable[checklist.DocumentTemplate](),
		checklists:   newTable[checklist.DocumentChecklist](),
	}
}

func newID() string { return uuid.New().String() }

// table is a map that remembers insertion order.
type table[T any] struct {
	rows map[string]T
	ids  []string
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]T)}
}

func (t *table[T]) insert(id string, row T) {
	t.rows[id] = row
	t.ids = append(t.ids, id)
}

func (t *table[T]) get(id string) (T, bool) {
	row, ok := t.rows[id]
	return row, ok
}

func (t *table[T]) set(id string, row T) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	t.rows[id] = row
	return true
}

func (t *table[T]) delete(ids []string) int {
	var n int
	for _, id := range ids {
		if _, ok := t.rows[id]; ok {
			delete(t.rows, id)
			n++
		}
	}
	if n > 0 {
		kept := t.ids[:0]
		for _, id := range t.ids {
			if _, ok := t.rows[id]; ok {
				kept = append(kept, id)
			}
		}
		t.ids = kept
	}
	return n
}

// filter returns the rows `keep` accepts, in insertion order.
func (t *table[T]) filter(keep func(T) bool) []T {
	out := make([]T, 0, len(t.ids))
	for _, id := range t.ids {
		if row := t.rows[id]; keep == nil || keep(row) {
			out = append(out, row)
		}
	}
	return out
}

// deleteWhere removes the rows `match` accepts and returns their IDs.
func (t *table[T]) deleteWhere(match func(T) bool) []string {
	var ids []string
	for _, id := range t.ids {
		if match(t.rows[id]) {
			ids = append(ids, id)
		}
	}
	t.delete(ids)
	return ids
}

// orderRows sorts the rows slice by `ordering`; cmp compares rows i and j on a column.
func orderRows(rows interface{}, ordering []core.DBOrdering, cmp func(i, j int, field string) int) {
	if len(ordering) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, ord := range ordering {
			c := cmp(i, j, ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func compareStrings(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func compareNumbers(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case b:
		return -1
	}
	return 1
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func inTimeRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}
