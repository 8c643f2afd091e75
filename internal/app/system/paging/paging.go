// internal/app/system/paging/paging.go
package paging

import (
	"net/http"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PageSize is the number of rows returned per page of a list endpoint.
const PageSize = 50

// Page is one page of a keyset-paginated list. Next and Prev are opaque
// cursors for the "after" and "before" query parameters.
type Page[T any] struct {
	Items []T    `json:"items"`
	Next  string `json:"next,omitempty"`
	Prev  string `json:"prev,omitempty"`
}

// Query is a decoded paging request over (sortField, _id).
type Query struct {
	backward bool
	cursor   *wafflemongo.Cursor
	hasAfter bool
	size     int
}

// FromRequest reads the "before" and "after" cursors. "before" wins when
// both are present. Undecodable cursors are ignored (first page).
func FromRequest(r *http.Request) Query {
	return New(query.Get(r, "before"), query.Get(r, "after"))
}

// New builds a Query from raw cursor strings.
func New(before, after string) Query {
	q := Query{size: PageSize}
	switch {
	case before != "":
		q.backward = true
		if c, ok := wafflemongo.DecodeCursor(before); ok {
			q.cursor = &c
		}
	case after != "":
		q.hasAfter = true
		if c, ok := wafflemongo.DecodeCursor(after); ok {
			q.cursor = &c
		}
	}
	return q
}

// WithSize overrides the page size.
func (q Query) WithSize(n int) Query {
	if n > 0 {
		q.size = n
	}
	return q
}

// Apply adds the keyset window on sortField to filter, if there is a cursor.
func (q Query) Apply(filter bson.M, sortField string) {
	if q.cursor == nil {
		return
	}
	dir := "gt"
	if q.backward {
		dir = "lt"
	}
	for k, v := range wafflemongo.KeysetWindow(sortField, dir, q.cursor.CI, q.cursor.ID) {
		filter[k] = v
	}
}

// FindOptions sorts on (sortField, _id) in the paging direction and fetches
// one extra row to detect another page.
func (q Query) FindOptions(sortField string) *options.FindOptions {
	order := 1
	if q.backward {
		order = -1
	}
	return options.Find().
		SetSort(bson.D{{Key: sortField, Value: order}, {Key: "_id", Value: order}}).
		SetLimit(int64(q.size + 1))
}

// Finish trims the look-ahead row, restores ascending order and builds the
// neighbouring cursors.
func Finish[T any](rows []T, q Query, key func(T) string, id func(T) primitive.ObjectID) Page[T] {
	more := len(rows) > q.size
	if more {
		rows = rows[:q.size]
	}
	if q.backward {
		reverse(rows)
	}
	if rows == nil {
		rows = []T{}
	}

	p := Page[T]{Items: rows}
	if len(rows) == 0 {
		return p
	}

	hasPrev := q.hasAfter || (q.backward && more)
	hasNext := q.backward || more

	first, last := rows[0], rows[len(rows)-1]
	if hasPrev {
		p.Prev = wafflemongo.EncodeCursor(key(first), id(first))
	}
	if hasNext {
		p.Next = wafflemongo.EncodeCursor(key(last), id(last))
	}
	return p
}

func reverse[T any](rows []T) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
