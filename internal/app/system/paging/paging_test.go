package paging_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/washhub/internal/app/system/paging"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type row struct {
	ID   primitive.ObjectID
	Name string
}

func rows(n int) []row {
	out := make([]row, n)
	for i := range out {
		out[i] = row{ID: primitive.NewObjectID(), Name: string(rune('a' + i))}
	}
	return out
}

func key(r row) string { return r.Name }
func id(r row) primitive.ObjectID { return r.ID }

func TestFinish(t *testing.T) {
	cursor := wafflemongo.EncodeCursor("m", primitive.NewObjectID())

	tests := []struct {
		name     string
		q        paging.Query
		fetched  int
		wantLen  int
		wantNext bool
		wantPrev bool
	}{
		{"first page, more", paging.New("", "").WithSize(3), 4, 3, true, false},
		{"first page, last", paging.New("", "").WithSize(3), 2, 2, false, false},
		{"after, more", paging.New("", cursor).WithSize(3), 4, 3, true, true},
		{"after, last", paging.New("", cursor).WithSize(3), 3, 3, false, true},
		{"before, more", paging.New(cursor, "").WithSize(3), 4, 3, true, true},
		{"before, first", paging.New(cursor, "").WithSize(3), 2, 2, true, false},
		{"empty", paging.New("", "").WithSize(3), 0, 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := paging.Finish(rows(tt.fetched), tt.q, key, id)
			if len(p.Items) != tt.wantLen {
				t.Errorf("len: got %d, want %d", len(p.Items), tt.wantLen)
			}
			if (p.Next != "") != tt.wantNext {
				t.Errorf("next: got %q, want present=%v", p.Next, tt.wantNext)
			}
			if (p.Prev != "") != tt.wantPrev {
				t.Errorf("prev: got %q, want present=%v", p.Prev, tt.wantPrev)
			}
			if p.Items == nil {
				t.Error("Items must not be nil")
			}
		})
	}
}

func TestFinish_BackwardRestoresOrder(t *testing.T) {
	// Fetched descending when paging backward.
	in := []row{{ID: primitive.NewObjectID(), Name: "c"}, {ID: primitive.NewObjectID(), Name: "b"}, {ID: primitive.NewObjectID(), Name: "a"}}
	cursor := wafflemongo.EncodeCursor("d", primitive.NewObjectID())

	p := paging.Finish(in, paging.New(cursor, "").WithSize(2), key, id)
	if len(p.Items) != 2 || p.Items[0].Name != "b" || p.Items[1].Name != "c" {
		t.Errorf("items: got %+v, want [b c]", p.Items)
	}
}

func TestApplyAndFindOptions(t *testing.T) {
	filter := bson.M{"workspace_id": primitive.NewObjectID()}
	paging.New("", "").Apply(filter, "name_ci")
	if len(filter) != 1 {
		t.Errorf("first page should not add a window, got %v", filter)
	}

	cursor := wafflemongo.EncodeCursor("m", primitive.NewObjectID())
	paging.New("", cursor).Apply(filter, "name_ci")
	if len(filter) < 2 {
		t.Errorf("cursor should add a window, got %v", filter)
	}

	opts := paging.New(cursor, "").WithSize(10).FindOptions("name_ci")
	if opts.Limit == nil || *opts.Limit != 11 {
		t.Errorf("limit: got %v, want 11", opts.Limit)
	}
	sort, ok := opts.Sort.(bson.D)
	if !ok || len(sort) != 2 || sort[0].Value != -1 {
		t.Errorf("sort: got %v, want descending on name_ci,_id", opts.Sort)
	}
}

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/customers?after=garbage", nil)
	q := paging.FromRequest(r)
	filter := bson.M{}
	q.Apply(filter, "name_ci")
	if len(filter) != 0 {
		t.Errorf("undecodable cursor should be ignored, got %v", filter)
	}
}
