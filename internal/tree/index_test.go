package tree

import (
	"testing"

	"github.com/mr1hm/go-alert-relationships/internal/models"
)

func TestIndex(t *testing.T) {
	root := Treeify([]models.FlatAlert{
		{ID: "a"}, {ID: "b", ParentID: "a"}, {ID: "c", ParentID: "b"}, {ID: "d"},
	}, nil)

	ix := NewIndex(root)

	if ix.Len() != 4 {
		t.Errorf("expected 4 nodes, got %d", ix.Len())
	}
	a, _ := ix.Node("a")
	c, ok := ix.Node("c")
	if !ok {
		t.Fatal("expected c indexed")
	}
	d, _ := ix.Node("d")
	if ix.Parent(a) != root {
		t.Error("expected a's parent to be the root")
	}
	if !ix.IsDescendant(c, a) {
		t.Error("expected c under a")
	}
	if ix.IsDescendant(c, d) {
		t.Error("did not expect c under d")
	}
	if !ix.IsDescendant(a, a) {
		t.Error("expected a node to count as its own descendant")
	}
	if _, ok := ix.Node("missing"); ok {
		t.Error("expected missing id not found")
	}
}
