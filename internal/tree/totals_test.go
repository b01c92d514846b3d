package tree

import (
	"fmt"
	"testing"

	"github.com/mr1hm/go-alert-relationships/internal/models"
)

func TestComputeTotals_TwoChildrenWithOneChildEach(t *testing.T) {
	alerts := []models.FlatAlert{
		{ID: "n"},
		{ID: "c1", ParentID: "n"},
		{ID: "c2", ParentID: "n"},
		{ID: "g1", ParentID: "c1"},
		{ID: "g2", ParentID: "c2"},
	}
	root := Treeify(alerts, nil)

	ComputeTotals(root)

	n := root.Children[0]
	if n.TotalChildren != 4 {
		t.Errorf("expected total(n) = 4, got %d", n.TotalChildren)
	}
	if root.TotalChildren != 5 {
		t.Errorf("expected root total 5, got %d", root.TotalChildren)
	}
	for _, c := range n.Children {
		if c.TotalChildren != 1 {
			t.Errorf("expected total(%s) = 1, got %d", c.ID, c.TotalChildren)
		}
		if c.Children[0].TotalChildren != 0 {
			t.Errorf("expected leaf total 0, got %d", c.Children[0].TotalChildren)
		}
	}
}

func TestComputeTotals_Idempotent(t *testing.T) {
	alerts := []models.FlatAlert{
		{ID: "a"}, {ID: "b", ParentID: "a"}, {ID: "c", ParentID: "b"}, {ID: "d"},
	}
	root := Treeify(alerts, nil)

	first := ComputeTotals(root)
	snapshot := collectTotals(root)
	second := ComputeTotals(root)

	if first != second {
		t.Errorf("expected %d, got %d", first, second)
	}
	for id, total := range collectTotals(root) {
		if snapshot[id] != total {
			t.Errorf("total for %s changed from %d to %d", id, snapshot[id], total)
		}
	}
}

func TestComputeTotals_ReflectsMutation(t *testing.T) {
	root := Treeify([]models.FlatAlert{{ID: "a"}, {ID: "b", ParentID: "a"}}, nil)
	ComputeTotals(root)

	a := root.Children[0]
	a.Children = append(a.Children, models.NewNode(models.FlatAlert{ID: "c"}))

	if got := ComputeTotals(root); got != 3 {
		t.Errorf("expected 3 after mutation, got %d", got)
	}
	if a.TotalChildren != 2 {
		t.Errorf("expected a total 2, got %d", a.TotalChildren)
	}
}

func TestComputeTotals_NilChildren(t *testing.T) {
	root := &models.AlertNode{Children: []*models.AlertNode{
		{ID: "a", Children: nil},
		nil,
	}}

	if got := ComputeTotals(root); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
	if root.Children[0].Children == nil {
		t.Error("expected nil children replaced with empty slice")
	}
	if ComputeTotals(nil) != 0 {
		t.Error("expected 0 for nil root")
	}
}

func TestComputeTotals_DeepChain(t *testing.T) {
	const depth = 100000
	alerts := make([]models.FlatAlert, depth)
	for i := range alerts {
		alerts[i] = models.FlatAlert{ID: fmt.Sprintf("n%d", i)}
		if i > 0 {
			alerts[i].ParentID = fmt.Sprintf("n%d", i-1)
		}
	}
	root := Treeify(alerts, nil)

	if got := ComputeTotals(root); got != depth {
		t.Errorf("expected %d, got %d", depth, got)
	}
	if got := len(Flatten(root)); got != depth {
		t.Errorf("expected %d flattened, got %d", depth, got)
	}
}

func collectTotals(root *models.AlertNode) map[string]int {
	out := make(map[string]int)
	stack := []*models.AlertNode{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out[n.ID] = n.TotalChildren
		stack = append(stack, n.Children...)
	}
	return out
}
