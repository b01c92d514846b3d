package tree

import "github.com/mr1hm/go-alert-relationships/internal/models"

type totalsFrame struct {
	node     *models.AlertNode
	expanded bool
}

// ComputeTotals sets TotalChildren on every node of the subtree to the number
// of nodes below it and returns the root's total.
//
// The walk is a single post-order pass with an explicit stack: every node is
// pushed once and its total is summed from its children's finished totals.
// Nil children are treated as empty and replaced with an empty slice.
func ComputeTotals(root *models.AlertNode) int {
	if root == nil {
		return 0
	}

	stack := []totalsFrame{{node: root}}
	for len(stack) > 0 {
		top := len(stack) - 1
		n := stack[top].node

		if !stack[top].expanded {
			stack[top].expanded = true
			if n.Children == nil {
				n.Children = []*models.AlertNode{}
			}
			for i := len(n.Children) - 1; i >= 0; i-- {
				if c := n.Children[i]; c != nil {
					stack = append(stack, totalsFrame{node: c})
				}
			}
			continue
		}

		stack = stack[:top]
		total := 0
		for _, c := range n.Children {
			if c != nil {
				total += 1 + c.TotalChildren
			}
		}
		n.TotalChildren = total
	}

	return root.TotalChildren
}
