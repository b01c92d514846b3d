// Package tree converts between flat alert lists and relationship trees and
// computes the aggregates shown next to each node.
package tree

import "github.com/mr1hm/go-alert-relationships/internal/models"

// ResolveFunc looks up an alert type by id, returning nil when it is unknown.
type ResolveFunc func(alertTypeID string) *models.AlertTypeRecord

const (
	unvisited uint8 = iota
	onPath
	done
)

// Treeify builds a tree from a flat list, linking records by ParentID.
//
// The returned root is a container whose children are the top-level alerts.
// A record becomes top-level when its parent is empty, unknown, itself, or
// when following parents from it loops back. Children keep input order, so
// the same list always yields the same tree.
func Treeify(alerts []models.FlatAlert, resolve ResolveFunc) *models.AlertNode {
	root := models.NewRoot()
	if len(alerts) == 0 {
		return root
	}

	nodes := make([]*models.AlertNode, len(alerts))
	first := make(map[string]int, len(alerts))
	for i, a := range alerts {
		n := models.NewNode(a)
		n.AlertType = lookup(resolve, a.AlertTypeID)
		nodes[i] = n
		if _, ok := first[a.ID]; !ok && a.ID != "" {
			first[a.ID] = i
		}
	}

	parents := make([]int, len(alerts))
	for i, a := range alerts {
		parents[i] = -1
		if a.ParentID == "" {
			continue
		}
		if p, ok := first[a.ParentID]; ok && p != i {
			parents[i] = p
		}
	}
	breakCycles(parents)

	for i, n := range nodes {
		p := parents[i]
		if p < 0 {
			n.ParentID = ""
			root.Children = append(root.Children, n)
			continue
		}
		n.ParentID = nodes[p].ID
		nodes[p].Children = append(nodes[p].Children, n)
	}

	return root
}

// breakCycles detaches one record from every parent loop. Each index is
// walked at most once.
func breakCycles(parents []int) {
	state := make([]uint8, len(parents))
	path := make([]int, 0, 16)

	for i := range parents {
		if state[i] != unvisited {
			continue
		}
		path = path[:0]
		j := i
		for j >= 0 && state[j] == unvisited {
			state[j] = onPath
			path = append(path, j)
			j = parents[j]
		}
		if j >= 0 && state[j] == onPath {
			parents[path[len(path)-1]] = -1
		}
		for _, k := range path {
			state[k] = done
		}
	}
}

type flattenFrame struct {
	node     *models.AlertNode
	parentID string
}

// Flatten walks the tree depth-first in pre-order and returns each node's
// payload. ParentID is taken from the node's position in the tree. A
// container root is not emitted.
func Flatten(root *models.AlertNode) []models.FlatAlert {
	out := []models.FlatAlert{}
	if root == nil {
		return out
	}

	stack := make([]flattenFrame, 0, len(root.Children)+1)
	if root.IsContainer() {
		stack = pushChildren(stack, root, "")
	} else {
		stack = append(stack, flattenFrame{node: root, parentID: root.ParentID})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		a := f.node.Flat()
		a.ParentID = f.parentID
		out = append(out, a)

		stack = pushChildren(stack, f.node, f.node.ID)
	}

	return out
}

// pushChildren pushes n's children in reverse so they pop in order.
func pushChildren(stack []flattenFrame, n *models.AlertNode, parentID string) []flattenFrame {
	for i := len(n.Children) - 1; i >= 0; i-- {
		if c := n.Children[i]; c != nil {
			stack = append(stack, flattenFrame{node: c, parentID: parentID})
		}
	}
	return stack
}

// Normalize prepares a tree received from elsewhere: nil children become
// empty, nil entries are dropped, ParentID follows tree position and missing
// alert types are resolved. A nil root yields an empty container.
func Normalize(root *models.AlertNode, resolve ResolveFunc) *models.AlertNode {
	if root == nil {
		return models.NewRoot()
	}
	if root.IsContainer() {
		root.ParentID = ""
	}

	stack := []*models.AlertNode{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.AlertType == nil && n.AlertTypeID != "" {
			n.AlertType = lookup(resolve, n.AlertTypeID)
		}

		kept := make([]*models.AlertNode, 0, len(n.Children))
		for _, c := range n.Children {
			if c == nil {
				continue
			}
			c.ParentID = n.ID
			kept = append(kept, c)
			stack = append(stack, c)
		}
		n.Children = kept
	}

	return root
}

// Clone returns a deep copy of the subtree rooted at n. Alert type records
// are shared since they are immutable.
func Clone(n *models.AlertNode) *models.AlertNode {
	if n == nil {
		return nil
	}
	c := *n
	c.Children = make([]*models.AlertNode, 0, len(n.Children))
	for _, child := range n.Children {
		if child != nil {
			c.Children = append(c.Children, Clone(child))
		}
	}
	return &c
}

func lookup(resolve ResolveFunc, id string) *models.AlertTypeRecord {
	if resolve == nil || id == "" {
		return nil
	}
	return resolve(id)
}
