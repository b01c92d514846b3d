package tree

import "github.com/mr1hm/go-alert-relationships/internal/models"

// Index maps alert ids to nodes of one tree and remembers each node's parent.
// It must be rebuilt after the tree's shape changes.
type Index struct {
	nodes   map[string]*models.AlertNode
	parents map[*models.AlertNode]*models.AlertNode
}

func NewIndex(root *models.AlertNode) *Index {
	ix := &Index{
		nodes:   make(map[string]*models.AlertNode),
		parents: make(map[*models.AlertNode]*models.AlertNode),
	}
	if root == nil {
		return ix
	}

	stack := []*models.AlertNode{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !n.IsContainer() {
			if _, ok := ix.nodes[n.ID]; !ok {
				ix.nodes[n.ID] = n
			}
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			if c := n.Children[i]; c != nil {
				ix.parents[c] = n
				stack = append(stack, c)
			}
		}
	}

	return ix
}

func (ix *Index) Node(id string) (*models.AlertNode, bool) {
	n, ok := ix.nodes[id]
	return n, ok
}

// Parent returns n's parent, or nil for the root.
func (ix *Index) Parent(n *models.AlertNode) *models.AlertNode {
	return ix.parents[n]
}

// IsDescendant reports whether n lies in the subtree rooted at ancestor,
// counting ancestor itself.
func (ix *Index) IsDescendant(n, ancestor *models.AlertNode) bool {
	for cur := n; cur != nil; cur = ix.parents[cur] {
		if cur == ancestor {
			return true
		}
	}
	return false
}

func (ix *Index) Len() int {
	return len(ix.nodes)
}
