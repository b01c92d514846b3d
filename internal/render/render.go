// Package render draws a relationship tree through a pluggable canvas and
// routes selections back to the caller.
package render

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mr1hm/go-alert-relationships/internal/models"
)

var ErrUnknownNode = errors.New("node was not rendered")

// NodeView is what a canvas needs to draw one alert.
type NodeView struct {
	ID        string
	Label     string
	AlertType string
	Depth     int
	Total     int
	Resolved  bool
}

// Canvas is the capability a rendering backend provides.
type Canvas interface {
	DrawNode(v NodeView) error
}

// Adapter draws trees on a Canvas and forwards selections of drawn nodes to
// OnSelect.
type Adapter struct {
	canvas   Canvas
	onSelect func(id string)
	drawn    map[string]struct{}
}

func NewAdapter(canvas Canvas, onSelect func(id string)) *Adapter {
	return &Adapter{
		canvas:   canvas,
		onSelect: onSelect,
		drawn:    make(map[string]struct{}),
	}
}

type renderFrame struct {
	node  *models.AlertNode
	depth int
}

// Render draws root's alerts in pre-order. A container root is not drawn.
func (a *Adapter) Render(root *models.AlertNode) error {
	a.drawn = make(map[string]struct{})
	if root == nil {
		return nil
	}

	var stack []renderFrame
	if root.IsContainer() {
		stack = pushChildren(stack, root, 0)
	} else {
		stack = append(stack, renderFrame{node: root})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := a.canvas.DrawNode(view(f.node, f.depth)); err != nil {
			return fmt.Errorf("error drawing node %s: %w", f.node.ID, err)
		}
		a.drawn[f.node.ID] = struct{}{}
		stack = pushChildren(stack, f.node, f.depth+1)
	}

	return nil
}

// Select forwards a selection of a node drawn by the last Render.
func (a *Adapter) Select(id string) error {
	if _, ok := a.drawn[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	if a.onSelect != nil {
		a.onSelect(id)
	}
	return nil
}

func pushChildren(stack []renderFrame, n *models.AlertNode, depth int) []renderFrame {
	for i := len(n.Children) - 1; i >= 0; i-- {
		if c := n.Children[i]; c != nil {
			stack = append(stack, renderFrame{node: c, depth: depth})
		}
	}
	return stack
}

func view(n *models.AlertNode, depth int) NodeView {
	v := NodeView{
		ID:    n.ID,
		Label: n.Name,
		Depth: depth,
		Total: n.TotalChildren,
	}
	if v.Label == "" {
		v.Label = n.ID
	}
	if n.AlertType != nil {
		v.AlertType = n.AlertType.AlertType
		v.Resolved = true
	}
	return v
}

// TextCanvas writes one indented line per node.
type TextCanvas struct {
	w io.Writer
}

func NewTextCanvas(w io.Writer) *TextCanvas {
	return &TextCanvas{w: w}
}

func (c *TextCanvas) DrawNode(v NodeView) error {
	kind := v.AlertType
	if !v.Resolved {
		kind = "?"
	}
	_, err := fmt.Fprintf(c.w, "%s- %s [%s] (%d) %s\n", strings.Repeat("  ", v.Depth), v.Label, kind, v.Total, v.ID)
	return err
}
