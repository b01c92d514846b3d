// Package selection projects the selected alert into the fields an edit form
// shows. It never mutates the tree.
package selection

import (
	"sync"

	"github.com/mr1hm/go-alert-relationships/internal/models"
)

// NodeSource looks up a node of the current tree by id.
type NodeSource interface {
	SelectNode(id string) (*models.AlertNode, error)
}

// Selection is the read-only view of one alert.
type Selection struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AlertTypeID string `json:"alert_type_id"`
	Message     string `json:"message"`
	System      string `json:"system"`
}

type Controller struct {
	source NodeSource

	mu      sync.RWMutex
	current *Selection
}

func New(source NodeSource) *Controller {
	return &Controller{source: source}
}

// Select looks up id and makes it the current selection. On error the
// previous selection is kept.
func (c *Controller) Select(id string) (Selection, error) {
	n, err := c.source.SelectNode(id)
	if err != nil {
		return Selection{}, err
	}

	sel := Project(n)
	c.mu.Lock()
	c.current = &sel
	c.mu.Unlock()
	return sel, nil
}

// Current returns the last successful selection.
func (c *Controller) Current() (Selection, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return Selection{}, false
	}
	return *c.current, true
}

func (c *Controller) Clear() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}

// Project builds the selection for n. The message and system fall back to
// the alert type's when the node has none of its own.
func Project(n *models.AlertNode) Selection {
	sel := Selection{
		ID:          n.ID,
		Name:        n.Name,
		AlertTypeID: n.AlertTypeID,
		Message:     n.Message,
		System:      n.System,
	}
	if n.AlertType != nil {
		if sel.Message == "" {
			sel.Message = n.AlertType.Message
		}
		if sel.System == "" {
			sel.System = n.AlertType.System
		}
	}
	return sel
}
