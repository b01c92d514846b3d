package models

// FlatAlert is one entry of a flat alert list, the wire and storage shape of
// an alert. ParentID is the linkage key; empty means top-level.
type FlatAlert struct {
	ID          string `json:"id" yaml:"id"`
	ParentID    string `json:"parent_id" yaml:"parent_id"`
	Name        string `json:"name" yaml:"name"`
	AlertTypeID string `json:"alert_type_id" yaml:"alert_type_id"`
	Site        string `json:"site" yaml:"site"`
	System      string `json:"system" yaml:"system"`
	Message     string `json:"message" yaml:"message"`
}

// AlertNode is an alert placed in a relationship tree.
//
// The root of every tree is a container node with an empty ID whose children
// are the top-level alerts. Children is never nil on a normalized tree.
type AlertNode struct {
	ID            string           `json:"id"`
	ParentID      string           `json:"parent_id"`
	Name          string           `json:"name"`
	AlertTypeID   string           `json:"alert_type_id"`
	Site          string           `json:"site"`
	System        string           `json:"system"`
	Message       string           `json:"message"`
	AlertType     *AlertTypeRecord `json:"alert_type"`
	TotalChildren int              `json:"total_children"`
	Children      []*AlertNode     `json:"children"`
}

// NewRoot returns an empty container root.
func NewRoot() *AlertNode {
	return &AlertNode{Children: []*AlertNode{}}
}

func NewNode(a FlatAlert) *AlertNode {
	return &AlertNode{
		ID:          a.ID,
		ParentID:    a.ParentID,
		Name:        a.Name,
		AlertTypeID: a.AlertTypeID,
		Site:        a.Site,
		System:      a.System,
		Message:     a.Message,
		Children:    []*AlertNode{},
	}
}

// IsContainer reports whether n is a tree root that carries no alert.
func (n *AlertNode) IsContainer() bool {
	return n.ID == ""
}

// Flat returns the node's payload without its children.
func (n *AlertNode) Flat() FlatAlert {
	return FlatAlert{
		ID:          n.ID,
		ParentID:    n.ParentID,
		Name:        n.Name,
		AlertTypeID: n.AlertTypeID,
		Site:        n.Site,
		System:      n.System,
		Message:     n.Message,
	}
}
