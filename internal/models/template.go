package models

import "time"

// Binding declares that alerts of ParentTypeID adopt alerts of ChildTypeID
// within a template.
type Binding struct {
	ParentTypeID string `json:"parent_type_id" yaml:"parent"`
	ChildTypeID  string `json:"child_type_id" yaml:"child"`
}

type Template struct {
	Name      string
	Bindings  []Binding
	Alerts    []FlatAlert // last saved flat list
	UpdatedAt time.Time
}

// TemplateEvent is published whenever a template is saved.
type TemplateEvent struct {
	Template  string    `json:"template"`
	Alerts    int       `json:"alerts"`
	Bindings  int       `json:"bindings"`
	Timestamp time.Time `json:"timestamp"`
}
