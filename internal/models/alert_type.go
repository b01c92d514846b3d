package models

import "time"

// AlertTypeRecord defines a kind of alert. Records are immutable once fetched.
type AlertTypeRecord struct {
	ID         string     `json:"id" yaml:"id"`
	CreatedAt  time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" yaml:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at" yaml:"deleted_at"`
	System     string     `json:"system" yaml:"system"`
	Message    string     `json:"message" yaml:"message"`
	RelatedIDs []string   `json:"related_ids" yaml:"related_ids"`
	AlertType  string     `json:"alert_type" yaml:"alert_type"`
}
