package repository

import (
	"context"

	"github.com/mr1hm/go-alert-relationships/internal/models"
)

type Filter struct {
	Limit  int
	Offset int
	Site   *string
	System *string
}

type AlertTypeRepository interface {
	UpsertAlertType(ctx context.Context, t *models.AlertTypeRecord) error
	ListAlertTypes(ctx context.Context) ([]models.AlertTypeRecord, error)
}

type AlertRepository interface {
	AddAlert(ctx context.Context, a *models.FlatAlert) error
	// AddAlertIfAbsent reports whether a was inserted.
	AddAlertIfAbsent(ctx context.Context, a *models.FlatAlert) (bool, error)
	ListAlerts(ctx context.Context, opts Filter) ([]models.FlatAlert, error)
}

// TemplateRepository stores templates by name. GetTemplate returns nil, nil
// for an unknown name.
type TemplateRepository interface {
	GetTemplate(ctx context.Context, name string) (*models.Template, error)
	SaveTemplate(ctx context.Context, t *models.Template) error
	ListTemplates(ctx context.Context) ([]string, error)
}

type Store interface {
	AlertTypeRepository
	AlertRepository
	TemplateRepository
}
