// Package seed loads alert types, templates and alerts from YAML and writes
// them to a repository on startup.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mr1hm/go-alert-relationships/internal/models"
	"github.com/mr1hm/go-alert-relationships/internal/repository"
)

// MaxFileSize caps seed files read from disk.
const MaxFileSize = 1024 * 1024

// BuiltinPath selects the embedded demo data instead of a file.
const BuiltinPath = "builtin"

//go:embed default.yaml
var defaultYAML []byte

var ErrInvalid = errors.New("invalid seed data")

type Template struct {
	Name     string           `yaml:"name"`
	Bindings []models.Binding `yaml:"bindings"`
}

type Data struct {
	AlertTypes []models.AlertTypeRecord `yaml:"alert_types"`
	Templates  []Template               `yaml:"templates"`
	Alerts     []models.FlatAlert       `yaml:"alerts"`
}

// Result counts what Apply wrote.
type Result struct {
	AlertTypes int
	Templates  int
	Alerts     int
}

// Load reads seed data from path, or the embedded demo data when path is
// BuiltinPath.
func Load(path string) (*Data, error) {
	if path == BuiltinPath {
		return Parse(defaultYAML)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening seed file: %w", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("error reading seed file: %w", err)
	}
	if len(raw) > MaxFileSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrInvalid, path, MaxFileSize)
	}

	return Parse(raw)
}

func Parse(raw []byte) (*Data, error) {
	var d Data
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

func (d *Data) validate() error {
	types := make(map[string]bool, len(d.AlertTypes))
	for i, t := range d.AlertTypes {
		if t.ID == "" {
			return fmt.Errorf("%w: alert type %d has no id", ErrInvalid, i)
		}
		if types[t.ID] {
			return fmt.Errorf("%w: duplicate alert type %s", ErrInvalid, t.ID)
		}
		types[t.ID] = true
	}

	for i, t := range d.Templates {
		if t.Name == "" {
			return fmt.Errorf("%w: template %d has no name", ErrInvalid, i)
		}
		for _, b := range t.Bindings {
			if b.ParentTypeID == "" || b.ChildTypeID == "" {
				return fmt.Errorf("%w: template %s has an incomplete binding", ErrInvalid, t.Name)
			}
		}
	}

	alerts := make(map[string]bool, len(d.Alerts))
	for i, a := range d.Alerts {
		if a.ID == "" {
			return fmt.Errorf("%w: alert %d has no id", ErrInvalid, i)
		}
		if alerts[a.ID] {
			return fmt.Errorf("%w: duplicate alert %s", ErrInvalid, a.ID)
		}
		alerts[a.ID] = true
	}

	return nil
}

// Apply upserts alert types. Alerts and templates are only created when
// absent, so parent links and edits written at runtime survive a restart.
func (d *Data) Apply(ctx context.Context, repo repository.Store) (Result, error) {
	var res Result

	for i := range d.AlertTypes {
		if err := repo.UpsertAlertType(ctx, &d.AlertTypes[i]); err != nil {
			return res, err
		}
		res.AlertTypes++
	}

	for i := range d.Alerts {
		inserted, err := repo.AddAlertIfAbsent(ctx, &d.Alerts[i])
		if err != nil {
			return res, err
		}
		if inserted {
			res.Alerts++
		}
	}

	for _, t := range d.Templates {
		existing, err := repo.GetTemplate(ctx, t.Name)
		if err != nil {
			return res, err
		}
		if existing != nil {
			slog.Debug("template already present, skipping seed", "template", t.Name)
			continue
		}
		if err := repo.SaveTemplate(ctx, &models.Template{Name: t.Name, Bindings: t.Bindings}); err != nil {
			return res, err
		}
		res.Templates++
	}

	return res, nil
}
