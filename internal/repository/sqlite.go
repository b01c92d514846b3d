package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mr1hm/go-alert-relationships/internal/models"

	_ "modernc.org/sqlite"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// an in-memory database exists per connection
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS alert_types (
			id TEXT PRIMARY KEY,
			alert_type TEXT NOT NULL,
			system TEXT,
			message TEXT,
			related_ids TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			deleted_at DATETIME
		);

		CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			parent_id TEXT,
			name TEXT NOT NULL,
			alert_type_id TEXT,
			site TEXT,
			system TEXT,
			message TEXT,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS templates (
			name TEXT PRIMARY KEY,
			alerts TEXT NOT NULL DEFAULT '[]',
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS template_bindings (
			template TEXT NOT NULL,
			position INTEGER NOT NULL,
			parent_type_id TEXT NOT NULL,
			child_type_id TEXT NOT NULL,
			PRIMARY KEY (template, parent_type_id, child_type_id),
			FOREIGN KEY (template) REFERENCES templates(name)
		);

		CREATE INDEX IF NOT EXISTS idx_alerts_site ON alerts(site);
		CREATE INDEX IF NOT EXISTS idx_alerts_parent_id ON alerts(parent_id);
  	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func (s *SQLiteDB) UpsertAlertType(ctx context.Context, t *models.AlertTypeRecord) error {
	related := t.RelatedIDs
	if related == nil {
		related = []string{}
	}
	relatedJSON, err := json.Marshal(related)
	if err != nil {
		return fmt.Errorf("error encoding related ids: %w", err)
	}

	now := time.Now().UTC()
	createdAt, updatedAt := t.CreatedAt, t.UpdatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	if updatedAt.IsZero() {
		updatedAt = now
	}
	var deletedAt sql.NullTime
	if t.DeletedAt != nil {
		deletedAt = sql.NullTime{Time: *t.DeletedAt, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alert_types (id, alert_type, system, message, related_ids, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			alert_type = excluded.alert_type,
			system = excluded.system,
			message = excluded.message,
			related_ids = excluded.related_ids,
			updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at`,
		t.ID, t.AlertType, t.System, t.Message, string(relatedJSON), createdAt, updatedAt, deletedAt,
	)
	if err != nil {
		return fmt.Errorf("error upserting alert type %s: %w", t.ID, err)
	}
	return nil
}

// ListAlertTypes returns alert types that have not been deleted.
func (s *SQLiteDB) ListAlertTypes(ctx context.Context) ([]models.AlertTypeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, alert_type, system, message, related_ids, created_at, updated_at, deleted_at
		FROM alert_types
		WHERE deleted_at IS NULL
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("error querying alert types: %w", err)
	}
	defer rows.Close()

	types := []models.AlertTypeRecord{}
	for rows.Next() {
		var (
			t           models.AlertTypeRecord
			system      sql.NullString
			message     sql.NullString
			relatedJSON string
			deletedAt   sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.AlertType, &system, &message, &relatedJSON, &t.CreatedAt, &t.UpdatedAt, &deletedAt); err != nil {
			return nil, fmt.Errorf("error scanning alert type: %w", err)
		}
		t.System = system.String
		t.Message = message.String
		if err := json.Unmarshal([]byte(relatedJSON), &t.RelatedIDs); err != nil {
			return nil, fmt.Errorf("error decoding related ids of %s: %w", t.ID, err)
		}
		if deletedAt.Valid {
			d := deletedAt.Time
			t.DeletedAt = &d
		}
		types = append(types, t)
	}

	return types, rows.Err()
}

func (s *SQLiteDB) AddAlert(ctx context.Context, a *models.FlatAlert) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, parent_id, name, alert_type_id, site, system, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			parent_id = excluded.parent_id,
			name = excluded.name,
			alert_type_id = excluded.alert_type_id,
			site = excluded.site,
			system = excluded.system,
			message = excluded.message`,
		a.ID, a.ParentID, a.Name, a.AlertTypeID, a.Site, a.System, a.Message, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("error adding alert %s: %w", a.ID, err)
	}
	return nil
}

// AddAlertIfAbsent inserts a unless an alert with its id already exists, in
// which case the stored row is left untouched.
func (s *SQLiteDB) AddAlertIfAbsent(ctx context.Context, a *models.FlatAlert) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, parent_id, name, alert_type_id, site, system, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		a.ID, a.ParentID, a.Name, a.AlertTypeID, a.Site, a.System, a.Message, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("error adding alert %s: %w", a.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error adding alert %s: %w", a.ID, err)
	}
	return n > 0, nil
}

// ListAlerts returns alerts in insertion order.
func (s *SQLiteDB) ListAlerts(ctx context.Context, opts Filter) ([]models.FlatAlert, error) {
	var (
		where []string
		args  []any
	)
	if opts.Site != nil {
		where = append(where, "site = ?")
		args = append(args, *opts.Site)
	}
	if opts.System != nil {
		where = append(where, "system = ?")
		args = append(args, *opts.System)
	}

	query := "SELECT id, parent_id, name, alert_type_id, site, system, message FROM alerts"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY rowid"
	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying alerts: %w", err)
	}
	defer rows.Close()

	alerts := []models.FlatAlert{}
	for rows.Next() {
		var a models.FlatAlert
		var parentID, alertTypeID, site, system, message sql.NullString
		if err := rows.Scan(&a.ID, &parentID, &a.Name, &alertTypeID, &site, &system, &message); err != nil {
			return nil, fmt.Errorf("error scanning alert: %w", err)
		}
		a.ParentID = parentID.String
		a.AlertTypeID = alertTypeID.String
		a.Site = site.String
		a.System = system.String
		a.Message = message.String
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}

func (s *SQLiteDB) GetTemplate(ctx context.Context, name string) (*models.Template, error) {
	var (
		alertsJSON string
		updatedAt  time.Time
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT alerts, updated_at FROM templates WHERE name = ?", name,
	).Scan(&alertsJSON, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying template %s: %w", name, err)
	}

	t := &models.Template{Name: name, UpdatedAt: updatedAt}
	if t.Alerts, err = models.DecodeAlerts(alertsJSON); err != nil {
		return nil, fmt.Errorf("error decoding alerts of template %s: %w", name, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT parent_type_id, child_type_id
		FROM template_bindings
		WHERE template = ?
		ORDER BY position`, name)
	if err != nil {
		return nil, fmt.Errorf("error querying bindings of template %s: %w", name, err)
	}
	defer rows.Close()

	t.Bindings = []models.Binding{}
	for rows.Next() {
		var b models.Binding
		if err := rows.Scan(&b.ParentTypeID, &b.ChildTypeID); err != nil {
			return nil, fmt.Errorf("error scanning binding: %w", err)
		}
		t.Bindings = append(t.Bindings, b)
	}

	return t, rows.Err()
}

// SaveTemplate replaces the template's alerts and bindings in one
// transaction.
func (s *SQLiteDB) SaveTemplate(ctx context.Context, t *models.Template) error {
	alertsJSON, err := models.EncodeAlerts(t.Alerts)
	if err != nil {
		return fmt.Errorf("error encoding alerts of template %s: %w", t.Name, err)
	}
	updatedAt := t.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO templates (name, alerts, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET alerts = excluded.alerts, updated_at = excluded.updated_at`,
		t.Name, alertsJSON, updatedAt,
	); err != nil {
		return fmt.Errorf("error saving template %s: %w", t.Name, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM template_bindings WHERE template = ?", t.Name); err != nil {
		return fmt.Errorf("error clearing bindings of template %s: %w", t.Name, err)
	}
	for i, b := range t.Bindings {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO template_bindings (template, position, parent_type_id, child_type_id)
			VALUES (?, ?, ?, ?)`,
			t.Name, i, b.ParentTypeID, b.ChildTypeID,
		); err != nil {
			return fmt.Errorf("error saving binding of template %s: %w", t.Name, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteDB) ListTemplates(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM templates ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("error querying templates: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("error scanning template: %w", err)
		}
		names = append(names, name)
	}

	return names, rows.Err()
}
