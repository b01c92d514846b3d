package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mr1hm/go-alert-relationships/internal/models"
	"github.com/mr1hm/go-alert-relationships/internal/repository"
)

func TestLoad_Builtin(t *testing.T) {
	d, err := Load(BuiltinPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(d.AlertTypes) != 3 || len(d.Templates) != 1 || len(d.Alerts) != 4 {
		t.Fatalf("unexpected builtin data: %d types, %d templates, %d alerts",
			len(d.AlertTypes), len(d.Templates), len(d.Alerts))
	}
	want := []models.Binding{
		{ParentTypeID: "host_down", ChildTypeID: "disk_full"},
		{ParentTypeID: "host_down", ChildTypeID: "service_unreachable"},
	}
	if diff := cmp.Diff(want, d.Templates[0].Bindings); diff != "" {
		t.Errorf("bindings mismatch (-want +got):\n%s", diff)
	}
	if d.Alerts[1].ParentID != "ams-host-01" || d.Alerts[1].AlertTypeID != "disk_full" {
		t.Errorf("unexpected alert %+v", d.Alerts[1])
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	content := "alert_types:\n  - id: t1\n    system: db\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(d.AlertTypes) != 1 || d.AlertTypes[0].System != "db" {
		t.Errorf("unexpected data %+v", d)
	}
}

func TestLoad_TooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(strings.Repeat("#", MaxFileSize+1)), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "alert_types: [\n"},
		{"type without id", "alert_types:\n  - system: db\n"},
		{"duplicate type", "alert_types:\n  - id: a\n  - id: a\n"},
		{"template without name", "templates:\n  - bindings: []\n"},
		{"incomplete binding", "templates:\n  - name: x\n    bindings:\n      - parent: a\n"},
		{"alert without id", "alerts:\n  - name: x\n"},
		{"duplicate alert", "alerts:\n  - id: a\n  - id: a\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestApply(t *testing.T) {
	db, err := repository.NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	d, err := Load(BuiltinPath)
	if err != nil {
		t.Fatal(err)
	}

	res, err := d.Apply(ctx, db)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if res != (Result{AlertTypes: 3, Templates: 1, Alerts: 4}) {
		t.Errorf("unexpected result %+v", res)
	}

	types, _ := db.ListAlertTypes(ctx)
	if len(types) != 3 {
		t.Errorf("expected 3 alert types, got %d", len(types))
	}
	alerts, _ := db.ListAlerts(ctx, repository.Filter{})
	if len(alerts) != 4 {
		t.Errorf("expected 4 alerts, got %d", len(alerts))
	}
}

func TestApply_KeepsExistingTemplates(t *testing.T) {
	db, err := repository.NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	saved := []models.FlatAlert{{ID: "x", Name: "kept"}}
	if err := db.SaveTemplate(ctx, &models.Template{Name: "host-outage", Alerts: saved}); err != nil {
		t.Fatal(err)
	}

	d, _ := Load(BuiltinPath)
	res, err := d.Apply(ctx, db)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if res.Templates != 0 {
		t.Errorf("expected existing template skipped, got %d created", res.Templates)
	}

	got, err := db.GetTemplate(ctx, "host-outage")
	if err != nil || got == nil {
		t.Fatalf("GetTemplate failed: %v", err)
	}
	if len(got.Bindings) != 0 || len(got.Alerts) != 1 {
		t.Errorf("expected saved template untouched, got %+v", got)
	}
}

func TestApply_KeepsRuntimeParentLinks(t *testing.T) {
	db, err := repository.NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	d, _ := Load(BuiltinPath)
	if _, err := d.Apply(ctx, db); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	// relink the way the alert sync worker does after a template save
	relinked := models.FlatAlert{ID: "fra-disk-07", ParentID: "ams-host-01", Name: "moved", Site: "fra"}
	if err := db.AddAlert(ctx, &relinked); err != nil {
		t.Fatal(err)
	}

	res, err := d.Apply(ctx, db)
	if err != nil {
		t.Fatalf("second Apply failed: %v", err)
	}
	if res.Alerts != 0 {
		t.Errorf("expected no alerts inserted on restart, got %d", res.Alerts)
	}

	alerts, _ := db.ListAlerts(ctx, repository.Filter{})
	for _, a := range alerts {
		if a.ID == "fra-disk-07" {
			if a != relinked {
				t.Errorf("expected runtime link kept, got %+v", a)
			}
			return
		}
	}
	t.Error("fra-disk-07 missing")
}
