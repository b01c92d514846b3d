package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mr1hm/go-alert-relationships/internal/models"
)

func setupTestDB(t *testing.T) *SQLiteDB {
	db, err := NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	return db
}

func TestSQLiteDB_AlertTypes(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	deleted := time.Now().UTC()
	types := []*models.AlertTypeRecord{
		{ID: "t2", AlertType: "disk_full", System: "db", Message: "disk above 95%", RelatedIDs: []string{"t1"}},
		{ID: "t1", AlertType: "host_down", System: "infra"},
		{ID: "t3", AlertType: "retired", DeletedAt: &deleted},
	}
	for _, typ := range types {
		if err := db.UpsertAlertType(ctx, typ); err != nil {
			t.Fatalf("UpsertAlertType failed: %v", err)
		}
	}

	got, err := db.ListAlertTypes(ctx)
	if err != nil {
		t.Fatalf("ListAlertTypes failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 live alert types, got %d", len(got))
	}
	if got[0].ID != "t1" || got[1].ID != "t2" {
		t.Errorf("expected ordering by id, got %s, %s", got[0].ID, got[1].ID)
	}
	if diff := cmp.Diff([]string{"t1"}, got[1].RelatedIDs); diff != "" {
		t.Errorf("related ids mismatch (-want +got):\n%s", diff)
	}
	if len(got[0].RelatedIDs) != 0 {
		t.Errorf("expected empty related ids, got %v", got[0].RelatedIDs)
	}
	if got[1].CreatedAt.IsZero() {
		t.Error("expected created_at defaulted")
	}

	// upsert replaces fields
	if err := db.UpsertAlertType(ctx, &models.AlertTypeRecord{ID: "t1", AlertType: "host_down", System: "compute"}); err != nil {
		t.Fatalf("UpsertAlertType failed: %v", err)
	}
	got, _ = db.ListAlertTypes(ctx)
	if got[0].System != "compute" {
		t.Errorf("expected system updated, got %q", got[0].System)
	}
}

func TestSQLiteDB_Alerts(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	alerts := []models.FlatAlert{
		{ID: "a3", Name: "io", ParentID: "a2", Site: "nyc", System: "db"},
		{ID: "a1", Name: "host", Site: "nyc", System: "infra"},
		{ID: "a2", Name: "disk", ParentID: "a1", Site: "sfo", System: "db"},
	}
	for i := range alerts {
		if err := db.AddAlert(ctx, &alerts[i]); err != nil {
			t.Fatalf("AddAlert failed: %v", err)
		}
	}

	got, err := db.ListAlerts(ctx, Filter{})
	if err != nil {
		t.Fatalf("ListAlerts failed: %v", err)
	}
	if diff := cmp.Diff(alerts, got); diff != "" {
		t.Errorf("expected insertion order (-want +got):\n%s", diff)
	}

	site := "nyc"
	got, _ = db.ListAlerts(ctx, Filter{Site: &site})
	if len(got) != 2 {
		t.Errorf("expected 2 alerts in nyc, got %d", len(got))
	}

	system := "db"
	got, _ = db.ListAlerts(ctx, Filter{Site: &site, System: &system})
	if len(got) != 1 || got[0].ID != "a3" {
		t.Errorf("expected only a3, got %+v", got)
	}

	got, _ = db.ListAlerts(ctx, Filter{Limit: 1, Offset: 1})
	if len(got) != 1 || got[0].ID != "a1" {
		t.Errorf("expected a1 at offset 1, got %+v", got)
	}
}

func TestSQLiteDB_AddAlertIfAbsent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	linked := models.FlatAlert{ID: "d1", ParentID: "h1", Name: "disk", Site: "ams"}
	if err := db.AddAlert(ctx, &linked); err != nil {
		t.Fatalf("AddAlert failed: %v", err)
	}

	inserted, err := db.AddAlertIfAbsent(ctx, &models.FlatAlert{ID: "d1", Name: "disk", Site: "ams"})
	if err != nil {
		t.Fatalf("AddAlertIfAbsent failed: %v", err)
	}
	if inserted {
		t.Error("expected existing alert to be left alone")
	}

	inserted, err = db.AddAlertIfAbsent(ctx, &models.FlatAlert{ID: "h1", Name: "host", Site: "ams"})
	if err != nil || !inserted {
		t.Fatalf("expected h1 inserted, got %v, %v", inserted, err)
	}

	got, _ := db.ListAlerts(ctx, Filter{})
	want := []models.FlatAlert{linked, {ID: "h1", Name: "host", Site: "ams"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("alerts mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteDB_Templates(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	got, err := db.GetTemplate(ctx, "missing")
	if err != nil {
		t.Fatalf("GetTemplate failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing template, got %+v", got)
	}

	tpl := &models.Template{
		Name: "outage",
		Bindings: []models.Binding{
			{ParentTypeID: "t1", ChildTypeID: "t2"},
			{ParentTypeID: "t2", ChildTypeID: "t3"},
		},
		Alerts: []models.FlatAlert{
			{ID: "a1", Name: "host"},
			{ID: "a2", ParentID: "a1", Name: "disk"},
		},
	}
	if err := db.SaveTemplate(ctx, tpl); err != nil {
		t.Fatalf("SaveTemplate failed: %v", err)
	}

	got, err = db.GetTemplate(ctx, "outage")
	if err != nil {
		t.Fatalf("GetTemplate failed: %v", err)
	}
	if diff := cmp.Diff(tpl.Bindings, got.Bindings); diff != "" {
		t.Errorf("bindings mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(tpl.Alerts, got.Alerts); diff != "" {
		t.Errorf("alerts mismatch (-want +got):\n%s", diff)
	}

	// saving again replaces bindings and alerts
	tpl.Bindings = tpl.Bindings[:1]
	tpl.Alerts = nil
	if err := db.SaveTemplate(ctx, tpl); err != nil {
		t.Fatalf("SaveTemplate failed: %v", err)
	}
	got, _ = db.GetTemplate(ctx, "outage")
	if len(got.Bindings) != 1 || len(got.Alerts) != 0 {
		t.Errorf("expected replaced template, got %+v", got)
	}

	db.SaveTemplate(ctx, &models.Template{Name: "maintenance"})
	names, err := db.ListTemplates(ctx)
	if err != nil {
		t.Fatalf("ListTemplates failed: %v", err)
	}
	if diff := cmp.Diff([]string{"maintenance", "outage"}, names); diff != "" {
		t.Errorf("template names mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteDB_Ping(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}
