package render

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mr1hm/go-alert-relationships/internal/models"
	"github.com/mr1hm/go-alert-relationships/internal/tree"
)

type recordingCanvas struct {
	views []NodeView
	err   error
}

func (r *recordingCanvas) DrawNode(v NodeView) error {
	if r.err != nil {
		return r.err
	}
	r.views = append(r.views, v)
	return nil
}

func sampleTree() *models.AlertNode {
	root := tree.Treeify([]models.FlatAlert{
		{ID: "a", Name: "host", AlertTypeID: "t1"},
		{ID: "b", ParentID: "a", Name: "disk"},
		{ID: "c"},
	}, func(id string) *models.AlertTypeRecord {
		if id == "t1" {
			return &models.AlertTypeRecord{ID: "t1", AlertType: "host_down"}
		}
		return nil
	})
	tree.ComputeTotals(root)
	return root
}

func TestAdapter_Render(t *testing.T) {
	canvas := &recordingCanvas{}
	a := NewAdapter(canvas, nil)

	if err := a.Render(sampleTree()); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	want := []NodeView{
		{ID: "a", Label: "host", AlertType: "host_down", Depth: 0, Total: 1, Resolved: true},
		{ID: "b", Label: "disk", Depth: 1},
		{ID: "c", Label: "c", Depth: 0},
	}
	if diff := cmp.Diff(want, canvas.views); diff != "" {
		t.Errorf("views mismatch (-want +got):\n%s", diff)
	}
}

func TestAdapter_RenderCanvasError(t *testing.T) {
	boom := errors.New("boom")
	a := NewAdapter(&recordingCanvas{err: boom}, nil)

	if err := a.Render(sampleTree()); !errors.Is(err, boom) {
		t.Errorf("expected canvas error, got %v", err)
	}
}

func TestAdapter_Select(t *testing.T) {
	var selected []string
	a := NewAdapter(&recordingCanvas{}, func(id string) {
		selected = append(selected, id)
	})

	if err := a.Select("a"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("expected ErrUnknownNode before render, got %v", err)
	}

	a.Render(sampleTree())
	if err := a.Select("b"); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if diff := cmp.Diff([]string{"b"}, selected); diff != "" {
		t.Errorf("callback mismatch (-want +got):\n%s", diff)
	}

	a.Render(models.NewRoot())
	if err := a.Select("b"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("expected ErrUnknownNode after re-render, got %v", err)
	}
}

func TestTextCanvas(t *testing.T) {
	var buf bytes.Buffer
	a := NewAdapter(NewTextCanvas(&buf), nil)

	if err := a.Render(sampleTree()); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	want := "- host [host_down] (1) a\n" +
		"  - disk [?] (0) b\n" +
		"- c [?] (0) c\n"
	if buf.String() != want {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}
