package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mr1hm/go-alert-relationships/internal/binding"
	"github.com/mr1hm/go-alert-relationships/internal/events"
	"github.com/mr1hm/go-alert-relationships/internal/models"
	"github.com/mr1hm/go-alert-relationships/internal/repository"
	"github.com/mr1hm/go-alert-relationships/internal/tree"
)

const (
	defaultAlertLimit = 500
	maxAlertLimit     = 5000
)

// Resolver looks up alert types by id. A nil result means the type is unknown.
type Resolver interface {
	Resolve(ctx context.Context, id string) *models.AlertTypeRecord
}

// AlertQueue receives alerts from saved templates so their parent links can
// be written to the alerts table in the background.
type AlertQueue interface {
	Submit(ctx context.Context, a models.FlatAlert) error
}

type Handler struct {
	repo        repository.Store
	types       Resolver
	broadcaster *events.Broadcaster
	queue       AlertQueue
}

func NewHandler(repo repository.Store, types Resolver, broadcaster *events.Broadcaster) *Handler {
	return &Handler{
		repo:        repo,
		types:       types,
		broadcaster: broadcaster,
	}
}

// WithAlertQueue enables propagation of saved alerts to the alerts table.
func (h *Handler) WithAlertQueue(q AlertQueue) *Handler {
	h.queue = q
	return h
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/api/templates/load", h.loadTemplate)
	r.POST("/api/templates/save", h.saveTemplate)
	r.GET("/api/templates", h.listTemplates)
	r.GET("/api/templates/events", h.templateEvents)
	r.GET("/api/alert_types", h.getAlertTypes)
	r.GET("/api/alerts", h.getAlerts)
	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (h *Handler) loadTemplate(c *gin.Context) {
	req, selected, ok := bindTemplateRequest(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	tmpl, err := h.repo.GetTemplate(ctx, req.Template)
	if err != nil {
		slog.Error("failed to fetch template", "template", req.Template, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch template"})
		return
	}
	if tmpl == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
		return
	}

	alerts := tmpl.Alerts
	if len(selected) > 0 {
		alerts = binding.Apply(tmpl.Bindings, selected)
	}

	root := tree.Treeify(alerts, h.resolveFunc(ctx))
	tree.ComputeTotals(root)

	c.JSON(http.StatusOK, models.LoadResponse{
		Tree:   root,
		Alerts: tree.Flatten(root),
	})
}

func (h *Handler) saveTemplate(c *gin.Context) {
	req, alerts, ok := bindTemplateRequest(c)
	if !ok {
		return
	}
	for _, a := range alerts {
		if a.ID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "every alert needs an id"})
			return
		}
	}

	ctx := c.Request.Context()
	existing, err := h.repo.GetTemplate(ctx, req.Template)
	if err != nil {
		slog.Error("failed to fetch template", "template", req.Template, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save template"})
		return
	}

	// edges in the saved tree add bindings; they never remove ones the tree
	// does not happen to exercise
	var bindings []models.Binding
	if existing != nil {
		bindings = existing.Bindings
	}

	tmpl := &models.Template{
		Name:      req.Template,
		Bindings:  binding.Merge(bindings, binding.Derive(alerts)),
		Alerts:    alerts,
		UpdatedAt: time.Now().UTC(),
	}
	if err := h.repo.SaveTemplate(ctx, tmpl); err != nil {
		slog.Error("failed to save template", "template", req.Template, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save template"})
		return
	}

	slog.Info("template saved", "template", tmpl.Name, "alerts", len(alerts), "bindings", len(tmpl.Bindings))
	h.enqueue(ctx, tmpl.Name, alerts)
	if h.broadcaster != nil {
		h.broadcaster.Publish(&models.TemplateEvent{
			Template:  tmpl.Name,
			Alerts:    len(alerts),
			Bindings:  len(tmpl.Bindings),
			Timestamp: tmpl.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, models.SaveResponse{Template: tmpl.Name, Saved: len(alerts)})
}

func (h *Handler) listTemplates(c *gin.Context) {
	names, err := h.repo.ListTemplates(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch templates"})
		return
	}
	c.JSON(http.StatusOK, models.TemplatesResponse{Templates: names})
}

// templateEvents streams save notifications as server-sent events until the
// client disconnects or the broadcaster closes.
func (h *Handler) templateEvents(c *gin.Context) {
	if h.broadcaster == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "events unavailable"})
		return
	}

	id, ch := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(id)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("template", ev)
			return true
		}
	})
}

func (h *Handler) getAlertTypes(c *gin.Context) {
	types, err := h.repo.ListAlertTypes(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch alert types"})
		return
	}
	c.JSON(http.StatusOK, models.AlertTypesResponse{AlertTypes: types})
}

// getAlerts pages over top-level alerts. Rows are fetched unpaged so a child
// always lands in the same page as its parent.
func (h *Handler) getAlerts(c *gin.Context) {
	var filter repository.Filter
	limit, offset := defaultAlertLimit, 0

	if s := c.Query("site"); s != "" {
		filter.Site = &s
	}
	if s := c.Query("system"); s != "" {
		filter.System = &s
	}
	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 && lim <= maxAlertLimit {
			limit = lim
		}
	}
	if o := c.Query("offset"); o != "" {
		if off, err := strconv.Atoi(o); err == nil && off >= 0 {
			offset = off
		}
	}

	ctx := c.Request.Context()
	alerts, err := h.repo.ListAlerts(ctx, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to fetch alerts",
		})
		return
	}

	root := tree.Treeify(alerts, h.resolveFunc(ctx))
	tree.ComputeTotals(root)
	c.JSON(http.StatusOK, models.AlertsResponse{Alerts: page(root.Children, offset, limit)})
}

func page(nodes []*models.AlertNode, offset, limit int) []*models.AlertNode {
	if offset >= len(nodes) {
		return []*models.AlertNode{}
	}
	return nodes[offset:min(offset+limit, len(nodes))]
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) enqueue(ctx context.Context, template string, alerts []models.FlatAlert) {
	if h.queue == nil {
		return
	}
	for _, a := range alerts {
		if err := h.queue.Submit(ctx, a); err != nil {
			slog.Warn("alert sync skipped", "template", template, "alert", a.ID, "error", err)
			return
		}
	}
}

func (h *Handler) resolveFunc(ctx context.Context) tree.ResolveFunc {
	if h.types == nil {
		return nil
	}
	return func(id string) *models.AlertTypeRecord {
		return h.types.Resolve(ctx, id)
	}
}

// bindTemplateRequest decodes the request body and its embedded alert list,
// writing a 400 response on failure.
func bindTemplateRequest(c *gin.Context) (models.TemplateRequest, []models.FlatAlert, bool) {
	var req models.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return req, nil, false
	}

	alerts, err := models.DecodeAlerts(req.Alerts)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "alerts must be a JSON encoded alert list"})
		return req, nil, false
	}

	return req, alerts, true
}
