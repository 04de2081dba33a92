// Package api implements the REST endpoints over the model catalog.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/everstacklabs/modelmeter/internal/catalog"
	"github.com/everstacklabs/modelmeter/internal/classify"
	"github.com/everstacklabs/modelmeter/internal/diff"
	"github.com/everstacklabs/modelmeter/internal/estimate"
	"github.com/everstacklabs/modelmeter/internal/pipeline"
	"github.com/everstacklabs/modelmeter/internal/tokenizer"
)

// Catalog is the read side of the pipeline plus refresh and cache control.
// *pipeline.Pipeline satisfies it.
type Catalog interface {
	PricingModels(ctx context.Context) ([]catalog.PricingRecord, error)
	ComparisonModels(ctx context.Context) ([]catalog.ComparisonRecord, error)
	Model(ctx context.Context, id string) (*pipeline.Detailed, error)
	Filter(ctx context.Context, f pipeline.Filter) ([]pipeline.Detailed, error)
	Search(ctx context.Context, query string) ([]pipeline.Detailed, error)
	Providers(ctx context.Context) ([]string, error)
	Profile(ctx context.Context, model string) (tokenizer.Profile, error)
	Estimate(ctx context.Context, model, text string, media estimate.Media, outputWords int) (estimate.Metrics, tokenizer.Profile, error)
	Refresh(ctx context.Context) (*diff.ChangeSet, error)
	LastChanges() *diff.ChangeSet
	CacheStatus(ctx context.Context) []pipeline.SlotStatus
	ClearCache(ctx context.Context, s pipeline.Slot) error
}

// Handlers provides REST API endpoint handlers.
type Handlers struct {
	catalog Catalog
	version string
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(c Catalog, version string) *Handlers {
	return &Handlers{catalog: c, version: version}
}

// HealthCheck returns the service health status.
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "modelmeter",
		"version": h.version,
	})
}

// listResponse wraps list payloads. Warning carries an upstream failure when
// the data served is curated or cached.
func listResponse[T any](data []T, err error) gin.H {
	resp := gin.H{"count": len(data), "data": data}
	if err != nil {
		resp["warning"] = err.Error()
	}
	return resp
}

// ListModels returns models in one of three views.
// Query params: view (pricing|comparison|detailed), provider, category, tier,
// multimodal, free, q
func (h *Handlers) ListModels(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()

	switch view := c.DefaultQuery("view", "pricing"); view {
	case "pricing":
		records, err := h.catalog.PricingModels(ctx)
		c.JSON(http.StatusOK, listResponse(filterPricing(records, f), err))
	case "comparison":
		records, err := h.catalog.ComparisonModels(ctx)
		c.JSON(http.StatusOK, listResponse(filterComparison(records, f), err))
	case "detailed":
		models, err := h.catalog.Filter(ctx, f)
		c.JSON(http.StatusOK, listResponse(models, err))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'view', use pricing, comparison or detailed"})
	}
}

func parseFilter(c *gin.Context) (pipeline.Filter, error) {
	f := pipeline.Filter{
		Provider: c.Query("provider"),
		Category: catalog.Category(c.Query("category")),
		Tier:     classify.Tier(c.Query("tier")),
		Query:    c.Query("q"),
	}
	if f.Category != "" && !f.Category.Valid() {
		return f, errors.New("invalid 'category'")
	}
	if v := c.Query("multimodal"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, errors.New("invalid 'multimodal', use true or false")
		}
		f.Multimodal = &b
	}
	if v := c.Query("free"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, errors.New("invalid 'free', use true or false")
		}
		f.FreeOnly = b
	}
	return f, nil
}

func filterPricing(records []catalog.PricingRecord, f pipeline.Filter) []catalog.PricingRecord {
	out := make([]catalog.PricingRecord, 0, len(records))
	for _, r := range records {
		if f.MatchPricing(r) {
			out = append(out, r)
		}
	}
	return out
}

func filterComparison(records []catalog.ComparisonRecord, f pipeline.Filter) []catalog.ComparisonRecord {
	out := make([]catalog.ComparisonRecord, 0, len(records))
	for _, r := range records {
		if f.MatchComparison(r) {
			out = append(out, r)
		}
	}
	return out
}

// GetModel returns one detailed model by its "<provider>/<model>" identifier.
func (h *Handlers) GetModel(c *gin.Context) {
	id := c.Param("provider") + "/" + c.Param("slug")
	d, err := h.catalog.Model(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// GetProfile returns the tokenizer profile of a model, by identifier or
// curated name.
// Query params: model
func (h *Handlers) GetProfile(c *gin.Context) {
	model := c.Query("model")
	if model == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'model' is required"})
		return
	}
	p, err := h.catalog.Profile(c.Request.Context(), model)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ListProviders returns every known provider name.
func (h *Handlers) ListProviders(c *gin.Context) {
	providers, err := h.catalog.Providers(c.Request.Context())
	c.JSON(http.StatusOK, listResponse(providers, err))
}

// Search runs a full-text search over name, identifier and description.
// Query params: q
func (h *Handlers) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'q' is required"})
		return
	}
	models, err := h.catalog.Search(c.Request.Context(), q)
	resp := listResponse(models, err)
	resp["query"] = q
	c.JSON(http.StatusOK, resp)
}

// Refresh reloads every catalog from upstream and returns the pricing changes.
func (h *Handlers) Refresh(c *gin.Context) {
	cs, err := h.catalog.Refresh(c.Request.Context())
	resp := gin.H{"changes": cs, "has_changes": cs.HasChanges()}
	if err != nil {
		resp["warning"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// LastChanges returns the change set of the most recent refresh.
func (h *Handlers) LastChanges(c *gin.Context) {
	cs := h.catalog.LastChanges()
	if cs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no refresh has run yet"})
		return
	}
	c.JSON(http.StatusOK, cs)
}

// CacheStatus reports every cache slot.
func (h *Handlers) CacheStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"slots": h.catalog.CacheStatus(c.Request.Context())})
}

// ClearCache clears one slot, or every slot when no slot is given.
func (h *Handlers) ClearCache(c *gin.Context) {
	var slot pipeline.Slot
	if name := c.Param("slot"); name != "" {
		s, err := pipeline.ParseSlot(name)
		if err != nil {
			writeError(c, err)
			return
		}
		slot = s
	}
	if err := h.catalog.ClearCache(c.Request.Context(), slot); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": slotOrAll(slot)})
}

func slotOrAll(s pipeline.Slot) string {
	if s == "" {
		return "all"
	}
	return string(s)
}

// EstimateRequest is the request body of the estimate endpoint.
type EstimateRequest struct {
	Model               string         `json:"model" binding:"required"`
	Text                string         `json:"text"`
	Media               estimate.Media `json:"media"`
	ExpectedOutputWords int            `json:"expected_output_words" binding:"gte=0"`
}

// Estimate computes token counts and cost for a text and media input.
func (h *Handlers) Estimate(c *gin.Context) {
	var req EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Media.ImageCount < 0 || req.Media.VideoSeconds < 0 || req.Media.AudioSeconds < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "media quantities must not be negative"})
		return
	}
	if !req.Media.ImageSize.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'image_size', use small or large"})
		return
	}

	m, p, err := h.catalog.Estimate(c.Request.Context(), req.Model, req.Text, req.Media, req.ExpectedOutputWords)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"model": req.Model, "profile": p, "metrics": m})
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, pipeline.ErrModelNotFound):
		status = http.StatusNotFound
	case errors.Is(err, pipeline.ErrUnknownSlot):
		status = http.StatusBadRequest
	}
	if status >= 500 {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
