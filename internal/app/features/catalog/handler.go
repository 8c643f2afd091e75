// internal/app/features/catalog/handler.go
package catalog

import (
	"context"
	"net/http"

	catalogstore "github.com/dalemusser/washhub/internal/app/store/catalog"
	"github.com/dalemusser/washhub/internal/app/system/apiresp"
	"github.com/dalemusser/washhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/washhub/internal/app/system/timeouts"
	"github.com/dalemusser/washhub/internal/app/system/workspace"
	"github.com/dalemusser/washhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	MaxNameLength = 80
	MaxUnitLength = 16
	// MaxPriceCents together with models.MaxLineQuantity keeps order totals
	// well inside int64.
	MaxPriceCents = 100_000_000
)

// Handler serves one catalog kind. The same handler type backs /services
// and /items.
type Handler struct {
	Entries *catalogstore.Store
	Log     *zap.Logger
}

// NewHandler returns a handler for kind (models.KindService or models.KindItem).
func NewHandler(db *mongo.Database, kind string, logger *zap.Logger) *Handler {
	return &Handler{
		Entries: catalogstore.New(db, kind),
		Log:     logger.With(zap.String("catalog", kind)),
	}
}

type entryInput struct {
	Name       *string `json:"name"`
	PriceCents *int64  `json:"price_cents"`
	Unit       *string `json:"unit"`
}

func (h *Handler) services() bool { return h.Entries.Kind() == models.KindService }

// clean sanitises the input. On create every field the kind needs must be
// present.
func (h *Handler) clean(in *entryInput, create bool) error {
	in.Name = htmlsanitize.PlainTextPtr(in.Name)
	in.Unit = htmlsanitize.PlainTextPtr(in.Unit)
	if !h.services() {
		in.Unit = nil
	}

	if create {
		switch {
		case in.Name == nil:
			return apiresp.Invalid("name is required")
		case in.PriceCents == nil:
			return apiresp.Invalid("price_cents is required")
		case h.services() && in.Unit == nil:
			return apiresp.Invalid("unit is required")
		}
	}
	if in.Name != nil {
		if n := len([]rune(*in.Name)); n == 0 || n > MaxNameLength {
			return apiresp.Invalid("name must be 1-80 characters")
		}
	}
	if in.PriceCents != nil && (*in.PriceCents < 0 || *in.PriceCents > MaxPriceCents) {
		return apiresp.Invalid("price_cents must be between 0 and 100000000")
	}
	if in.Unit != nil {
		if n := len([]rune(*in.Unit)); n == 0 || n > MaxUnitLength {
			return apiresp.Invalid("unit must be 1-16 characters")
		}
	}
	return nil
}

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	entries, err := h.Entries.List(ctx, workspace.IDFromRequest(r))
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, http.StatusOK, entries)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in entryInput
	if err := apiresp.Decode(w, r, &in); err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	if err := h.clean(&in, true); err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	e := models.CatalogEntry{
		WorkspaceID: workspace.IDFromRequest(r),
		Name:        *in.Name,
		PriceCents:  *in.PriceCents,
	}
	if in.Unit != nil {
		e.Unit = *in.Unit
	}
	e, err := h.Entries.Create(ctx, e)
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, http.StatusCreated, e)
}

func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, err := apiresp.PathID(r, "id")
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	e, err := h.Entries.GetByID(ctx, workspace.IDFromRequest(r), id)
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, http.StatusOK, e)
}

// HandleUpdate changes name, price or unit. Existing orders keep the
// price they were placed at.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := apiresp.PathID(r, "id")
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	var in entryInput
	if err := apiresp.Decode(w, r, &in); err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	if err := h.clean(&in, false); err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	e, err := h.Entries.Update(ctx, workspace.IDFromRequest(r), id, catalogstore.Update{
		Name:       in.Name,
		PriceCents: in.PriceCents,
		Unit:       in.Unit,
	})
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, http.StatusOK, e)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := apiresp.PathID(r, "id")
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Entries.Delete(ctx, workspace.IDFromRequest(r), id); err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, http.StatusOK, map[string]string{"id": id.Hex()})
}
