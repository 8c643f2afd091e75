// internal/app/features/customers/handler.go
package customers

import (
	"context"
	"net/http"

	customerstore "github.com/dalemusser/washhub/internal/app/store/customers"
	"github.com/dalemusser/washhub/internal/app/system/apiresp"
	"github.com/dalemusser/washhub/internal/app/system/auth"
	"github.com/dalemusser/washhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/washhub/internal/app/system/paging"
	"github.com/dalemusser/washhub/internal/app/system/timeouts"
	"github.com/dalemusser/washhub/internal/app/system/workspace"
	"github.com/dalemusser/washhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MaxNameLength bounds customer names.
const MaxNameLength = 120

// Handler serves the customers of the caller's workspace. Any contributor
// may manage customers.
type Handler struct {
	Customers *customerstore.Store
	Log       *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Customers: customerstore.New(db),
		Log:       logger,
	}
}

type customerInput struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	Notes   *string `json:"notes"`
}

// clean sanitises every present field and checks the name.
func (in *customerInput) clean(requireName bool) error {
	in.Name = htmlsanitize.PlainTextPtr(in.Name)
	in.Phone = htmlsanitize.PlainTextPtr(in.Phone)
	in.Address = htmlsanitize.PlainTextPtr(in.Address)
	in.Notes = htmlsanitize.PlainTextPtr(in.Notes)

	if in.Name == nil {
		if requireName {
			return apiresp.Invalid("name is required")
		}
		return nil
	}
	if n := len([]rune(*in.Name)); n == 0 || n > MaxNameLength {
		return apiresp.Invalid("name must be 1-120 characters")
	}
	return nil
}

// ServeList lists customers by name, a page at a time.
//
// Query: q (name prefix), after / before (cursors from a previous page).
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	page, err := h.Customers.List(ctx, workspace.IDFromRequest(r), query.Get(r, "q"), paging.FromRequest(r))
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, http.StatusOK, page)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	var in customerInput
	if err := apiresp.Decode(w, r, &in); err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	if err := in.clean(true); err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.Customers.Create(ctx, models.Customer{
		WorkspaceID: workspace.IDFromRequest(r),
		Name:        *in.Name,
		Phone:       deref(in.Phone),
		Address:     deref(in.Address),
		Notes:       deref(in.Notes),
		CreatedBy:   id.UID,
	})
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, http.StatusCreated, c)
}

func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	cid, err := apiresp.PathID(r, "id")
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.Customers.GetByID(ctx, workspace.IDFromRequest(r), cid)
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, http.StatusOK, c)
}

// HandleUpdate changes the fields present in the body.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	cid, err := apiresp.PathID(r, "id")
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	var in customerInput
	if err := apiresp.Decode(w, r, &in); err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	if err := in.clean(false); err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.Customers.Update(ctx, workspace.IDFromRequest(r), cid, customerstore.Update{
		Name:    in.Name,
		Phone:   in.Phone,
		Address: in.Address,
		Notes:   in.Notes,
	})
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, http.StatusOK, c)
}

// HandleDelete removes a customer with no open orders.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	cid, err := apiresp.PathID(r, "id")
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Customers.Delete(ctx, workspace.IDFromRequest(r), cid); err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, http.StatusOK, map[string]string{"id": cid.Hex()})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
