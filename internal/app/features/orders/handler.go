// internal/app/features/orders/handler.go
package orders

import (
	"context"
	"net/http"

	orderstore "github.com/dalemusser/washhub/internal/app/store/orders"
	"github.com/dalemusser/washhub/internal/app/system/apiresp"
	"github.com/dalemusser/washhub/internal/app/system/auth"
	"github.com/dalemusser/washhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/washhub/internal/app/system/timeouts"
	"github.com/dalemusser/washhub/internal/app/system/workspace"
	"github.com/dalemusser/washhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	MaxLines       = 50
	MaxNotesLength = 500
)

type Handler struct {
	Orders *orderstore.Store
	Log    *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Orders: orderstore.New(db),
		Log:    logger,
	}
}

type lineInput struct {
	Kind     string  `json:"kind"`
	RefID    string  `json:"ref_id"`
	Quantity float64 `json:"quantity"`
}

type placeInput struct {
	CustomerID string      `json:"customer_id"`
	Lines      []lineInput `json:"lines"`
	Notes      string      `json:"notes"`
}

type notesInput struct {
	Notes *string `json:"notes"`
}

type moveInput struct {
	Status string `json:"status"`
}

func cleanNotes(s string) (string, error) {
	s = htmlsanitize.PlainText(s)
	if len([]rune(s)) > MaxNotesLength {
		return "", apiresp.Invalid("notes must be at most 500 characters")
	}
	return s, nil
}

// ServeList lists orders newest first.
//
// Query: status, customer_id.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	var f orderstore.ListFilter
	f.Status = query.Get(r, "status")
	if raw := query.Get(r, "customer_id"); raw != "" {
		cid, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			apiresp.Fail(w, r, h.Log, apiresp.Invalid("customer_id is not a valid id"))
			return
		}
		f.CustomerID = &cid
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Orders.List(ctx, workspace.IDFromRequest(r), f)
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, http.StatusOK, list)
}

// ServeBoard returns orders grouped by board column.
func (h *Handler) ServeBoard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	board, err := h.Orders.Board(ctx, workspace.IDFromRequest(r))
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, http.StatusOK, map[string]any{
		"columns": models.OrderBoard,
		"orders":  board,
	})
}

func (h *Handler) HandlePlace(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	var in placeInput
	if err := apiresp.Decode(w, r, &in); err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	customerID, err := primitive.ObjectIDFromHex(in.CustomerID)
	if err != nil {
		apiresp.Fail(w, r, h.Log, apiresp.Invalid("customer_id is not a valid id"))
		return
	}
	if len(in.Lines) > MaxLines {
		apiresp.Fail(w, r, h.Log, apiresp.Invalid("an order takes at most 50 lines"))
		return
	}
	lines := make([]orderstore.LineInput, 0, len(in.Lines))
	for _, l := range in.Lines {
		if l.Kind != models.KindService && l.Kind != models.KindItem {
			apiresp.Fail(w, r, h.Log, apiresp.Invalid("line kind must be service or item"))
			return
		}
		ref, err := primitive.ObjectIDFromHex(l.RefID)
		if err != nil {
			apiresp.Fail(w, r, h.Log, apiresp.Invalid("ref_id is not a valid id"))
			return
		}
		lines = append(lines, orderstore.LineInput{Kind: l.Kind, RefID: ref, Quantity: l.Quantity})
	}
	notes, err := cleanNotes(in.Notes)
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	o, err := h.Orders.Place(ctx, workspace.IDFromRequest(r), id.UID, customerID, lines, notes)
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, http.StatusCreated, o)
}

func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	oid, err := apiresp.PathID(r, "id")
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	o, err := h.Orders.GetByID(ctx, workspace.IDFromRequest(r), oid)
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, http.StatusOK, o)
}

// HandleUpdate edits the notes of an order. Lines are fixed once placed.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	oid, err := apiresp.PathID(r, "id")
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	var in notesInput
	if err := apiresp.Decode(w, r, &in); err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	if in.Notes == nil {
		apiresp.Fail(w, r, h.Log, apiresp.Invalid("notes is required"))
		return
	}
	notes, err := cleanNotes(*in.Notes)
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	o, err := h.Orders.UpdateNotes(ctx, workspace.IDFromRequest(r), oid, notes)
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, http.StatusOK, o)
}

// HandleMove drags an order to another column of the board.
func (h *Handler) HandleMove(w http.ResponseWriter, r *http.Request) {
	oid, err := apiresp.PathID(r, "id")
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	var in moveInput
	if err := apiresp.Decode(w, r, &in); err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	o, err := h.Orders.Move(ctx, workspace.IDFromRequest(r), oid, in.Status)
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	h.Log.Debug("order moved",
		zap.String("order_id", oid.Hex()),
		zap.String("status", o.Status))
	apiresp.OK(w, http.StatusOK, o)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	oid, err := apiresp.PathID(r, "id")
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Orders.Delete(ctx, workspace.IDFromRequest(r), oid); err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, http.StatusOK, map[string]string{"id": oid.Hex()})
}
