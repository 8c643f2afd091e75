// internal/app/features/feeds/handler.go
package feeds

import (
	"context"
	"net/http"
	"sync"
	"time"

	catalogstore "github.com/dalemusser/washhub/internal/app/store/catalog"
	customerstore "github.com/dalemusser/washhub/internal/app/store/customers"
	orderstore "github.com/dalemusser/washhub/internal/app/store/orders"
	userstore "github.com/dalemusser/washhub/internal/app/store/users"
	workspacestore "github.com/dalemusser/washhub/internal/app/store/workspaces"
	"github.com/dalemusser/washhub/internal/app/system/apiresp"
	"github.com/dalemusser/washhub/internal/app/system/auth"
	"github.com/dalemusser/washhub/internal/app/system/paging"
	"github.com/dalemusser/washhub/internal/app/system/realtime"
	"github.com/dalemusser/washhub/internal/app/system/workspace"
	"github.com/dalemusser/washhub/internal/domain/models"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second

	// MaxCustomers caps the customers feed. Longer lists are read through
	// the paged GET /customers.
	MaxCustomers = 500
)

// Message is one frame sent to a feed client.
type Message struct {
	Type    string `json:"type"` // snapshot | error
	Data    any    `json:"data,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Handler serves live-updating reads over WebSocket. Each connection holds
// one change stream open until the client goes away or the feed fails.
type Handler struct {
	db        *mongo.Database
	Users     *userstore.Store
	Customers *customerstore.Store
	Services  *catalogstore.Store
	Items     *catalogstore.Store
	Orders    *orderstore.Store
	Upgrader  websocket.Upgrader
	Log       *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		db:        db,
		Users:     userstore.New(db),
		Customers: customerstore.New(db),
		Services:  catalogstore.New(db, models.KindService),
		Items:     catalogstore.New(db, models.KindItem),
		Orders:    orderstore.New(db),
		Log:       logger,
	}
}

// workspaceView is the payload of the workspace feed. Workspace is nil
// while the caller belongs to none.
type workspaceView struct {
	Workspace *models.Workspace `json:"workspace"`
	Role      string            `json:"role,omitempty"`
}

// ServeWorkspace streams the caller's current workspace. It follows the
// caller across joins, leaves, kicks and deletes.
func (h *Handler) ServeWorkspace(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	feed := realtime.Feed[workspaceView]{
		Open: realtime.WatchDatabase(h.db, workspaceMatch(id.UID)),
		Load: func(ctx context.Context) (workspaceView, error) {
			_, ws, err := h.Users.Resolve(ctx, id.UID)
			if err != nil || ws == nil {
				return workspaceView{}, err
			}
			return workspaceView{Workspace: ws, Role: ws.RoleOf(id.UID)}, nil
		},
	}
	stream(h, w, r, feed)
}

// ServeMe streams the caller's profile.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	feed := realtime.Feed[models.User]{
		Open: realtime.Watch(h.db.Collection("users"), realtime.DocumentMatch(id.UID)),
		Load: func(ctx context.Context) (models.User, error) {
			return h.Users.GetByUID(ctx, id.UID)
		},
	}
	stream(h, w, r, feed)
}

func (h *Handler) ServeCustomers(w http.ResponseWriter, r *http.Request) {
	uid, wsID := callerUID(r), workspace.IDFromRequest(r)
	q := paging.New("", "").WithSize(MaxCustomers)
	feed := realtime.Feed[[]models.Customer]{
		Open: realtime.Watch(h.db.Collection("customers"), realtime.WorkspaceMatch(wsID)),
		Load: memberOnlyLoad(h.Users, uid, wsID, func(ctx context.Context) ([]models.Customer, error) {
			page, err := h.Customers.List(ctx, wsID, "", q)
			return page.Items, err
		}),
	}
	stream(h, w, r, feed)
}

func (h *Handler) ServeServices(w http.ResponseWriter, r *http.Request) {
	h.serveCatalog(w, r, h.Services)
}

func (h *Handler) ServeItems(w http.ResponseWriter, r *http.Request) {
	h.serveCatalog(w, r, h.Items)
}

func (h *Handler) serveCatalog(w http.ResponseWriter, r *http.Request, s *catalogstore.Store) {
	uid, wsID := callerUID(r), workspace.IDFromRequest(r)
	feed := realtime.Feed[[]models.CatalogEntry]{
		Open: realtime.Watch(h.db.Collection(catalogstore.Collection(s.Kind())), realtime.WorkspaceMatch(wsID)),
		Load: memberOnlyLoad(h.Users, uid, wsID, func(ctx context.Context) ([]models.CatalogEntry, error) {
			return s.List(ctx, wsID)
		}),
	}
	stream(h, w, r, feed)
}

func (h *Handler) ServeOrders(w http.ResponseWriter, r *http.Request) {
	uid, wsID := callerUID(r), workspace.IDFromRequest(r)
	feed := realtime.Feed[[]models.Order]{
		Open: realtime.Watch(h.db.Collection("orders"), realtime.WorkspaceMatch(wsID)),
		Load: memberOnlyLoad(h.Users, uid, wsID, func(ctx context.Context) ([]models.Order, error) {
			return h.Orders.List(ctx, wsID, orderstore.ListFilter{})
		}),
	}
	stream(h, w, r, feed)
}

func callerUID(r *http.Request) string {
	id, _ := auth.CurrentIdentity(r)
	return id.UID
}

// memberOnlyLoad wraps a workspace list loader so the feed fails with
// NoWorkspace once the caller no longer belongs to the workspace it
// subscribed in.
func memberOnlyLoad[T any](users *userstore.Store, uid string, wsID primitive.ObjectID, load func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		var zero T
		_, ws, err := users.Resolve(ctx, uid)
		if err != nil {
			return zero, err
		}
		if ws == nil || ws.ID != wsID {
			return zero, workspace.ErrNoWorkspace
		}
		return load(ctx)
	}
}

// workspaceMatch selects changes that can alter uid's current workspace:
// the profile itself, and any workspace listing uid as a contributor.
// Kicks, leaves and deletes all clear the profile pointer, so they arrive
// through the profile.
func workspaceMatch(uid string) bson.D {
	return bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "ns.coll", Value: "users"}, {Key: "documentKey._id", Value: uid}},
		bson.D{
			{Key: "ns.coll", Value: "workspaces"},
			{Key: "$expr", Value: workspacestore.HasContributor("$fullDocument.contributors", uid)},
		},
	}}}
}

// stream upgrades the connection and relays feed values until the client
// disconnects or the feed fails. Failures are sent as an error frame before
// the socket is closed.
func stream[T any](h *Handler, w http.ResponseWriter, r *http.Request, feed realtime.Feed[T]) {
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.Log.Debug("feed upgrade failed", zap.String("path", r.URL.Path), zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var mu sync.Mutex
	write := func(m Message) error {
		mu.Lock()
		defer mu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(m)
	}

	failed := make(chan error, 1)
	unsubscribe := feed.Subscribe(ctx,
		func(v T) {
			if err := write(Message{Type: "snapshot", Data: v}); err != nil {
				cancel()
			}
		},
		func(err error) { failed <- err },
	)
	defer unsubscribe()

	// Clients send nothing; reading only surfaces the close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-gone:
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case err := <-failed:
			status, code, msg := apiresp.Classify(err)
			if status >= http.StatusInternalServerError {
				h.Log.Warn("feed failed", zap.String("path", r.URL.Path), zap.Error(err))
			}
			_ = write(Message{Type: "error", Code: code, Message: msg})
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, code),
				time.Now().Add(writeWait))
			return
		}
	}
}
