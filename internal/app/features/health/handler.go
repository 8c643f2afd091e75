package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"

	"github.com/dalemusser/washhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Check probes one optional dependency, such as Redis.
type Check func(ctx context.Context) error

// Handler holds dependencies needed for health checks.
type Handler struct {
	Client *mongo.Client
	Checks map[string]Check
	Log    *zap.Logger
}

// NewHandler constructs a health Handler. checks may be nil.
func NewHandler(client *mongo.Client, checks map[string]Check, logger *zap.Logger) *Handler {
	return &Handler{
		Client: client,
		Checks: checks,
		Log:    logger,
	}
}

type healthResponse struct {
	Status   string            `json:"status"`
	Database string            `json:"database"`
	Message  string            `json:"message,omitempty"`
	Services map[string]string `json:"services,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "services":{"redis":"ok"} }
//
// When Mongo or any check fails: 503 with status "error". Error details go
// to the log only.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
	}

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
	}

	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if resp.Services == nil {
			resp.Services = make(map[string]string, len(names))
		}
		if err := h.Checks[name](ctx); err != nil {
			h.Log.Error("health-check: dependency failed", zap.String("service", name), zap.Error(err))
			resp.Services[name] = "unavailable"
			resp.Status = "error"
			continue
		}
		resp.Services[name] = "ok"
	}

	if resp.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
