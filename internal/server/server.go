package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/hearthboard/internal/handler"
	"github.com/dukerupert/hearthboard/internal/middleware"
	"github.com/dukerupert/hearthboard/internal/model"
	"github.com/dukerupert/hearthboard/internal/overview"
	"github.com/dukerupert/hearthboard/internal/permission"
	"github.com/dukerupert/hearthboard/internal/store"
	ws "github.com/dukerupert/hearthboard/internal/websocket"
)

const (
	pinAttemptLimit  = 5
	pinAttemptWindow = 15 * time.Minute
)

type Config struct {
	JWTSecret      string
	JWTIssuer      string
	Location       *time.Location
	AllowedOrigins []string
}

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	members        *store.FamilyMemberStore
	verifier       *middleware.TokenVerifier
	pinLimiter     *middleware.RateLimiter
	allowedOrigins []string
	dashboardH     *handler.DashboardHandler
	overviewH      *handler.OverviewHandler
	familyH        *handler.FamilyHandler
	familyMemberH  *handler.FamilyMemberHandler
	taskH          *handler.TaskHandler
	calendarEventH *handler.CalendarEventHandler
	intentionH     *handler.IntentionHandler
	rewardH        *handler.RewardHandler
	logger         *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	familyStore := store.NewFamilyStore(db)
	memberStore := store.NewFamilyMemberStore(db)
	dashboardStore := store.NewDashboardStore(db)
	taskStore := store.NewTaskStore(db)
	eventStore := store.NewEventStore(db)
	intentionStore := store.NewIntentionStore(db)
	rewardStore := store.NewRewardStore(db)

	resolver := permission.NewResolver(memberStore)
	aggregator := overview.NewAggregator(memberStore, taskStore, eventStore, intentionStore, cfg.Location, logger.With("component", "overview"))
	pinLimiter := middleware.NewRateLimiter(pinAttemptLimit, pinAttemptWindow)

	return &Server{
		db:             db,
		hub:            hub,
		members:        memberStore,
		verifier:       middleware.NewTokenVerifier(cfg.JWTSecret, cfg.JWTIssuer),
		pinLimiter:     pinLimiter,
		allowedOrigins: cfg.AllowedOrigins,
		dashboardH:     handler.NewDashboardHandler(dashboardStore, memberStore, resolver, hub, logger.With("component", "dashboard")),
		overviewH:      handler.NewOverviewHandler(aggregator, familyStore, logger.With("component", "overview")),
		familyH:        handler.NewFamilyHandler(familyStore, hub, logger.With("component", "family")),
		familyMemberH:  handler.NewFamilyMemberHandler(memberStore, resolver, pinLimiter, hub, logger.With("component", "family_member")),
		taskH:          handler.NewTaskHandler(taskStore, memberStore, hub, logger.With("component", "task")),
		calendarEventH: handler.NewCalendarEventHandler(eventStore, memberStore, hub, cfg.Location, logger.With("component", "calendar")),
		intentionH:     handler.NewIntentionHandler(intentionStore, hub, logger.With("component", "intention")),
		rewardH:        handler.NewRewardHandler(rewardStore, memberStore, hub, logger.With("component", "reward")),
		logger:         logger,
	}
}

// RunBackground runs periodic housekeeping until ctx is done.
func (s *Server) RunBackground(ctx context.Context) {
	s.pinLimiter.RunCleanup(ctx, time.Minute)
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()
	outerMux.HandleFunc("GET /health", s.healthHandler)

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.verifier, s.members, s.logger.With("component", "auth"))
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error("health check: database ping", "error", err)
		status, code = "database unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{"status": status, "clients": s.hub.ClientCount()})
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	adultsOnly := middleware.RequireRole(model.RoleOrganizer, model.RoleParent)
	adult := func(h http.HandlerFunc) http.Handler { return adultsOnly(h) }
	pinLimited := middleware.RateLimit(s.pinLimiter, handler.PINAttemptKey)

	// Widget catalog and dashboards
	mux.HandleFunc("GET /api/widgets", handler.ListWidgets)
	mux.HandleFunc("GET /api/members/{id}/dashboards", s.dashboardH.List)
	mux.HandleFunc("GET /api/members/{id}/dashboards/{type}", s.dashboardH.Get)
	mux.HandleFunc("GET /api/members/{id}/dashboards/{type}/permissions", s.dashboardH.Permissions)
	mux.HandleFunc("POST /api/dashboards/{id}/widgets", s.dashboardH.AddWidget)
	mux.HandleFunc("DELETE /api/dashboards/{id}/widgets/{widget_id}", s.dashboardH.RemoveWidget)
	mux.HandleFunc("PUT /api/dashboards/{id}/widgets/{widget_id}/position", s.dashboardH.MoveWidget)
	mux.HandleFunc("PUT /api/dashboards/{id}/widgets/{widget_id}/settings", s.dashboardH.UpdateWidgetSettings)
	mux.HandleFunc("PUT /api/dashboards/{id}/widgets/{widget_id}/visibility", s.dashboardH.SetWidgetVisibility)
	mux.HandleFunc("PUT /api/dashboards/{id}/layout", s.dashboardH.UpdateLayout)

	mux.HandleFunc("GET /api/family", s.familyH.Get)
	mux.Handle("PUT /api/family", middleware.RequireRole(model.RoleOrganizer)(http.HandlerFunc(s.familyH.Update)))
	mux.HandleFunc("GET /api/family/overview", s.overviewH.Get)

	// Members
	mux.HandleFunc("GET /api/me", s.familyMemberH.Me)
	mux.HandleFunc("GET /api/members", s.familyMemberH.List)
	mux.Handle("POST /api/members", adult(s.familyMemberH.Create))
	mux.HandleFunc("PUT /api/members/{id}", s.familyMemberH.Update)
	mux.Handle("DELETE /api/members/{id}", adult(s.familyMemberH.Delete))
	mux.HandleFunc("POST /api/members/{id}/pin", s.familyMemberH.SetPIN)
	mux.HandleFunc("DELETE /api/members/{id}/pin", s.familyMemberH.ClearPIN)
	mux.Handle("POST /api/members/{id}/pin/verify", pinLimited(http.HandlerFunc(s.familyMemberH.VerifyPIN)))

	// Tasks
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("PUT /api/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)
	mux.HandleFunc("POST /api/tasks/{id}/complete", s.taskH.Complete)
	mux.HandleFunc("POST /api/tasks/{id}/reopen", s.taskH.Reopen)

	// Calendar
	mux.HandleFunc("GET /api/events", s.calendarEventH.List)
	mux.HandleFunc("POST /api/events", s.calendarEventH.Create)
	mux.HandleFunc("GET /api/events/{id}", s.calendarEventH.Get)
	mux.HandleFunc("DELETE /api/events/{id}", s.calendarEventH.Delete)

	// Intentions
	mux.HandleFunc("GET /api/intentions", s.intentionH.List)
	mux.HandleFunc("POST /api/intentions", s.intentionH.Create)
	mux.HandleFunc("PUT /api/intentions/{id}/status", s.intentionH.SetStatus)

	// Rewards and points
	mux.HandleFunc("GET /api/rewards", s.rewardH.List)
	mux.Handle("POST /api/rewards", adult(s.rewardH.Create))
	mux.Handle("PUT /api/rewards/{id}", adult(s.rewardH.Update))
	mux.Handle("DELETE /api/rewards/{id}", adult(s.rewardH.Delete))
	mux.HandleFunc("POST /api/rewards/{id}/redeem", s.rewardH.Redeem)
	mux.HandleFunc("GET /api/members/{id}/points", s.rewardH.PointBalance)
	mux.HandleFunc("GET /api/leaderboard", s.rewardH.Leaderboard)

	// Live sync
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.allowedOrigins, s.logger.With("component", "websocket")))
}
