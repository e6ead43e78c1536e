package httpadapter

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"tileworld/internal/app/inspect"
	"tileworld/internal/app/ports"
	"tileworld/internal/app/replay"
	"tileworld/internal/app/tick"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var ErrManualTickDisabled = errors.New("manual ticks are disabled while the runner is active")

type tickStepper interface {
	Step(ctx context.Context) (tick.Response, error)
}

type kpiSnapshotProvider interface {
	SnapshotAny() any
}

type tickIndex interface {
	ClaimsAt(ctx context.Context, runID string, x, y int) ([]int, error)
	ModeCounts(ctx context.Context, runID string) (map[string]int, error)
	StatsAny() any
}

type observerStats interface {
	Sessions() int
	Dropped() uint64
}

type Handler struct {
	InspectUC inspect.UseCase
	ReplayUC  replay.UseCase
	// Stepper serves POST /api/tick; nil disables manual ticks.
	Stepper tickStepper
	RunID   string
	KPI     kpiSnapshotProvider
	// Index and Observer are optional; their routes answer 404 when unset.
	Index    tickIndex
	Observer observerStats
}

func (h Handler) RegisterRoutes(s *server.Hertz) {
	s.Use(corsMiddleware())
	api := s.Group("/api")
	api.GET("/agents", h.agents)
	api.GET("/agents/:id", h.agent)
	api.GET("/agents/:id/memory", h.memory)
	api.GET("/agents/:id/checkpoint", h.checkpoint)
	api.GET("/zones", h.zones)
	api.GET("/ticks", h.ticks)
	api.GET("/claims", h.claims)
	api.POST("/tick", h.step)

	s.GET("/ops/kpi", h.kpi)
	s.GET("/ops/index", h.indexStats)
	s.GET("/ops/observer", h.observer)
}

func (h Handler) agents(c context.Context, ctx *app.RequestContext) {
	resp, err := h.InspectUC.Execute(c, inspect.Request{})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) agent(c context.Context, ctx *app.RequestContext) {
	id, ok := agentIDParam(ctx)
	if !ok {
		return
	}
	resp, err := h.InspectUC.Execute(c, inspect.Request{
		AgentID:       id,
		IncludeMemory: queryBool(ctx, "include_memory"),
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp.Agents[0])
}

func (h Handler) memory(c context.Context, ctx *app.RequestContext) {
	id, ok := agentIDParam(ctx)
	if !ok {
		return
	}
	resp, err := h.InspectUC.Execute(c, inspect.Request{AgentID: id, IncludeMemory: true})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp.Agents[0].Memory)
}

func (h Handler) checkpoint(c context.Context, ctx *app.RequestContext) {
	id, ok := agentIDParam(ctx)
	if !ok {
		return
	}
	cp, err := h.InspectUC.Checkpoint(c, inspect.CheckpointRequest{RunID: h.runID(ctx), AgentID: id})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, cp)
}

// zones renders the partition as a GeoJSON FeatureCollection in cell
// coordinates: one polygon per zone and one multipoint of its anchors.
func (h Handler) zones(c context.Context, ctx *app.RequestContext) {
	resp, err := h.InspectUC.Zones(c)
	if err != nil {
		writeError(ctx, err)
		return
	}
	fc := geojson.NewFeatureCollection()
	for _, z := range resp.Assignment.Zones {
		area := geojson.NewFeature(z.Polygon())
		area.Properties["zone_id"] = z.ID
		area.Properties["agents"] = agentsIn(resp.Assignment.ByAgent, z.ID)
		fc.Append(area)

		anchors := make(orb.MultiPoint, 0, len(z.Anchors))
		for _, p := range z.Anchors {
			anchors = append(anchors, orb.Point{float64(p.X), float64(p.Y)})
		}
		pts := geojson.NewFeature(anchors)
		pts.Properties["zone_id"] = z.ID
		pts.Properties["role"] = "anchors"
		fc.Append(pts)
	}
	fc.ExtraMembers = geojson.Properties{"partitioned": resp.Partitioned}
	b, err := fc.MarshalJSON()
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.Data(consts.StatusOK, "application/geo+json", b)
}

func (h Handler) ticks(c context.Context, ctx *app.RequestContext) {
	limit, _ := strconv.Atoi(string(ctx.Query("limit")))
	agentID, _ := strconv.Atoi(string(ctx.Query("agent_id")))
	from, _ := strconv.ParseInt(string(ctx.Query("from")), 10, 64)
	to, _ := strconv.ParseInt(string(ctx.Query("to")), 10, 64)
	resp, err := h.ReplayUC.Execute(c, replay.Request{
		RunID:    h.runID(ctx),
		Limit:    limit,
		AgentID:  agentID,
		FromTick: from,
		ToTick:   to,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

// claims lists the agents that claimed cell (x,y), oldest claim first.
func (h Handler) claims(c context.Context, ctx *app.RequestContext) {
	if h.Index == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "tick index not configured")
		return
	}
	x, errX := strconv.Atoi(string(ctx.Query("x")))
	y, errY := strconv.Atoi(string(ctx.Query("y")))
	if errX != nil || errY != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "x and y must be integers")
		return
	}
	runID := h.runID(ctx)
	agents, err := h.Index.ClaimsAt(c, runID, x, y)
	if err != nil {
		writeError(ctx, err)
		return
	}
	if agents == nil {
		agents = []int{}
	}
	ctx.JSON(consts.StatusOK, map[string]any{
		"run_id": runID,
		"x":      x,
		"y":      y,
		"agents": agents,
	})
}

func (h Handler) step(c context.Context, ctx *app.RequestContext) {
	if h.Stepper == nil {
		writeError(ctx, ErrManualTickDisabled)
		return
	}
	resp, err := h.Stepper.Step(c)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp.Summary)
}

func (h Handler) kpi(_ context.Context, ctx *app.RequestContext) {
	if h.KPI == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "kpi provider not configured")
		return
	}
	ctx.JSON(consts.StatusOK, h.KPI.SnapshotAny())
}

func (h Handler) indexStats(c context.Context, ctx *app.RequestContext) {
	if h.Index == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "tick index not configured")
		return
	}
	runID := h.runID(ctx)
	modes, err := h.Index.ModeCounts(c, runID)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{
		"run_id": runID,
		"queue":  h.Index.StatsAny(),
		"modes":  modes,
	})
}

func (h Handler) observer(_ context.Context, ctx *app.RequestContext) {
	if h.Observer == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "observer not configured")
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{
		"sessions": h.Observer.Sessions(),
		"dropped":  h.Observer.Dropped(),
	})
}

// runID is the run_id query parameter, defaulting to the live run.
func (h Handler) runID(ctx *app.RequestContext) string {
	if v := strings.TrimSpace(string(ctx.Query("run_id"))); v != "" {
		return v
	}
	return h.RunID
}

func agentIDParam(ctx *app.RequestContext) (int, bool) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_agent_id", "agent id must be a positive integer")
		return 0, false
	}
	return id, true
}

func queryBool(ctx *app.RequestContext, key string) bool {
	v, _ := strconv.ParseBool(string(ctx.Query(key)))
	return v
}

func agentsIn(byAgent map[int]int, zoneID int) []int {
	out := []int{}
	for id, z := range byAgent {
		if z == zoneID {
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}

func writeError(ctx *app.RequestContext, err error) {
	switch {
	case errors.Is(err, inspect.ErrInvalidRequest),
		errors.Is(err, replay.ErrInvalidRequest):
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, ErrManualTickDisabled):
		writeErrorBody(ctx, consts.StatusConflict, "manual_tick_disabled", err.Error())
	case errors.Is(err, tick.ErrNoAgents):
		writeErrorBody(ctx, consts.StatusConflict, "no_agents", err.Error())
	case errors.Is(err, ports.ErrNotFound):
		writeErrorBody(ctx, consts.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ports.ErrConflict):
		writeErrorBody(ctx, consts.StatusConflict, "conflict", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeErrorBody(ctx, consts.StatusServiceUnavailable, "canceled", err.Error())
	default:
		writeErrorBody(ctx, consts.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
