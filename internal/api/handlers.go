package api

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/google/uuid"

    "routepilot/internal/importer"
    "routepilot/internal/model"
    "routepilot/internal/stops"
)

// StopsHandler handles POST/GET /v1/stops
func (s *Server) StopsHandler(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodPost:
        var req struct {
            Stops []model.StopIn `json:"stops"`
        }
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if len(req.Stops) == 0 {
            writeProblem(w, http.StatusBadRequest, "Invalid import", "no stops in payload", r.URL.Path)
            return
        }
        created, err := buildStops(len(s.Stops.All()), req.Stops)
        if err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid stop", err.Error(), r.URL.Path)
            return
        }
        s.Stops.Append(created...)
        s.persist(r.Context())
        writeJSON(w, http.StatusCreated, map[string]any{"stops": created, "generation": s.Stops.Generation()})
    case http.MethodGet:
        writeJSON(w, http.StatusOK, map[string]any{
            "stops":        s.Stops.All(),
            "generation":   s.Stops.Generation(),
            "routeStarted": s.Stops.RouteStarted(),
        })
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// buildStops assigns ids and fallback labels to an import batch. base is
// the count of stops already in the session, so labels keep counting up.
func buildStops(base int, ins []model.StopIn) ([]model.Stop, error) {
    out := make([]model.Stop, 0, len(ins))
    for i, in := range ins {
        if err := validateStopIn(in); err != nil {
            return nil, err
        }
        st := model.Stop{
            ID:         uuid.New().String(),
            Label:      in.Label,
            RawAddress: in.RawAddress,
            Geo:        in.Geo,
            Status:     model.StatusPending,
            Notes:      in.Notes,
        }
        if st.Label == "" { st.Label = fmt.Sprintf("Stop %d", base+i+1) }
        if st.Geo != nil { st.Coordinate = st.Geo.Coord() }
        out = append(out, st)
    }
    return out, nil
}

// StopsImportHandler handles POST /v1/stops/import with a text/csv body
func (s *Server) StopsImportHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    ins, err := importer.ParseCSV(r.Body)
    if err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid CSV", err.Error(), r.URL.Path)
        return
    }
    created, err := buildStops(len(s.Stops.All()), ins)
    if err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid stop", err.Error(), r.URL.Path)
        return
    }
    s.Stops.Append(created...)
    s.persist(r.Context())
    writeJSON(w, http.StatusCreated, map[string]any{"stops": created, "generation": s.Stops.Generation()})
}

// StopByIDHandler handles /v1/stops/{id} and /v1/stops/{id}/{complete|skip}
func (s *Server) StopByIDHandler(w http.ResponseWriter, r *http.Request) {
    rest := strings.TrimPrefix(r.URL.Path, "/v1/stops/")
    parts := strings.Split(rest, "/")
    if parts[0] == "" {
        writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
        return
    }
    id := parts[0]
    if len(parts) == 1 {
        switch r.Method {
        case http.MethodGet:
            st, err := s.Stops.Get(id)
            if err != nil {
                writeProblem(w, http.StatusNotFound, "Not Found", "no such stop", r.URL.Path)
                return
            }
            writeJSON(w, http.StatusOK, st)
        case http.MethodDelete:
            if err := s.Stops.Remove(id); err != nil {
                s.writeStopError(w, r, err)
                return
            }
            s.persist(r.Context())
            w.WriteHeader(http.StatusNoContent)
        default:
            w.WriteHeader(http.StatusMethodNotAllowed)
        }
        return
    }
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    switch parts[1] {
    case "complete":
        var pod model.PoDIn
        if r.Body != nil { _ = json.NewDecoder(r.Body).Decode(&pod) }
        if err := s.Stops.MarkStatus(id, model.StatusDone, &pod); err != nil {
            s.writeStopError(w, r, err)
            return
        }
        if st, err := s.Stops.Get(id); err == nil && st.PoD != nil {
            _, _ = s.Store.CreatePoD(r.Context(), id, *st.PoD)
        }
        s.persist(r.Context())
        writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": model.StatusDone})
    case "skip":
        if err := s.Stops.MarkStatus(id, model.StatusSkipped, nil); err != nil {
            s.writeStopError(w, r, err)
            return
        }
        s.persist(r.Context())
        writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": model.StatusSkipped})
    default:
        writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
    }
}

func (s *Server) writeStopError(w http.ResponseWriter, r *http.Request, err error) {
    switch {
    case errors.Is(err, stops.ErrNotFound):
        writeProblem(w, http.StatusNotFound, "Not Found", "no such stop", r.URL.Path)
    case errors.Is(err, stops.ErrTerminalStatus):
        writeProblem(w, http.StatusConflict, "Conflict", "stop is already in a terminal status", r.URL.Path)
    case errors.Is(err, stops.ErrRouteStarted):
        writeProblem(w, http.StatusConflict, "Conflict", "route already started", r.URL.Path)
    case errors.Is(err, stops.ErrBadSwap), errors.Is(err, stops.ErrBadOrder):
        writeProblem(w, http.StatusUnprocessableEntity, "Invalid reorder", err.Error(), r.URL.Path)
    default:
        writeProblem(w, http.StatusInternalServerError, "Internal Error", err.Error(), r.URL.Path)
    }
}

// RoutePlanHandler handles POST /v1/route/plan
func (s *Server) RoutePlanHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    var req model.PlanRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    origin := req.Origin
    if origin == (model.Coordinate{}) {
        if pos, ok := s.Positions.Origin(); ok { origin = pos }
    }
    if err := validateOrigin(origin); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid origin", err.Error(), r.URL.Path)
        return
    }
    s.Coord.RequestInitialPlan(origin)
    writeJSON(w, http.StatusAccepted, s.Coord.Status())
}

// RouteSwapHandler handles POST /v1/route/swap
func (s *Server) RouteSwapHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    var req model.SwapRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if err := s.Coord.RequestManualSwap(req.IndexA, req.IndexB); err != nil {
        s.writeStopError(w, r, err)
        return
    }
    s.persist(r.Context())
    if rt := s.Coord.ActiveRoute(); rt != nil {
        writeJSON(w, http.StatusOK, rt)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"status": "reordered"})
}

// RouteActiveHandler handles GET /v1/route/active
func (s *Server) RouteActiveHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    rt := s.Coord.ActiveRoute()
    if rt == nil {
        writeProblem(w, http.StatusNotFound, "No Active Route", "no plan has completed yet", r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, rt)
}

// RouteStatusHandler handles GET /v1/route/status
func (s *Server) RouteStatusHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    writeJSON(w, http.StatusOK, s.Coord.Status())
}

// RouteEventsHandler streams session events over SSE at /v1/route/events/stream
func (s *Server) RouteEventsHandler(w http.ResponseWriter, r *http.Request) {
    flusher, ok := w.(http.Flusher)
    if !ok {
        writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
        return
    }
    w.Header().Set("Content-Type", "text/event-stream")
    w.Header().Set("Cache-Control", "no-cache")
    w.Header().Set("Connection", "keep-alive")
    ch := s.Broker.Subscribe()
    defer s.Broker.Unsubscribe(ch)
    // initial heartbeat
    fmt.Fprintf(w, "event: heartbeat\n")
    fmt.Fprintf(w, "data: {\"ts\":\"%s\"}\n\n", time.Now().Format(time.RFC3339))
    flusher.Flush()
    notify := r.Context().Done()
    for {
        select {
        case <-notify:
            return
        case evt := <-ch:
            b, _ := json.Marshal(evt.Data)
            fmt.Fprintf(w, "event: %s\n", evt.Type)
            fmt.Fprintf(w, "data: %s\n\n", string(b))
            flusher.Flush()
        case <-time.After(15 * time.Second):
            fmt.Fprintf(w, "event: heartbeat\n")
            fmt.Fprintf(w, "data: {\"ts\":\"%s\"}\n\n", time.Now().Format(time.RFC3339))
            flusher.Flush()
        }
    }
}

// LocationHandler handles POST/GET /v1/location
func (s *Server) LocationHandler(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodPost:
        var body DriverPosition
        if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if body.TS == "" { body.TS = time.Now().UTC().Format(time.RFC3339) }
        s.Positions.Upsert(body.Lat, body.Lng, body.TS)
        writeJSON(w, http.StatusOK, body)
    case http.MethodGet:
        pos, ok := s.Positions.Latest()
        if !ok {
            writeProblem(w, http.StatusNotFound, "Not Found", "no position reported", r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, pos)
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodPost:
        var req model.SubscriptionRequest
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if err := validateSubscription(req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid subscription", err.Error(), r.URL.Path)
            return
        }
        sub, err := s.Store.CreateSubscription(r.Context(), req)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusCreated, sub)
    case http.MethodGet:
        cursor := r.URL.Query().Get("cursor")
        limit := 100
        if v := r.URL.Query().Get("limit"); v != "" { fmt.Sscanf(v, "%d", &limit) }
        items, next, err := s.Store.ListSubscriptions(r.Context(), cursor, limit)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "List subscriptions failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodDelete {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
    if id == "" {
        writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
        return
    }
    if err := s.Store.DeleteSubscription(r.Context(), id); err != nil {
        writeProblem(w, http.StatusNotFound, "Not Found", "no such subscription", r.URL.Path)
        return
    }
    w.WriteHeader(http.StatusNoContent)
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
    // Check DB connectivity when using Postgres store
    type pinger interface{ Ping(ctx context.Context) error }
    if pg, ok := s.Store.(pinger); ok {
        ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
        defer cancel()
        if err := pg.Ping(ctx); err != nil { writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path); return }
    }
    writeJSON(w, 200, map[string]string{"status": "ready"})
}
