package haptics

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	Hp "github.com/zain-sajid/haptics/plugin"
	Hs "github.com/zain-sajid/haptics/server"
	Ht "github.com/zain-sajid/haptics/types"
)

// SetupMux handles all data serving:
// - Prometheus metric endpoint
// - Websocket streaming session state
// - Version for programmatic use
// - Pattern and effect triggers
// - Playback history
func (v *View) SetupMux() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/metrics", v.Stats.Handler())
	r.HandleFunc("/ws", v.WebsocketHandler)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(v.StatsMiddleware)

	api.HandleFunc("/version", v.VersionHandler).Methods(http.MethodGet)
	api.HandleFunc("/patterns", v.PatternsHandler).Methods(http.MethodGet)
	api.HandleFunc("/patterns/{name}", v.PatternHandler).Methods(http.MethodGet)
	api.HandleFunc("/patterns/{name}/ahap", v.AHAPHandler).Methods(http.MethodGet)
	api.HandleFunc("/patterns/{name}/play", v.PlayHandler).Methods(http.MethodPost)
	api.HandleFunc("/effects", v.EffectsHandler).Methods(http.MethodGet)
	api.HandleFunc("/effects/{name}/play", v.EffectHandler).Methods(http.MethodPost)
	api.HandleFunc("/history", v.HistoryHandler).Methods(http.MethodGet)

	return r
}

var Version = "dev"

func (v *View) VersionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": Version})
}

// PatternData is one trigger control as the surface sees it
type PatternData struct {
	Name      string    `json:"name"`
	Label     string    `json:"label"`
	Color     string    `json:"color"`
	State     string    `json:"state"`
	Events    int       `json:"events"`
	Duration  float64   `json:"duration"`
	StartedAt time.Time `json:"startedAt,omitzero"`
}

func (v *View) patternData(info Hs.PatternInfo) (PatternData, error) {
	p, err := v.Board.Pattern(info.Name)
	if err != nil {
		return PatternData{}, err
	}
	s, err := v.Board.Session(info.Name)
	if err != nil {
		return PatternData{}, err
	}
	view := s.Snapshot()

	pd := PatternData{
		Name:     info.Name,
		Label:    info.Label,
		Color:    info.Color,
		State:    Hs.StateString(view.State),
		Events:   len(p.Events),
		Duration: p.Duration.Seconds(),
	}
	if view.State == Ht.Playing {
		pd.StartedAt = view.StartedAt
	}
	return pd, nil
}

func (v *View) PatternsHandler(w http.ResponseWriter, r *http.Request) {
	var all []PatternData
	for _, info := range Hs.Patterns() {
		pd, err := v.patternData(info)
		if err != nil {
			writeError(w, err)
			return
		}
		all = append(all, pd)
	}
	writeJSON(w, http.StatusOK, all)
}

// EventData is one event of a pattern timeline, times in seconds
type EventData struct {
	Kind      string  `json:"kind"`
	Intensity float64 `json:"intensity"`
	Sharpness float64 `json:"sharpness"`
	Offset    float64 `json:"offset"`
	Duration  float64 `json:"duration"`
}

func (v *View) PatternHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	info, err := Hs.LookupPattern(name)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := v.Board.Pattern(name)
	if err != nil {
		writeError(w, err)
		return
	}

	events := make([]EventData, 0, len(p.Events))
	for _, ev := range p.Events {
		events = append(events, EventData{
			Kind:      Hs.KindString(ev.Kind),
			Intensity: ev.Intensity,
			Sharpness: ev.Sharpness,
			Offset:    ev.Offset.Seconds(),
			Duration:  ev.Duration.Seconds(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":     info.Name,
		"label":    info.Label,
		"duration": p.Duration.Seconds(),
		"span":     Hs.EventSpan(p).Seconds(),
		"events":   events,
	})
}

// AHAPHandler exports a catalog pattern as an AHAP document
func (v *View) AHAPHandler(w http.ResponseWriter, r *http.Request) {
	p, err := v.Board.Pattern(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := Hp.EncodeAHAP(p)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// PlayResult answers a trigger tap
type PlayResult struct {
	Pattern string `json:"pattern"`
	Outcome string `json:"outcome"`
	State   string `json:"state"`
}

// PlayHandler is the trigger tap. Taps while Playing or on a device
// without an actuator succeed with the outcome saying nothing happened.
func (v *View) PlayHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	start := time.Now()
	outcome, err := v.Board.Play(r.Context(), name)
	if err != nil {
		if !errors.Is(err, Hs.ErrUnknownPattern) {
			v.Stats.RecPlay(name, outcome.String(), time.Since(start).Seconds())
		}
		writeError(w, err)
		return
	}
	v.Stats.RecPlay(name, outcome.String(), time.Since(start).Seconds())

	state, _ := v.Board.State(name)
	writeJSON(w, http.StatusOK, PlayResult{
		Pattern: name,
		Outcome: outcome.String(),
		State:   Hs.StateString(state),
	})
}

// EffectData is one feedback effect from the catalog
type EffectData struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Family string `json:"family"`
	Color  string `json:"color"`
	Filled bool   `json:"filled"`
}

func (v *View) EffectsHandler(w http.ResponseWriter, r *http.Request) {
	var all []EffectData
	for _, fx := range Hs.Effects() {
		all = append(all, EffectData{
			Name:   fx.Name,
			Label:  fx.Label,
			Family: fx.Family,
			Color:  fx.Color,
			Filled: fx.Filled,
		})
	}
	writeJSON(w, http.StatusOK, all)
}

func (v *View) EffectHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := v.Board.Trigger(name); err != nil {
		if !errors.Is(err, Hs.ErrUnknownPattern) {
			v.Stats.RecEffect(name, "failed")
		}
		writeError(w, err)
		return
	}
	v.Stats.RecEffect(name, "ok")
	writeJSON(w, http.StatusOK, map[string]string{"effect": name})
}

// HistoryData is one finished play cycle
type HistoryData struct {
	ID        string    `json:"id"`
	Session   string    `json:"session"`
	Pattern   string    `json:"pattern"`
	Events    int       `json:"events"`
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
}

// HistoryHandler lists cycles started at or after ?since=,
// unix seconds, up to now
func (v *View) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	since := time.Unix(0, 0)
	if q := r.URL.Query().Get("since"); q != "" {
		secs, err := strconv.ParseInt(q, 10, 64)
		if err != nil {
			http.Error(w, "since must be unix seconds", http.StatusBadRequest)
			return
		}
		since = time.Unix(secs, 0)
	}

	recs, err := v.Board.History(since, time.Now().Add(time.Second))
	if err != nil {
		slog.Error("Could not read history", slog.Any("error", err))
		writeError(w, err)
		return
	}

	all := make([]HistoryData, 0, len(recs))
	for _, rec := range recs {
		all = append(all, HistoryData{
			ID:        rec.ID,
			Session:   rec.Session,
			Pattern:   rec.Pattern,
			Events:    rec.Events,
			Outcome:   rec.Outcome,
			Error:     rec.Error,
			StartedAt: rec.StartedAt,
			EndedAt:   rec.EndedAt,
		})
	}
	writeJSON(w, http.StatusOK, all)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Could not encode response", slog.Any("error", err))
	}
}

// writeError maps domain errors onto status codes
func writeError(w http.ResponseWriter, err error) {
	var ee *Hs.EngineError
	switch {
	case errors.Is(err, Hs.ErrUnknownPattern):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &ee):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
