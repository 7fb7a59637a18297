package haptics

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	Hs "github.com/zain-sajid/haptics/server"
	Ht "github.com/zain-sajid/haptics/types"
)

// StateData is one session as streamed on /ws
type StateData struct {
	Session  string  `json:"session"`
	Pattern  string  `json:"pattern,omitempty"`
	State    string  `json:"state"`
	Progress float64 `json:"progress"` // 0.0-1.0 of the reset window
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebsocketHandler streams every session's state until the client goes away
func (v *View) WebsocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := conn.WriteJSON(v.GetStateData(time.Now())); err != nil {
				return // Connection closed
			}
		}
	}
}

// GetStateData reads the board, progress is how far into
// its pattern's reset window a Playing session is at now
func (v *View) GetStateData(now time.Time) []StateData {
	if v.Board == nil {
		return []StateData{}
	}

	views := v.Board.Snapshot()
	states := make([]StateData, 0, len(views))
	for _, sv := range views {
		sd := StateData{
			Session: sv.ID,
			State:   Hs.StateString(sv.State),
		}
		if sv.State == Ht.Playing {
			sd.Pattern = sv.Pattern
			sd.Progress = v.progress(sv, now)
		}
		states = append(states, sd)
	}
	return states
}

func (v *View) progress(sv Hs.SessionView, now time.Time) float64 {
	p, err := v.Board.Pattern(sv.ID)
	if err != nil || p.Duration <= 0 {
		return 0
	}
	f := float64(now.Sub(sv.StartedAt)) / float64(p.Duration)
	return min(max(f, 0), 1)
}
