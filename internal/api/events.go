package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/matzehuels/recompose/pkg/design"
	"github.com/matzehuels/recompose/pkg/reconcile"
)

// eventBufferSize is how many store events a slow client may lag behind
// before events are dropped for it.
const eventBufferSize = 64

type eventMessage struct {
	Kind    string          `json:"kind"`
	Key     reconcile.Key   `json:"key"`
	Payload *design.Payload `json:"payload,omitempty"`
	Version uint64          `json:"version"`
}

// handleEvents streams store events as server-sent events until the client
// goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	events := make(chan reconcile.Event, eventBufferSize)
	unsubscribe := s.Runner.Store.Subscribe(func(ev reconcile.Event) {
		select {
		case events <- ev:
		default:
			s.Logger.Warn("dropped event for slow client", "key", ev.Key)
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-events:
			msg := eventMessage{Key: ev.Key, Version: ev.Version, Kind: "committed"}
			if ev.Kind == reconcile.EventRemoved {
				msg.Kind = "removed"
			} else {
				p := ev.Payload
				msg.Payload = &p
			}
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Kind, data)
			flusher.Flush()
		}
	}
}
