package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"Dauction/internal/events"
	"Dauction/internal/logger"
)

const (
	// defaultEventPage is the page size of GET /events without ?limit.
	defaultEventPage = 100

	// maxEventPage bounds ?limit and each replay page of the stream.
	maxEventPage = 1000

	// streamBuffer is the bus buffer of one websocket subscriber.
	streamBuffer = 256

	writeWait = 5 * time.Second
)

// newUpgrader accepts upgrades from the same origins as the CORS policy.
// Requests without an Origin header come from non-browser clients and pass.
func newUpgrader(origins []string) *websocket.Upgrader {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.ToLower(strings.TrimSuffix(o, "/"))] = true
	}

	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowed["*"] {
				return true
			}

			return allowed[strings.ToLower(origin)]
		},
	}
}

// handleEvents handles GET /events?from=&limit= requests.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Events == nil {
		writeJSON(w, http.StatusOK, []events.Event{})
		return
	}

	from, err := queryUint(r, "from", 0)
	if err != nil {
		fail(w, err)
		return
	}

	limit, err := queryUint(r, "limit", defaultEventPage)
	if err != nil {
		fail(w, err)
		return
	}

	if limit == 0 || limit > maxEventPage {
		limit = maxEventPage
	}

	evs, err := s.cfg.Events.Since(from, int(limit))
	if err != nil {
		writeFailure(w, err)
		return
	}

	if evs == nil {
		evs = []events.Event{}
	}

	writeJSON(w, http.StatusOK, evs)
}

// handleEventStream handles GET /events/ws?from= requests. Committed events
// from the given sequence are replayed, then live events follow in order.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Events == nil || s.cfg.Bus == nil {
		http.Error(w, "event stream disabled", http.StatusNotFound)
		return
	}

	from, err := queryUint(r, "from", s.cfg.Events.Next())
	if err != nil {
		fail(w, err)
		return
	}

	// Subscribe before replaying so nothing committed in between is lost.
	live, cancel := s.cfg.Bus.Subscribe(streamBuffer)
	defer cancel()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	next, err := s.replay(conn, from)
	if err != nil {
		logger.Debug("event replay stopped", "error", err)
		return
	}

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-live:
			if !ok {
				return
			}

			if ev.Seq < next {
				continue
			}

			// A dropped live event leaves a gap; fill it from the log.
			if ev.Seq > next {
				if next, err = s.replay(conn, next); err != nil {
					return
				}
				if ev.Seq < next {
					continue
				}
			}

			if err := send(conn, ev); err != nil {
				return
			}
			next = ev.Seq + 1
		}
	}
}

// replay writes committed events from seq onward and returns the sequence
// after the last one written.
func (s *Server) replay(conn *websocket.Conn, seq uint64) (uint64, error) {
	for {
		evs, err := s.cfg.Events.Since(seq, maxEventPage)
		if err != nil {
			return seq, err
		}

		for _, ev := range evs {
			if err := send(conn, ev); err != nil {
				return seq, err
			}
			seq = ev.Seq + 1
		}

		if len(evs) < maxEventPage {
			return seq, nil
		}
	}
}

func send(conn *websocket.Conn, ev events.Event) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}
