package live

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Willizberc/Pexfin/internal/http/middleware"
	httpreport "github.com/Willizberc/Pexfin/internal/http/report"
	"github.com/Willizberc/Pexfin/internal/live"
	"github.com/Willizberc/Pexfin/internal/logger"
	"github.com/Willizberc/Pexfin/internal/report"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	readLimit  = 512
)

var collections = []live.Collection{
	live.Accounts,
	live.Transactions,
	live.Income,
	live.Expenses,
	live.Budgets,
	live.Goals,
	live.Notifications,
	live.Auth,
}

// homeCollections change what the home screen shows.
var homeCollections = []live.Collection{live.Accounts, live.Transactions, live.Income, live.Expenses}

type Handler struct {
	hub      *live.Hub
	reports  *report.Service
	upgrader websocket.Upgrader
}

func NewHandler(hub *live.Hub, reports *report.Service, allowedOrigins []string) *Handler {
	return &Handler{
		hub:     hub,
		reports: reports,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.serve)
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	if slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}

type eventMessage struct {
	Collection live.Collection `json:"collection"`
	Kind       live.Kind       `json:"kind"`
	ID         string          `json:"id"`
	At         time.Time       `json:"at"`
}

type message struct {
	Type  string                   `json:"type"`
	Event *eventMessage            `json:"event,omitempty"`
	Home  *httpreport.HomeResponse `json:"home,omitempty"`
}

// serve streams the user's change events. A fresh home snapshot is sent on
// connect and after every burst of events that affects it.
func (h *Handler) serve(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustSession(r).UserID
	log := logger.FromContext(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	topics := make([]live.Topic, len(collections))
	for i, c := range collections {
		topics[i] = live.Topic{UserID: userID, Collection: c}
	}

	sub := h.hub.Subscribe(ctx, topics...)
	defer sub.Close()

	go readPump(conn, cancel)

	if err := h.sendHome(ctx, conn, userID); err != nil {
		log.Warn().Err(err).Msg("live snapshot failed")
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub.C:
			if !ok {
				return
			}

			refresh, err := forward(conn, e)
			if err != nil {
				return
			}

			// Coalesce whatever else is already queued into one snapshot.
			for drained := false; !drained; {
				select {
				case next, ok := <-sub.C:
					if !ok {
						return
					}

					more, err := forward(conn, next)
					if err != nil {
						return
					}

					refresh = refresh || more
				default:
					drained = true
				}
			}

			if refresh {
				if err := h.sendHome(ctx, conn, userID); err != nil {
					log.Warn().Err(err).Msg("live snapshot failed")
					return
				}
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// forward writes e and reports whether it invalidates the home snapshot.
func forward(conn *websocket.Conn, e live.Event) (bool, error) {
	msg := message{
		Type: "event",
		Event: &eventMessage{
			Collection: e.Topic.Collection,
			Kind:       e.Kind,
			ID:         e.ID,
			At:         e.At,
		},
	}

	if err := write(conn, msg); err != nil {
		return false, err
	}

	return slices.Contains(homeCollections, e.Topic.Collection), nil
}

func (h *Handler) sendHome(ctx context.Context, conn *websocket.Conn, userID uuid.UUID) error {
	home, err := h.reports.Home(ctx, userID)
	if err != nil {
		return err
	}

	resp := httpreport.ToHomeResponse(home)

	return write(conn, message{Type: "home", Home: &resp})
}

func write(conn *websocket.Conn, msg message) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

// readPump discards client messages and handles pongs. It cancels the
// stream when the peer goes away.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
