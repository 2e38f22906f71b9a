package live_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Willizberc/Pexfin/internal/account"
	httplive "github.com/Willizberc/Pexfin/internal/http/live"
	"github.com/Willizberc/Pexfin/internal/live"
	"github.com/Willizberc/Pexfin/internal/report"
	"github.com/Willizberc/Pexfin/internal/session"
)

type message struct {
	Type  string `json:"type"`
	Event *struct {
		Collection live.Collection `json:"collection"`
		Kind       live.Kind       `json:"kind"`
		ID         string          `json:"id"`
	} `json:"event"`
	Home *struct {
		DisplayName string `json:"display_name"`
		Balance     int64  `json:"balance"`
	} `json:"home"`
}

func newServer(t *testing.T, userID uuid.UUID, hub *live.Hub) *httptest.Server {
	t.Helper()

	ctrl := gomock.NewController(t)
	ledger := report.NewMockLedger(ctrl)
	accounts := report.NewMockAccounts(ctrl)
	profiles := report.NewMockProfiles(ctrl)

	profiles.EXPECT().DisplayName(gomock.Any(), userID).Return("Ana", nil).AnyTimes()
	accounts.EXPECT().Get(gomock.Any(), userID).Return(&account.Account{UserID: userID, Currency: "EUR", Balance: 4200}, nil).AnyTimes()
	ledger.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	reports := report.NewService(ledger, accounts, profiles, time.UTC)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := session.WithSession(req.Context(), session.Session{UserID: userID})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/live", httplive.NewHandler(hub, reports, []string{"http://app.local"}).Routes)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return srv
}

func dial(t *testing.T, srv *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()

	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}

	return websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/live", header)
}

func read(t *testing.T, conn *websocket.Conn) message {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var msg message
	require.NoError(t, conn.ReadJSON(&msg))

	return msg
}

func TestHandler_StreamsEventsAndSnapshots(t *testing.T) {
	hub := live.NewHub()
	userID := uuid.New()
	srv := newServer(t, userID, hub)

	conn, _, err := dial(t, srv, "http://app.local")
	require.NoError(t, err)
	defer conn.Close()

	first := read(t, conn)
	require.Equal(t, "home", first.Type)
	assert.Equal(t, "Ana", first.Home.DisplayName)
	assert.Equal(t, int64(4200), first.Home.Balance)

	hub.Publish(live.Event{Topic: live.Topic{UserID: userID, Collection: live.Notifications}, Kind: live.KindCreated, ID: "n1"})
	hub.Publish(live.Event{Topic: live.Topic{UserID: userID, Collection: live.Transactions}, Kind: live.KindCreated, ID: "t1"})

	msg := read(t, conn)
	require.Equal(t, "event", msg.Type)
	assert.Equal(t, live.Notifications, msg.Event.Collection)
	assert.Equal(t, "n1", msg.Event.ID)

	msg = read(t, conn)
	require.Equal(t, "event", msg.Type)
	assert.Equal(t, live.Transactions, msg.Event.Collection)
	assert.Equal(t, live.KindCreated, msg.Event.Kind)

	msg = read(t, conn)
	assert.Equal(t, "home", msg.Type)
}

func TestHandler_IgnoresOtherUsers(t *testing.T) {
	hub := live.NewHub()
	userID := uuid.New()
	srv := newServer(t, userID, hub)

	conn, _, err := dial(t, srv, "")
	require.NoError(t, err)
	defer conn.Close()

	require.Equal(t, "home", read(t, conn).Type)

	hub.Publish(live.Event{Topic: live.Topic{UserID: uuid.New(), Collection: live.Budgets}, Kind: live.KindUpdated, ID: "other"})
	hub.Publish(live.Event{Topic: live.Topic{UserID: userID, Collection: live.Budgets}, Kind: live.KindUpdated, ID: "mine"})

	msg := read(t, conn)
	require.Equal(t, "event", msg.Type)
	assert.Equal(t, "mine", msg.Event.ID)
}

func TestHandler_RejectsUnknownOrigin(t *testing.T) {
	srv := newServer(t, uuid.New(), live.NewHub())

	_, resp, err := dial(t, srv, "http://evil.example")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHandler_ReleasesSubscriptionOnDisconnect(t *testing.T) {
	hub := live.NewHub()
	userID := uuid.New()
	srv := newServer(t, userID, hub)

	conn, _, err := dial(t, srv, "")
	require.NoError(t, err)
	require.Equal(t, "home", read(t, conn).Type)

	topic := live.Topic{UserID: userID, Collection: live.Accounts}
	assert.Equal(t, 1, hub.Subscribers(topic))

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		return hub.Subscribers(topic) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
