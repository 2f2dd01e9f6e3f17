package api

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/DonQuixuote/shape-tcg/internal/constants"
	"github.com/DonQuixuote/shape-tcg/internal/logging"
)

// newUpgrader accepts browser origins listed in allowed plus same-origin
// requests. Requests without an Origin header are not from browsers and
// are accepted.
func newUpgrader(allowed []string) websocket.Upgrader {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o = normalizeOrigin(o); o != "" {
			set[o] = true
		}
	}
	return websocket.Upgrader{CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if set[normalizeOrigin(origin)] {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}}
}

func normalizeOrigin(o string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
}

// streamEndMessage is the close frame sent once the event channel closes.
// Subscribers dropped for lagging are told to reconnect.
func streamEndMessage(dropped bool) []byte {
	if dropped {
		return websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "subscriber fell behind")
	}
	return websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
}

// BattleEvents streams a battle's events as JSON frames over a websocket.
// The first frame is the current state. The server closes the socket after
// the result frame; anything the client sends is ignored.
func (h *Handler) BattleEvents(c *gin.Context) {
	id := c.Param("battleID")
	sess, err := h.battles.Get(id)
	if err != nil {
		writeBattleError(c, err)
		return
	}
	sub, err := sess.Subscribe()
	if err != nil {
		writeBattleError(c, err)
		return
	}
	defer sub.Cancel()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warn("websocket upgrade failed", err, logging.Fields{constants.LogFieldBattleID: id})
		return
	}
	defer conn.Close()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-sub.Events:
			if !ok {
				if sub.Dropped() {
					logging.Warn("battle stream dropped", nil, logging.Fields{constants.LogFieldBattleID: id})
				}
				_ = conn.WriteMessage(websocket.CloseMessage, streamEndMessage(sub.Dropped()))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					logging.Debug("websocket write failed", logging.Fields{constants.LogFieldBattleID: id, "error": err.Error()})
				}
				return
			}
		case <-gone:
			return
		}
	}
}
