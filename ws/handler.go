package ws

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"roastmarket_backend/pkg/contextkeys"
)

type WebSocketHandler struct {
	Manager  *WebSocketManager
	upgrader websocket.Upgrader
}

// NewWebSocketHandler builds the /ws upgrade handler. An empty
// allowedOrigins list accepts same-host requests only.
func NewWebSocketHandler(manager *WebSocketManager, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		Manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// ServeWS godoc
// @Summary      Realtime channel
// @Description  Upgrades to a WebSocket carrying order tracking and notification frames
// @Tags         realtime
// @Param        token  query  string  false  "Access token when no Authorization header can be sent"
// @Success      101
// @Router       /ws [get]
func (h *WebSocketHandler) ServeWS(c *gin.Context) {
	var session *Identity
	if userID := c.GetString(contextkeys.UserIDKey); userID != "" {
		session = &Identity{UserID: userID, Role: c.GetString(contextkeys.RoleKey)}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		h.Manager.log.Warn("websocket upgrade failed", "error", err, "remote", c.ClientIP())
		return
	}

	h.Manager.ServeConn(conn, session)
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	wildcard := false
	for _, o := range allowed {
		o = strings.TrimRight(strings.ToLower(o), "/")
		if o == "*" {
			wildcard = true
		}
		set[o] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || wildcard {
			return true
		}
		if _, ok := set[strings.ToLower(origin)]; ok {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}
