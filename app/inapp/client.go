package inapp

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"kawan/auth"
	"kawan/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client represents one live notification connection
type Client struct {
	conn     *websocket.Conn
	wsServer *WsServer
	send     chan []byte
	id       uuid.UUID
	Username string `json:"username"`
}

func newClient(conn *websocket.Conn, wsServer *WsServer, username string, ID string) *Client {
	client := &Client{
		Username: username,
		conn:     conn,
		wsServer: wsServer,
		send:     make(chan []byte, 256),
	}

	if ID != "" {
		client.id, _ = uuid.Parse(ID)
	}

	return client
}

// ServeWs handles websocket requests from clients requests.
func ServeWs(wsServer *WsServer, c *gin.Context, devmode int) {
	userCtxValue, ok := c.Get("validuser")
	if !ok {
		utils.Log().Info("Not authenticated")
		return
	}

	user := userCtxValue.(*auth.Claims)
	if user.IsExpired() {
		utils.Log().Info("User token expired")
		return
	}

	var upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	if devmode > 0 {
		upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return strings.HasPrefix(origin, "http://192.168.") || strings.HasPrefix(origin, "http://localhost")
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.Log().Error(err, "error while upgrading to websocket")
		return
	}

	client := newClient(conn, wsServer, user.GetUsername(), user.GetUID())

	go client.writeThread()
	go client.readThread()

	wsServer.register <- client
	utils.Log().Info("ServeWs " + user.GetUsername())
}

func (me *Client) GetUID() string {
	return me.id.String()
}

func (me *Client) GetUsername() string {
	return me.Username
}

func (me *Client) SendMsg(message []byte) {
	select {
	case me.send <- message:
	default:
		utils.Log().V(2).Info(fmt.Sprintf("send buffer full for %s", me.Username))
	}
}

// readThread only keeps the connection alive, the notification stream is
// one-way from server to client.
func (me *Client) readThread() {
	defer me.disconnect()

	me.conn.SetReadDeadline(time.Now().Add(pongWait))
	me.conn.SetPongHandler(func(string) error {
		// keep connection alive
		me.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := me.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				utils.Log().Error(err, "unexpected websocket close error")
				break
			}

			if strings.Contains(err.Error(), "close") {
				utils.Log().V(2).Info(fmt.Sprintf("client @%s close connection", me.GetUsername()))
				break
			}

			utils.Log().Error(err, "error while reading message")
			break
		}
	}
}

func (me *Client) writeThread() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		me.conn.Close()
	}()
	for {
		select {
		case message, ok := <-me.send:
			me.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The WsServer closed the channel.
				me.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := me.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Attach queued payloads to the current websocket message.
			n := len(me.send)
			for i := 0; i < n; i++ {
				w.Write(newline)
				w.Write(<-me.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			me.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := me.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (me *Client) disconnect() {
	utils.Log().Info("disconnect " + me.Username)
	me.wsServer.unregister <- me
	close(me.send)
	me.conn.Close()
}
