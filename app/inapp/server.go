package inapp

import (
	"fmt"

	"kawan/auth"
	"kawan/utils"

	"github.com/gin-gonic/gin"
)

type delivery struct {
	uid     string
	payload []byte
}

// WsServer holds the live notification connections. A user can be connected
// from more than one device at a time, every connection gets the payload.
type WsServer struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	deliver    chan delivery
}

func NewWebsocketServer() *WsServer {
	return &WsServer{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan delivery, 256),
	}
}

func (server *WsServer) InitRouteTo(rg *gin.Engine, devmode int) {
	rg.GET("/ws", auth.Validate, func(c *gin.Context) {
		ServeWs(server, c, devmode)
	})
}

// Run our websocket server, accepting connections and delivering payloads
func (server *WsServer) Run() {
	for {
		select {
		case client := <-server.register:
			server.registerClient(client)

		case client := <-server.unregister:
			server.unregisterClient(client)

		case d := <-server.deliver:
			for client := range server.clients[d.uid] {
				client.SendMsg(d.payload)
			}
		}
	}
}

// SendToUser queues a payload for every live connection of uid. It never
// blocks, a full queue drops the payload since the record is already stored.
func (server *WsServer) SendToUser(uid string, payload []byte) {
	select {
	case server.deliver <- delivery{uid, payload}:
	default:
		utils.Log().Info(fmt.Sprintf("inapp queue full, dropping payload for %s", uid))
	}
}

func (server *WsServer) registerClient(client *Client) {
	uid := client.GetUID()
	if server.clients[uid] == nil {
		server.clients[uid] = make(map[*Client]bool)
	}
	server.clients[uid][client] = true

	utils.Log().V(2).Info(fmt.Sprintf("registered %s id: %s", client.GetUsername(), uid))
	utils.Log().V(2).Info(fmt.Sprintf("connection counts %d for %s", len(server.clients[uid]), uid))
}

func (server *WsServer) unregisterClient(client *Client) {
	uid := client.GetUID()
	if conns, ok := server.clients[uid]; ok {
		if _, ok := conns[client]; ok {
			delete(conns, client)
			if len(conns) == 0 {
				delete(server.clients, uid)
			}
			utils.Log().V(2).Info(fmt.Sprintf("del connection %s @%s", client.GetUsername(), client.conn.RemoteAddr().String()))
		}
	}
}
