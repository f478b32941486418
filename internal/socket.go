package internal

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"filedrawer.app/web/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	SOCKET_PING_EVERY   = time.Second * 30 // Ping sockets every 30 seconds
	SOCKET_PING_TIMEOUT = time.Second * 10 // Timeout ping after 10 seconds and close socket
	SOCKET_WRITE_WAIT   = time.Second * 5
	SOCKET_SEND_BUFFER  = 16 // queued notices per socket before new ones are dropped
)

// Commands pushed to the browser
const (
	CommandSocketKey     = "websocket-key"
	CommandFolderUpdated = "folder-updated"
	CommandFolderDeleted = "folder-deleted"
)

// Websocket messages always match this structure
type SocketMsg struct {
	Command string `json:"command"`
	Data    string `json:"data"`
}

type socketClient struct {
	userID int32
	conn   *websocket.Conn
	mu     sync.Mutex // serialises data frames, control frames are safe
	send   chan *SocketMsg
	done   chan struct{}
}

func newSocketClient(userID int32, conn *websocket.Conn) *socketClient {
	return &socketClient{
		userID: userID,
		conn:   conn,
		send:   make(chan *SocketMsg, SOCKET_SEND_BUFFER),
		done:   make(chan struct{}),
	}
}

// queue hands msg to the client's writer without blocking. It reports false
// when the queue is full or the socket is gone.
func (s *socketClient) queue(msg *SocketMsg) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- msg:
		return true
	default:
		return false
	}
}

func (s *socketClient) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(SOCKET_WRITE_WAIT)); err != nil {
		return err
	}
	return s.conn.WriteJSON(v)
}

// Socket upgrades the request and keeps the connection until the browser leaves.
func (h *Handler) Socket(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already replied to the client
		h.Logger.Warnf("[WS] upgrade failed: %s", err)
		return
	}
	h.HandleSocket(uuid.NewString(), user.ID, conn)
}

// PingSockets pings all connected sockets, if any fail or timeout, they are closed and deleted.
func (h *Handler) PingSockets(done <-chan struct{}) {
	ticker := time.NewTicker(SOCKET_PING_EVERY)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}
		h.WebSockets.Range(func(key, value any) bool {
			client := value.(*socketClient)
			if err := client.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(SOCKET_PING_TIMEOUT)); err != nil {
				h.Logger.Warnf("[WS] ping error: %s", err)
				if err := client.conn.Close(); err != nil {
					h.Logger.Errorf("[WS] ping close error: %s", err)
				}
				h.WebSockets.Delete(key)
			}
			return true
		})
	}
}

// HandleSocket registers the connection for its user, sends the client its key
// and then drains incoming frames until the socket closes. Queued notices are
// written by a separate goroutine.
func (h *Handler) HandleSocket(socketKey string, userID int32, conn *websocket.Conn) {
	client := newSocketClient(userID, conn)
	h.WebSockets.Store(socketKey, client)
	defer func() {
		close(client.done)
		conn.Close()
		h.WebSockets.Delete(socketKey)
	}()

	err := client.writeJSON(&SocketMsg{
		Command: CommandSocketKey,
		Data:    socketKey,
	})
	if err != nil {
		h.Logger.Errorf("[WS] failed to send key to client: %s", err)
		return
	}
	go h.writeQueued(socketKey, client)

	for {
		message := &SocketMsg{}
		if err := conn.ReadJSON(message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.Logger.Errorf("[WS] unexpected close error: %v", err)
			}
			return
		}
		// The browser only listens, anything it sends is noise
		h.Logger.Debugf("[WS] ignoring '%s' from '%s'", message.Command, socketKey)
	}
}

// writeQueued sends queued notices until the socket is closed. A failed write
// closes the connection, which ends the read loop in HandleSocket.
func (h *Handler) writeQueued(socketKey string, client *socketClient) {
	for {
		select {
		case <-client.done:
			return
		case msg := <-client.send:
			if err := client.writeJSON(msg); err != nil {
				h.Logger.Warnf("[WS] write to '%s' failed: %s", socketKey, err)
				client.conn.Close()
				return
			}
		}
	}
}

// notifyFolder queues a folder change for every open socket of the owner.
// It never waits on a socket.
func (h *Handler) notifyFolder(ownerID int32, command string, folderID int32) {
	msg := &SocketMsg{Command: command, Data: strconv.Itoa(int(folderID))}
	h.WebSockets.Range(func(key, value any) bool {
		client := value.(*socketClient)
		if client.userID != ownerID {
			return true
		}
		if !client.queue(msg) {
			h.Logger.Warnf("[WS] dropped '%s' for '%s', socket is busy or closed", command, key)
		}
		return true
	})
}

// checkSameOrigin rejects cross-site websocket handshakes unless the origin is
// explicitly allowed.
func checkSameOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == origin {
				return true
			}
		}
		return origin == "http://"+r.Host || origin == "https://"+r.Host
	}
}
