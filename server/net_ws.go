package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"lightcycle/protocol"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMessage = 1 << 16
)

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	id    string
	ws    *websocket.Conn
	codec protocol.Codec

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewClientConn(ws *websocket.Conn, codec protocol.Codec) *ClientConn {
	return &ClientConn{
		id:    uuid.New().String(),
		ws:    ws,
		codec: codec,
		send:  make(chan []byte, 64),
	}
}

func (c *ClientConn) ID() string            { return c.id }
func (c *ClientConn) Codec() protocol.Codec { return c.codec }

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃，已关闭则忽略）
func (c *ClientConn) Enqueue(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- b:
	default:
		// 为了实时性，丢弃消息（防止阻塞房间协程）
		Log.Debugw("send queue full, dropping frame", "conn", c.id)
	}
}

// Close 关闭发送队列，写协程随之退出并关闭底层连接
func (c *ClientConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定期发送 ping
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	msgType := websocket.TextMessage
	if c.codec.Binary() {
		msgType = websocket.BinaryMessage
	}
	for {
		select {
		case msg, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(msgType, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端事件交给 Dispatcher；退出即视为断线
func (c *ClientConn) readPump(d *Dispatcher) {
	defer func() {
		d.Disconnect(c.id)
		c.Close()
		Log.Infow("client disconnected", "conn", c.id)
	}()
	c.ws.SetReadLimit(maxMessage)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { c.ws.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		msgType, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				Log.Debugw("read error", "conn", c.id, "err", err)
			}
			return
		}
		// 入站帧按帧类型选择解码器：文本为 JSON，二进制为 msgpack
		codec := protocol.JSON
		if msgType == websocket.BinaryMessage {
			codec = protocol.MsgPack
		}
		in, err := codec.Decode(payload)
		if err != nil {
			Log.Debugw("bad frame", "conn", c.id, "err", err)
			continue
		}
		d.HandleMessage(c, in)
	}
}

// WSHandler WebSocket 接入：/ws?codec=json|msgpack
type WSHandler struct {
	dispatcher *Dispatcher
	upgrader   websocket.Upgrader
}

// NewWSHandler origins 含 "*" 时允许所有来源
func NewWSHandler(d *Dispatcher, origins []string) *WSHandler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &WSHandler{
		dispatcher: d,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	codec := protocol.ForName(r.URL.Query().Get("codec"))

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnw("upgrade error", "remote", r.RemoteAddr, "err", err)
		return
	}

	client := NewClientConn(ws, codec)
	Log.Infow("client connected", "conn", client.id, "remote", r.RemoteAddr, "codec", codec.Name())

	go client.writePump()
	go client.readPump(h.dispatcher)
}
