package server

import (
	"errors"
	"sync"

	"lightcycle/game"
	"lightcycle/protocol"
)

// DefaultRoomID joinGame 未指定房间时使用
const DefaultRoomID = "default"

// joinAttempts 目标房间恰好在加入途中被回收时的重试次数
const joinAttempts = 3

// Dispatcher 把连接上的意图路由到所在房间；连接与房间的对应关系只在这里维护
type Dispatcher struct {
	rooms *RoomManager

	mu       sync.Mutex
	sessions map[string]*Room // conn id → room
}

func NewDispatcher(rooms *RoomManager) *Dispatcher {
	return &Dispatcher{rooms: rooms, sessions: make(map[string]*Room)}
}

// Join 加入（或切换到）指定房间；房间已满时返回 ErrRoomFull，错误事件已由房间发给该连接
// 切换房间时先加入新房间，成功后才离开旧房间；失败则原会话保持不变
func (d *Dispatcher) Join(conn Conn, req protocol.JoinGame) error {
	roomID := req.RoomID
	if roomID == "" {
		roomID = DefaultRoomID
	}
	prev, hadPrev := d.session(conn.ID())

	for i := 0; i < joinAttempts; i++ {
		room := d.rooms.GetOrCreateRoom(roomID)
		reply := make(chan error, 1)
		if !room.Submit(Join{Conn: conn, Name: req.Name, Reply: reply}) {
			continue
		}
		select {
		case err := <-reply:
			if err != nil {
				return err
			}
			d.mu.Lock()
			d.sessions[conn.ID()] = room
			d.mu.Unlock()
			if hadPrev && prev != room {
				prev.Submit(Leave{ConnID: conn.ID()})
			}
			return nil
		case <-room.Done():
			// 房间在处理前被回收，换一个新实例重试
		}
	}
	Log.Warnw("join gave up", "conn", conn.ID(), "room", roomID)
	return ErrRoomClosed
}

func (d *Dispatcher) Ready(connID string, ready bool) {
	d.route(connID, Ready{ConnID: connID, Ready: ready})
}

func (d *Dispatcher) Turn(connID string, t game.Turn) {
	d.route(connID, Steer{ConnID: connID, Turn: t})
}

func (d *Dispatcher) SetSpeed(connID string, speed float64) {
	d.route(connID, SetSpeed{ConnID: connID, Speed: speed})
}

func (d *Dispatcher) Restart(connID string) {
	d.route(connID, Restart{ConnID: connID})
}

// Disconnect 传输层断开视同离开房间
func (d *Dispatcher) Disconnect(connID string) {
	d.mu.Lock()
	room, ok := d.sessions[connID]
	delete(d.sessions, connID)
	d.mu.Unlock()
	if ok {
		room.Submit(Leave{ConnID: connID})
	}
}

// RoomOf 连接当前所在的房间 ID
func (d *Dispatcher) RoomOf(connID string) (string, bool) {
	room, ok := d.session(connID)
	if !ok {
		return "", false
	}
	return room.ID, true
}

// HandleMessage 解码入站事件并分发；无法识别或载荷错误的事件直接丢弃
func (d *Dispatcher) HandleMessage(conn Conn, in protocol.Inbound) {
	var err error
	switch in.Type {
	case protocol.EvJoinGame:
		var req protocol.JoinGame
		if err = in.Payload(&req); err == nil || errors.Is(err, protocol.ErrNoPayload) {
			err = nil
			_ = d.Join(conn, req)
		}
	case protocol.EvReady:
		var ready bool
		if err = in.Payload(&ready); err == nil {
			d.Ready(conn.ID(), ready)
		}
	case protocol.EvTurn:
		var dir string
		if err = in.Payload(&dir); err == nil {
			d.Turn(conn.ID(), game.ParseTurn(dir))
		}
	case protocol.EvSetSpeed:
		var speed float64
		if err = in.Payload(&speed); err == nil {
			d.SetSpeed(conn.ID(), speed)
		}
	case protocol.EvRestart:
		d.Restart(conn.ID())
	default:
		Log.Debugw("unknown event", "conn", conn.ID(), "type", in.Type)
		return
	}
	if err != nil {
		Log.Debugw("bad payload", "conn", conn.ID(), "type", in.Type, "err", err)
	}
}

func (d *Dispatcher) route(connID string, cmd any) {
	room, ok := d.session(connID)
	if !ok {
		return
	}
	room.Submit(cmd)
}

func (d *Dispatcher) session(connID string) (*Room, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	room, ok := d.sessions[connID]
	return room, ok
}
