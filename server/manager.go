package server

import (
	"context"
	"sort"
	"sync"

	"lightcycle/config"
)

// RoomManager 管理多个房间的生命周期：首次加入时创建，玩家清空时回收
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	cfg   config.Config
}

// NewRoomManager 显式构造，由调用方持有
func NewRoomManager(cfg config.Config) *RoomManager {
	return &RoomManager{rooms: make(map[string]*Room), cfg: cfg}
}

// GetOrCreateRoom 获取或创建房间，并确保房间协程已启动
func (m *RoomManager) GetOrCreateRoom(id string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		r = NewRoom(id, m.cfg)
		r.onEmpty = m.removeRoom
		m.rooms[id] = r
		go r.Run()
		Log.Infow("room created", "room", id)
	}
	return r
}

// Room 查找已存在的房间，不创建
func (m *RoomManager) Room(id string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// Len 当前房间数
func (m *RoomManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// removeRoom 由房间协程在清空时回调；只移除同一个实例，避免误删同名新房间
func (m *RoomManager) removeRoom(r *Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.rooms[r.ID]; ok && cur == r {
		delete(m.rooms, r.ID)
		Log.Infow("room destroyed", "room", r.ID)
	}
}

// ListRooms 向每个房间发送只读查询，按 ID 排序返回
func (m *RoomManager) ListRooms(ctx context.Context) []RoomInfo {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	out := make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		if info, err := r.Inspect(ctx); err == nil {
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close 停止全部房间
func (m *RoomManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.rooms {
		r.Stop()
		delete(m.rooms, id)
	}
}
