package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"lightcycle/config"
	"lightcycle/game"
)

// inspectTimeout 管理接口等待房间协程应答的上限
const inspectTimeout = 2 * time.Second

// AdminHandler 只读的运维接口：配置、房间列表、排行榜与运行指标
type AdminHandler struct {
	cfg   config.Config
	rooms *RoomManager
}

func NewAdminHandler(cfg config.Config, rooms *RoomManager) *AdminHandler {
	return &AdminHandler{cfg: cfg, rooms: rooms}
}

// Routes 挂载到 /api/v1
func (h *AdminHandler) Routes(r chi.Router) {
	r.Get("/config", h.getConfig)
	r.Get("/rooms", h.listRooms)
	r.Get("/rooms/{id}", h.getRoom)
	r.Get("/rooms/{id}/leaderboard", h.getLeaderboard)
	r.Get("/rooms/{id}/metrics", h.getMetrics)
}

// GET /api/v1/config  返回当前生效的竞技场配置
func (h *AdminHandler) getConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, gameConfig(h.cfg))
}

// GET /api/v1/rooms
func (h *AdminHandler) listRooms(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), inspectTimeout)
	defer cancel()
	writeJSON(w, http.StatusOK, map[string]any{"rooms": h.rooms.ListRooms(ctx)})
}

// GET /api/v1/rooms/{id}
func (h *AdminHandler) getRoom(w http.ResponseWriter, r *http.Request) {
	info, ok := h.inspect(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// GET /api/v1/rooms/{id}/leaderboard
func (h *AdminHandler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	info, ok := h.inspect(w, r)
	if !ok {
		return
	}
	board := info.Leaderboard
	if board == nil {
		board = []game.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"room":        info.ID,
		"leaderboard": board,
		"roomStats":   info.Stats,
	})
}

// GET /api/v1/rooms/{id}/metrics  输出指定房间的运行指标
func (h *AdminHandler) getMetrics(w http.ResponseWriter, r *http.Request) {
	room, ok := h.rooms.Room(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "room not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"room":    room.ID,
		"metrics": room.Metrics().Snapshot(),
	})
}

func (h *AdminHandler) inspect(w http.ResponseWriter, r *http.Request) (RoomInfo, bool) {
	room, ok := h.rooms.Room(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "room not found"})
		return RoomInfo{}, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), inspectTimeout)
	defer cancel()
	info, err := room.Inspect(ctx)
	switch {
	case errors.Is(err, ErrRoomClosed):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "room not found"})
		return RoomInfo{}, false
	case err != nil:
		Log.Warnw("inspect room failed", "room", room.ID, "err", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "room busy"})
		return RoomInfo{}, false
	}
	return info, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
