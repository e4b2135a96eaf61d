package server

import (
	"sync/atomic"
)

// RoomMetrics 记录房间运行期的关键指标（用于监控与调试）
type RoomMetrics struct {
	TickCount       int64 // 模拟 Tick 次数
	TotalTickNs     int64 // Tick 累计耗时（纳秒）
	Broadcasts      int64 // 发出的 gameState 快照数
	IntentsAccepted int64 // 生效的客户端意图
	IntentsIgnored  int64 // 因状态不允许或连接未知而忽略的意图
	JoinsRejected   int64 // 房间已满被拒绝的加入
	Collisions      int64 // 碰撞死亡次数
	GamesFinished   int64 // 完成的对局数
	Panics          int64 // 房间内被恢复的 panic
}

func (m *RoomMetrics) IncAccepted()     { atomic.AddInt64(&m.IntentsAccepted, 1) }
func (m *RoomMetrics) IncIgnored()      { atomic.AddInt64(&m.IntentsIgnored, 1) }
func (m *RoomMetrics) IncJoinRejected() { atomic.AddInt64(&m.JoinsRejected, 1) }
func (m *RoomMetrics) IncBroadcast()    { atomic.AddInt64(&m.Broadcasts, 1) }
func (m *RoomMetrics) IncCollision()    { atomic.AddInt64(&m.Collisions, 1) }
func (m *RoomMetrics) IncGameFinished() { atomic.AddInt64(&m.GamesFinished, 1) }
func (m *RoomMetrics) IncPanic()        { atomic.AddInt64(&m.Panics, 1) }
func (m *RoomMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *RoomMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":       tick,
		"avg_tick_ms":      avgMs,
		"broadcasts":       atomic.LoadInt64(&m.Broadcasts),
		"intents_accepted": atomic.LoadInt64(&m.IntentsAccepted),
		"intents_ignored":  atomic.LoadInt64(&m.IntentsIgnored),
		"joins_rejected":   atomic.LoadInt64(&m.JoinsRejected),
		"collisions":       atomic.LoadInt64(&m.Collisions),
		"games_finished":   atomic.LoadInt64(&m.GamesFinished),
		"panics":           atomic.LoadInt64(&m.Panics),
	}
}
