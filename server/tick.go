package server

import (
	"time"

	"lightcycle/game"
	"lightcycle/protocol"
)

// Run 房间协程：命令、倒计时与模拟 Tick 在同一条时间线上串行执行
// 未启用的定时器通道为 nil，select 不会命中
func (r *Room) Run() {
	defer close(r.done)
	defer func() {
		r.stopCountdownTicker()
		r.stopSimTicker()
	}()

	for {
		select {
		case <-r.quit:
			return
		case cmd := <-r.inbox:
			r.safely("command", func() { r.handle(cmd) })
		case <-tickerC(r.countdownTicker):
			r.safely("countdown", r.countdownStep)
		case <-tickerC(r.simTicker):
			r.safely("tick", r.step)
		}
		if r.evicted {
			return
		}
	}
}

// step 一次模拟：所有存活化身各自移动并检测碰撞，全部处理完后再判定胜负
func (r *Room) step() {
	if r.state != StatePlaying {
		r.stopSimTicker()
		return
	}
	start := time.Now()

	all := r.players.avatars()
	for _, a := range all {
		if !a.Alive {
			continue
		}
		a.Move(r.speed)
		if r.detector.Collides(a, all, r.speed) {
			a.Alive = false
			r.metrics.IncCollision()
			r.log.Debugw("avatar crashed", "conn", a.ID, "name", a.Name, "x", a.X, "y", a.Y)
		}
	}

	var survivor *game.Avatar
	alive := 0
	for _, a := range all {
		if a.Alive {
			alive++
			survivor = a
		}
	}

	switch {
	case alive <= 1:
		r.endGame(survivor)
	case r.now().Sub(r.lastBroadcast) >= r.cfg.BroadcastInterval:
		r.broadcastState()
	}
	r.metrics.AddTick(time.Since(start).Nanoseconds())
}

// snapshot 当前房间的完整快照（深拷贝）
func (r *Room) snapshot() protocol.GameState {
	players := make([]game.Snapshot, 0, r.players.len())
	for _, m := range r.players.order {
		players = append(players, m.avatar.Snapshot(r.cfg.SnapshotTrailLimit))
	}
	return protocol.GameState{
		Players:   players,
		State:     string(r.state),
		Countdown: r.countdown,
		Speed:     r.speed,
		Config: protocol.ArenaConfig{
			GameWidth:  r.cfg.ArenaWidth,
			GameHeight: r.cfg.ArenaHeight,
			LineWidth:  r.cfg.LineWidth,
			Speed:      r.speed,
		},
	}
}

func (r *Room) broadcastState() {
	r.lastBroadcast = r.now()
	r.metrics.IncBroadcast()
	r.broadcast(protocol.EvGameState, r.snapshot())
}

// broadcast 每种编码只序列化一次，再投递给房间内所有连接
func (r *Room) broadcast(typ string, data any) {
	frames := make(map[string][]byte, 2)
	for _, m := range r.players.order {
		codec := m.conn.Codec()
		b, ok := frames[codec.Name()]
		if !ok {
			var err error
			if b, err = codec.Encode(typ, data); err != nil {
				r.log.Errorw("encode failed", "event", typ, "codec", codec.Name(), "err", err)
				continue
			}
			frames[codec.Name()] = b
		}
		m.conn.Enqueue(b)
	}
}

// sendTo 只发给单个连接（joined / error）
func (r *Room) sendTo(conn Conn, typ string, data any) {
	b, err := conn.Codec().Encode(typ, data)
	if err != nil {
		r.log.Errorw("encode failed", "event", typ, "codec", conn.Codec().Name(), "err", err)
		return
	}
	conn.Enqueue(b)
}

func tickerC(t *time.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func (r *Room) stopCountdownTicker() {
	if r.countdownTicker != nil {
		r.countdownTicker.Stop()
		r.countdownTicker = nil
	}
}

func (r *Room) stopSimTicker() {
	if r.simTicker != nil {
		r.simTicker.Stop()
		r.simTicker = nil
	}
}
