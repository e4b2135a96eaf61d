package server

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"lightcycle/config"
	"lightcycle/game"
	"lightcycle/protocol"
)

// ErrRoomFull 房间人数已满或没有空闲的颜色/出生点
var ErrRoomFull = errors.New("room is full")

// ErrRoomClosed 房间协程已退出（已回收或已停止）
var ErrRoomClosed = errors.New("room closed")

// State 房间生命周期：lobby → countdown → playing → gameOver → lobby
type State string

const (
	StateLobby     State = "lobby"
	StateCountdown State = "countdown"
	StatePlaying   State = "playing"
	StateGameOver  State = "gameOver"
)

// Room 一局竞技场：权威状态只在房间自己的协程内修改（命令、倒计时、模拟共用一条时间线）
type Room struct {
	ID string

	cfg      config.Config
	detector game.Detector
	log      *zap.SugaredLogger
	metrics  *RoomMetrics

	players   *roster
	state     State
	countdown int
	speed     float64
	ledger    game.Ledger

	inbox           chan any
	countdownTicker *time.Ticker
	simTicker       *time.Ticker
	lastBroadcast   time.Time
	now             func() time.Time

	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	evicted  bool
	onEmpty  func(*Room)
}

// NewRoom 创建房间，初始为大厅状态；需调用 Run 启动房间协程
func NewRoom(id string, cfg config.Config) *Room {
	var ledger game.Ledger = game.NopLedger{}
	if cfg.ScoringEnabled {
		ledger = game.NewScoreTracker(nil)
	}
	return &Room{
		ID:        id,
		cfg:       cfg,
		detector:  cfg.Detector(),
		log:       Log.With("room", id),
		metrics:   &RoomMetrics{},
		players:   newRoster(cfg.MaxPlayers),
		state:     StateLobby,
		countdown: cfg.CountdownSeconds,
		speed:     cfg.DefaultSpeed,
		ledger:    ledger,
		inbox:     make(chan any, 256), // 足够缓冲，避免网络读阻塞
		now:       time.Now,
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Submit 投递命令；房间已关闭时返回 false
func (r *Room) Submit(cmd any) bool {
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case r.inbox <- cmd:
		return true
	case <-r.done:
		return false
	}
}

// Done 房间协程退出后关闭
func (r *Room) Done() <-chan struct{} { return r.done }

// Stop 请求房间协程退出（可重复调用）
func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.quit) })
}

// Inspect 经由收件箱读取房间概要，不与房间协程竞争状态
func (r *Room) Inspect(ctx context.Context) (RoomInfo, error) {
	reply := make(chan RoomInfo, 1)
	if !r.Submit(Inspect{Reply: reply}) {
		return RoomInfo{}, ErrRoomClosed
	}
	select {
	case info := <-reply:
		return info, nil
	case <-r.done:
		return RoomInfo{}, ErrRoomClosed
	case <-ctx.Done():
		return RoomInfo{}, ctx.Err()
	}
}

// Metrics 房间指标（原子读写，可跨协程读取）
func (r *Room) Metrics() *RoomMetrics { return r.metrics }

func (r *Room) handle(cmd any) {
	switch c := cmd.(type) {
	case Join:
		err := r.join(c.Conn, c.Name)
		if c.Reply != nil {
			select {
			case c.Reply <- err:
			default:
			}
		}
	case Leave:
		r.leave(c.ConnID)
	case Ready:
		r.setReady(c.ConnID, c.Ready)
	case Steer:
		r.turn(c.ConnID, c.Turn)
	case SetSpeed:
		r.setSpeed(c.ConnID, c.Speed)
	case Restart:
		r.restart(c.ConnID)
	case Inspect:
		select {
		case c.Reply <- r.info():
		default:
		}
	default:
		r.log.Warnw("unknown command", "type", fmt.Sprintf("%T", cmd))
	}
}

// join 分配最小的空闲颜色/出生点；对局进行中加入的玩家本局旁观
func (r *Room) join(conn Conn, name string) error {
	if _, ok := r.players.get(conn.ID()); ok {
		r.metrics.IncIgnored()
		return nil
	}
	slot := r.players.freeSlot()
	if r.players.len() >= r.cfg.MaxPlayers || slot < 0 {
		r.metrics.IncJoinRejected()
		r.log.Infow("join rejected", "conn", conn.ID(), "name", name, "players", r.players.len())
		r.sendTo(conn, protocol.EvError, protocol.Error{Message: protocol.MsgRoomFull})
		return ErrRoomFull
	}
	if name == "" {
		name = fmt.Sprintf("Player %d", slot+1)
	}

	a := game.NewAvatar(conn.ID(), name, r.cfg.Colors[slot], slot, r.cfg.StartSlots[slot])
	if r.state == StatePlaying {
		a.Alive = false
	}
	r.players.add(&member{avatar: a, conn: conn})
	r.withLedger(func(l game.Ledger) { l.RegisterPlayer(name) })
	r.metrics.IncAccepted()
	r.log.Infow("player joined", "conn", conn.ID(), "name", name, "color", a.Color, "players", r.players.len())

	r.sendTo(conn, protocol.EvJoined, protocol.Joined{
		PlayerID: conn.ID(),
		RoomID:   r.ID,
		Config:   gameConfig(r.cfg),
	})
	r.broadcastState()
	return nil
}

// leave 任何状态下都有效；倒计时中人数不足则退回大厅，房间清空则请求回收
func (r *Room) leave(connID string) {
	m, ok := r.players.remove(connID)
	if !ok {
		r.metrics.IncIgnored()
		return
	}
	r.log.Infow("player left", "conn", connID, "name", m.avatar.Name, "state", r.state, "players", r.players.len())

	if r.state == StateCountdown && r.players.len() < r.cfg.MinPlayers {
		r.abortCountdown()
	}
	if r.players.len() == 0 {
		r.evict()
		return
	}
	r.broadcastState()
}

func (r *Room) setReady(connID string, ready bool) {
	m, ok := r.players.get(connID)
	if !ok || (r.state != StateLobby && r.state != StateCountdown) {
		r.metrics.IncIgnored()
		return
	}
	m.avatar.Ready = ready
	r.metrics.IncAccepted()
	if r.state == StateLobby && r.players.readyCount() >= r.cfg.MinPlayers {
		r.startCountdown()
	}
	r.broadcastState()
}

func (r *Room) turn(connID string, t game.Turn) {
	m, ok := r.players.get(connID)
	if !ok || r.state != StatePlaying || !m.avatar.Alive || t == game.TurnNone {
		r.metrics.IncIgnored()
		return
	}
	m.avatar.Turn(t)
	r.metrics.IncAccepted()
}

func (r *Room) setSpeed(connID string, speed float64) {
	// NaN 与任何值比较都为 false，只能用正向区间判断
	if _, ok := r.players.get(connID); !ok || r.state != StateLobby ||
		!(speed >= r.cfg.MinSpeed && speed <= r.cfg.MaxSpeed) {
		r.metrics.IncIgnored()
		return
	}
	r.speed = speed
	r.metrics.IncAccepted()
	r.log.Infow("speed changed", "conn", connID, "speed", speed)
	r.broadcast(protocol.EvSpeedChanged, speed)
}

// restart 只在 gameOver 有效：每个化身回到自己的出生点
func (r *Room) restart(connID string) {
	if _, ok := r.players.get(connID); !ok || r.state != StateGameOver {
		r.metrics.IncIgnored()
		return
	}
	for _, m := range r.players.order {
		m.avatar.Reset(r.cfg.StartSlots[m.avatar.Slot])
	}
	r.state = StateLobby
	r.countdown = r.cfg.CountdownSeconds
	r.metrics.IncAccepted()
	r.log.Infow("room restarted", "conn", connID)
	r.broadcastState()
}

func (r *Room) startCountdown() {
	r.stopCountdownTicker()
	r.state = StateCountdown
	r.countdown = r.cfg.CountdownSeconds
	r.countdownTicker = time.NewTicker(time.Second)
	r.log.Infow("countdown started", "seconds", r.countdown, "ready", r.players.readyCount())
}

// countdownStep 每秒一次：递减并广播，归零后开局
func (r *Room) countdownStep() {
	if r.state != StateCountdown {
		r.stopCountdownTicker()
		return
	}
	r.countdown--
	r.broadcast(protocol.EvCountdown, r.countdown)
	if r.countdown <= 0 {
		r.stopCountdownTicker()
		r.startGame()
	}
}

func (r *Room) abortCountdown() {
	r.stopCountdownTicker()
	r.state = StateLobby
	r.countdown = r.cfg.CountdownSeconds
	r.log.Infow("countdown aborted", "players", r.players.len())
}

func (r *Room) startGame() {
	r.state = StatePlaying
	for _, m := range r.players.order {
		m.avatar.BeginGame()
		m.playing = true
	}
	r.stopSimTicker()
	r.simTicker = time.NewTicker(r.cfg.TickInterval)
	r.lastBroadcast = r.now()
	r.log.Infow("game started", "players", r.players.len(), "speed", r.speed)
	r.broadcastState()
}

// endGame 停止全部定时器、记账、清空准备标记并公布结果
func (r *Room) endGame(winner *game.Avatar) {
	r.stopSimTicker()
	r.stopCountdownTicker()
	r.state = StateGameOver

	participants := make([]string, 0, r.players.len())
	for _, m := range r.players.order {
		if m.playing {
			participants = append(participants, m.avatar.Name)
		}
		m.avatar.Ready = false
		m.playing = false
	}

	over := protocol.GameOver{Winner: protocol.NoWinner}
	winnerName := ""
	if winner != nil {
		winnerName = winner.Name
		color := winner.Color
		over.Winner = winner.Name
		over.WinnerColor = &color
	}
	r.withLedger(func(l game.Ledger) {
		l.RecordGame(winnerName, participants)
		over.Leaderboard = l.Leaderboard()
		over.RoomStats = l.RoomStats()
	})
	if over.Leaderboard == nil {
		over.Leaderboard = []game.LeaderboardEntry{}
	}

	r.metrics.IncGameFinished()
	r.log.Infow("game over", "winner", over.Winner, "participants", participants)
	r.broadcastState()
	r.broadcast(protocol.EvGameOver, over)
}

// withLedger 计分出错时降级为 NopLedger，房间继续运行
func (r *Room) withLedger(fn func(game.Ledger)) {
	defer func() {
		if p := recover(); p != nil {
			r.metrics.IncPanic()
			r.log.Errorw("score ledger failed, scoring disabled for room", "panic", p)
			r.ledger = game.NopLedger{}
		}
	}()
	fn(r.ledger)
}

func (r *Room) evict() {
	r.stopCountdownTicker()
	r.stopSimTicker()
	r.evicted = true
	r.log.Infow("room empty, evicting")
	if r.onEmpty != nil {
		r.onEmpty(r)
	}
}

func (r *Room) info() RoomInfo {
	info := RoomInfo{
		ID:        r.ID,
		State:     r.state,
		Players:   r.players.len(),
		Speed:     r.speed,
		Countdown: r.countdown,
	}
	r.withLedger(func(l game.Ledger) {
		info.Leaderboard = l.Leaderboard()
		info.Stats = l.RoomStats()
	})
	return info
}

// safely 隔离单个房间内的 panic
func (r *Room) safely(what string, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			r.metrics.IncPanic()
			r.log.Errorw("recovered panic in room", "in", what, "panic", p, "stack", string(debug.Stack()))
		}
	}()
	fn()
}

func gameConfig(cfg config.Config) protocol.GameConfig {
	return protocol.GameConfig{
		GameWidth:         cfg.ArenaWidth,
		GameHeight:        cfg.ArenaHeight,
		LineWidth:         cfg.LineWidth,
		DefaultSpeed:      cfg.DefaultSpeed,
		MinSpeed:          cfg.MinSpeed,
		MaxSpeed:          cfg.MaxSpeed,
		TickRateMs:        float64(cfg.TickInterval) / float64(time.Millisecond),
		BroadcastRateMs:   float64(cfg.BroadcastInterval) / float64(time.Millisecond),
		CountdownDuration: cfg.CountdownSeconds,
		MinPlayers:        cfg.MinPlayers,
		MaxPlayers:        cfg.MaxPlayers,
		PlayerColors:      cfg.Colors,
	}
}
