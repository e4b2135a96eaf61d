// Package protocol 定义客户端与服务端之间的事件名、载荷结构与编解码
package protocol

import "lightcycle/game"

// 客户端 → 服务端
const (
	EvJoinGame = "joinGame"
	EvReady    = "ready"
	EvTurn     = "turn"
	EvRestart  = "restart"
	EvSetSpeed = "setSpeed"
)

// 服务端 → 客户端
const (
	EvJoined       = "joined"
	EvGameState    = "gameState"
	EvCountdown    = "countdown"
	EvGameOver     = "gameOver"
	EvSpeedChanged = "speedChanged"
	EvError        = "error"
)

// MsgRoomFull 房间已满时返回给请求方的错误文案
const MsgRoomFull = "Game room is full"

// NoWinner 无人存活时 gameOver.winner 的取值
const NoWinner = "No one"

// JoinGame 入站：加入房间
type JoinGame struct {
	Name   string `json:"name"`
	RoomID string `json:"roomId"`
}

// GameConfig joined 中下发的完整配置
type GameConfig struct {
	GameWidth         float64  `json:"gameWidth"`
	GameHeight        float64  `json:"gameHeight"`
	LineWidth         float64  `json:"lineWidth"`
	DefaultSpeed      float64  `json:"defaultSpeed"`
	MinSpeed          float64  `json:"minSpeed"`
	MaxSpeed          float64  `json:"maxSpeed"`
	TickRateMs        float64  `json:"tickRate"`
	BroadcastRateMs   float64  `json:"broadcastRate"`
	CountdownDuration int      `json:"countdownDuration"`
	MinPlayers        int      `json:"minPlayers"`
	MaxPlayers        int      `json:"maxPlayers"`
	PlayerColors      []string `json:"playerColors"`
}

// Joined 出站：加入成功，仅发给请求方
type Joined struct {
	PlayerID string     `json:"playerId"`
	RoomID   string     `json:"roomId"`
	Config   GameConfig `json:"config"`
}

// ArenaConfig gameState 中附带的竞技场参数
type ArenaConfig struct {
	GameWidth  float64 `json:"gameWidth"`
	GameHeight float64 `json:"gameHeight"`
	LineWidth  float64 `json:"lineWidth"`
	Speed      float64 `json:"speed"`
}

// GameState 出站：房间完整快照
type GameState struct {
	Players   []game.Snapshot `json:"players"`
	State     string          `json:"state"`
	Countdown int             `json:"countdown"`
	Speed     float64         `json:"speed"`
	Config    ArenaConfig     `json:"config"`
}

// GameOver 出站：对局结果与战绩
type GameOver struct {
	Winner      string                  `json:"winner"`
	WinnerColor *string                 `json:"winnerColor"`
	Leaderboard []game.LeaderboardEntry `json:"leaderboard"`
	RoomStats   game.RoomStats          `json:"roomStats"`
}

// Error 出站：只发给请求方
type Error struct {
	Message string `json:"message"`
}
