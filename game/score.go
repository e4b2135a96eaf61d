package game

import (
	"math"
	"sort"
	"time"
)

// activeWindow 统计“活跃玩家”的回溯窗口
const activeWindow = time.Hour

// Ledger 房间战绩账本；计分子系统不可用时用 NopLedger 顶替
type Ledger interface {
	RegisterPlayer(name string)
	RecordGame(winner string, participants []string)
	Leaderboard() []LeaderboardEntry
	PlayerScore(name string) (LeaderboardEntry, bool)
	RoomStats() RoomStats
}

// LeaderboardEntry 排行榜中的一行
type LeaderboardEntry struct {
	Name          string `json:"name"`
	Wins          int    `json:"wins"`
	GamesPlayed   int    `json:"gamesPlayed"`
	WinRate       int    `json:"winRate"` // 百分比，四舍五入
	CurrentStreak int    `json:"currentStreak"`
	BestStreak    int    `json:"bestStreak"`
}

// RoomStats 房间聚合统计
type RoomStats struct {
	TotalGamesPlayed      int `json:"totalGamesPlayed"`
	TotalPlayers          int `json:"totalPlayers"`
	ActivePlayers         int `json:"activePlayers"`
	AverageGamesPerPlayer int `json:"averageGamesPerPlayer"`
}

type scoreEntry struct {
	wins          int
	gamesPlayed   int
	currentStreak int
	bestStreak    int
	lastSeen      time.Time
}

// ScoreTracker 按显示名记账，断线重连后战绩仍在
type ScoreTracker struct {
	scores     map[string]*scoreEntry
	totalGames int
	now        func() time.Time
}

// NewScoreTracker now 为 nil 时使用 time.Now
func NewScoreTracker(now func() time.Time) *ScoreTracker {
	if now == nil {
		now = time.Now
	}
	return &ScoreTracker{scores: make(map[string]*scoreEntry), now: now}
}

// RegisterPlayer 幂等：已存在时只刷新 lastSeen
func (t *ScoreTracker) RegisterPlayer(name string) {
	now := t.now()
	if e, ok := t.scores[name]; ok {
		e.lastSeen = now
		return
	}
	t.scores[name] = &scoreEntry{lastSeen: now}
}

// RecordGame 记录一局结果；winner 为空表示无人获胜，未注册的名字忽略
func (t *ScoreTracker) RecordGame(winner string, participants []string) {
	t.totalGames++
	now := t.now()
	for _, name := range participants {
		e, ok := t.scores[name]
		if !ok {
			continue
		}
		e.gamesPlayed++
		e.lastSeen = now
		if winner != "" && name == winner {
			e.wins++
			e.currentStreak++
			e.bestStreak = max(e.bestStreak, e.currentStreak)
		} else {
			e.currentStreak = 0
		}
	}
}

// Leaderboard 按胜场降序，胜场相同按胜率降序
func (t *ScoreTracker) Leaderboard() []LeaderboardEntry {
	out := make([]LeaderboardEntry, 0, len(t.scores))
	for name, e := range t.scores {
		out = append(out, e.project(name))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		if out[i].WinRate != out[j].WinRate {
			return out[i].WinRate > out[j].WinRate
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// PlayerScore 单个玩家的战绩
func (t *ScoreTracker) PlayerScore(name string) (LeaderboardEntry, bool) {
	e, ok := t.scores[name]
	if !ok {
		return LeaderboardEntry{}, false
	}
	return e.project(name), true
}

// RoomStats 活跃玩家 = 最近一小时内出现过
func (t *ScoreTracker) RoomStats() RoomStats {
	cutoff := t.now().Add(-activeWindow)
	active := 0
	for _, e := range t.scores {
		if e.lastSeen.After(cutoff) {
			active++
		}
	}
	total := len(t.scores)
	avg := 0
	if total > 0 {
		avg = roundRatio(t.totalGames, total, 1)
	}
	return RoomStats{
		TotalGamesPlayed:      t.totalGames,
		TotalPlayers:          total,
		ActivePlayers:         active,
		AverageGamesPerPlayer: avg,
	}
}

func (e *scoreEntry) project(name string) LeaderboardEntry {
	rate := 0
	if e.gamesPlayed > 0 {
		rate = roundRatio(e.wins, e.gamesPlayed, 100)
	}
	return LeaderboardEntry{
		Name:          name,
		Wins:          e.wins,
		GamesPlayed:   e.gamesPlayed,
		WinRate:       rate,
		CurrentStreak: e.currentStreak,
		BestStreak:    e.bestStreak,
	}
}

// roundRatio round(scale*num/den)，半数向上取整
func roundRatio(num, den, scale int) int {
	return int(math.Floor(float64(scale*num)/float64(den) + 0.5))
}

// NopLedger 计分关闭或故障时使用的空账本
type NopLedger struct{}

func (NopLedger) RegisterPlayer(string)                       {}
func (NopLedger) RecordGame(string, []string)                 {}
func (NopLedger) Leaderboard() []LeaderboardEntry             { return []LeaderboardEntry{} }
func (NopLedger) PlayerScore(string) (LeaderboardEntry, bool) { return LeaderboardEntry{}, false }
func (NopLedger) RoomStats() RoomStats                        { return RoomStats{} }
