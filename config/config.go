// Package config 集中管理竞技场的全部可调参数（进程级，加载后只读）
package config

import (
	"errors"
	"fmt"
	"math"
	"time"

	"lightcycle/game"
)

// Config 进程级配置：竞技场尺寸、节奏、速度与人数上下限
type Config struct {
	Addr           string
	LogFile        string
	LogLevel       string // stderr 输出级别，文件始终记录 debug
	AllowedOrigins []string

	ArenaWidth  float64
	ArenaHeight float64
	LineWidth   float64 // 轨迹线宽，同时决定碰撞半径

	DefaultSpeed float64
	MinSpeed     float64
	MaxSpeed     float64

	TickInterval      time.Duration // 模拟步长
	BroadcastInterval time.Duration // 快照广播间隔（一般慢于模拟）
	CountdownSeconds  int

	MinPlayers int
	MaxPlayers int

	Colors     []string
	StartSlots []game.StartSlot

	// SnapshotTrailLimit 广播快照中每条轨迹的最大点数，0 表示不裁剪（只影响广播）
	SnapshotTrailLimit int
	ScoringEnabled     bool
}

// Default 返回与线上一致的默认配置：800x800，60 TPS 模拟，30 Hz 广播
func Default() Config {
	c := Config{
		Addr:              ":3000",
		LogFile:           "app.log",
		LogLevel:          "info",
		AllowedOrigins:    []string{"*"},
		ArenaWidth:        800,
		ArenaHeight:       800,
		LineWidth:         10,
		DefaultSpeed:      2,
		MinSpeed:          1,
		MaxSpeed:          5,
		TickInterval:      time.Second / 60,
		BroadcastInterval: time.Second / 30,
		CountdownSeconds:  10,
		MinPlayers:        2,
		MaxPlayers:        4,
		Colors:            []string{"red", "blue", "green", "purple"},
		ScoringEnabled:    true,
	}
	c.StartSlots = DefaultStartSlots(c.ArenaWidth, c.ArenaHeight)
	return c
}

// DefaultStartSlots 四个出生点：左右两侧相向，上下两侧相向，距墙 150
func DefaultStartSlots(w, h float64) []game.StartSlot {
	return []game.StartSlot{
		{X: 150, Y: h / 2, Heading: game.Right},
		{X: w - 150, Y: h / 2, Heading: game.Left},
		{X: w / 2, Y: 150, Heading: game.Down},
		{X: w / 2, Y: h - 150, Heading: game.Up},
	}
}

// ErrInvalidConfig 所有校验失败都包装此错误
var ErrInvalidConfig = errors.New("invalid config")

// Validate 校验配置不变量，启动阶段唯一允许致命的错误来源
func (c Config) Validate() error {
	// 以下比较对 NaN 恒为 false，先排除非有限值
	for name, v := range map[string]float64{
		"arena width":   c.ArenaWidth,
		"arena height":  c.ArenaHeight,
		"line width":    c.LineWidth,
		"default speed": c.DefaultSpeed,
		"min speed":     c.MinSpeed,
		"max speed":     c.MaxSpeed,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidConfig, name, v)
		}
	}
	switch {
	case c.ArenaWidth <= 0 || c.ArenaHeight <= 0:
		return fmt.Errorf("%w: arena must be positive, got %vx%v", ErrInvalidConfig, c.ArenaWidth, c.ArenaHeight)
	case c.LineWidth <= 0:
		return fmt.Errorf("%w: line width must be positive, got %v", ErrInvalidConfig, c.LineWidth)
	case c.MinSpeed <= 0 || c.MinSpeed > c.MaxSpeed:
		return fmt.Errorf("%w: speed bounds [%v, %v]", ErrInvalidConfig, c.MinSpeed, c.MaxSpeed)
	case c.DefaultSpeed < c.MinSpeed || c.DefaultSpeed > c.MaxSpeed:
		return fmt.Errorf("%w: default speed %v outside [%v, %v]", ErrInvalidConfig, c.DefaultSpeed, c.MinSpeed, c.MaxSpeed)
	case c.TickInterval <= 0 || c.BroadcastInterval <= 0:
		return fmt.Errorf("%w: tick and broadcast intervals must be positive", ErrInvalidConfig)
	case c.CountdownSeconds <= 0:
		return fmt.Errorf("%w: countdown must be positive, got %d", ErrInvalidConfig, c.CountdownSeconds)
	case c.MinPlayers <= 0 || c.MinPlayers > c.MaxPlayers:
		return fmt.Errorf("%w: player bounds [%d, %d]", ErrInvalidConfig, c.MinPlayers, c.MaxPlayers)
	case c.MaxPlayers > len(c.Colors):
		return fmt.Errorf("%w: %d players but only %d colors", ErrInvalidConfig, c.MaxPlayers, len(c.Colors))
	case c.MaxPlayers > len(c.StartSlots):
		return fmt.Errorf("%w: %d players but only %d start slots", ErrInvalidConfig, c.MaxPlayers, len(c.StartSlots))
	case c.SnapshotTrailLimit < 0 || c.SnapshotTrailLimit == 1:
		return fmt.Errorf("%w: snapshot trail limit must be 0 or >= 2, got %d", ErrInvalidConfig, c.SnapshotTrailLimit)
	}
	seen := make(map[string]bool, len(c.Colors))
	for _, color := range c.Colors {
		if seen[color] {
			return fmt.Errorf("%w: duplicate color %q", ErrInvalidConfig, color)
		}
		seen[color] = true
	}
	half := c.LineWidth / 2
	for i, s := range c.StartSlots {
		if !(s.X >= half && s.X <= c.ArenaWidth-half && s.Y >= half && s.Y <= c.ArenaHeight-half) {
			return fmt.Errorf("%w: start slot %d (%v,%v) outside arena", ErrInvalidConfig, i, s.X, s.Y)
		}
	}
	return nil
}

// Detector 按当前竞技场尺寸构造碰撞检测器
func (c Config) Detector() game.Detector {
	return game.Detector{Width: c.LineWidth, ArenaWidth: c.ArenaWidth, ArenaHeight: c.ArenaHeight}
}
