package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load 读取可选的 .env 文件，再用 TRON_* 环境变量覆盖默认值，最后校验
// envFile 为空或文件不存在时直接使用进程环境
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	c := Default()
	var err error
	c.Addr = getEnv("TRON_ADDR", c.Addr)
	c.LogFile = getEnv("TRON_LOG_FILE", c.LogFile)
	c.LogLevel = getEnv("TRON_LOG_LEVEL", c.LogLevel)
	c.AllowedOrigins = getList("TRON_CORS_ORIGINS", c.AllowedOrigins)

	if c.ArenaWidth, err = getFloat("TRON_ARENA_WIDTH", c.ArenaWidth); err != nil {
		return Config{}, err
	}
	if c.ArenaHeight, err = getFloat("TRON_ARENA_HEIGHT", c.ArenaHeight); err != nil {
		return Config{}, err
	}
	if d := Default(); c.ArenaWidth != d.ArenaWidth || c.ArenaHeight != d.ArenaHeight {
		c.StartSlots = DefaultStartSlots(c.ArenaWidth, c.ArenaHeight)
	}
	if c.LineWidth, err = getFloat("TRON_LINE_WIDTH", c.LineWidth); err != nil {
		return Config{}, err
	}
	if c.DefaultSpeed, err = getFloat("TRON_DEFAULT_SPEED", c.DefaultSpeed); err != nil {
		return Config{}, err
	}
	if c.MinSpeed, err = getFloat("TRON_MIN_SPEED", c.MinSpeed); err != nil {
		return Config{}, err
	}
	if c.MaxSpeed, err = getFloat("TRON_MAX_SPEED", c.MaxSpeed); err != nil {
		return Config{}, err
	}
	if c.TickInterval, err = getRate("TRON_TICK_RATE", c.TickInterval); err != nil {
		return Config{}, err
	}
	if c.BroadcastInterval, err = getRate("TRON_BROADCAST_RATE", c.BroadcastInterval); err != nil {
		return Config{}, err
	}
	if c.CountdownSeconds, err = getInt("TRON_COUNTDOWN", c.CountdownSeconds); err != nil {
		return Config{}, err
	}
	if c.MinPlayers, err = getInt("TRON_MIN_PLAYERS", c.MinPlayers); err != nil {
		return Config{}, err
	}
	if c.MaxPlayers, err = getInt("TRON_MAX_PLAYERS", c.MaxPlayers); err != nil {
		return Config{}, err
	}
	if c.SnapshotTrailLimit, err = getInt("TRON_SNAPSHOT_TRAIL_LIMIT", c.SnapshotTrailLimit); err != nil {
		return Config{}, err
	}
	if c.ScoringEnabled, err = getBool("TRON_SCORING", c.ScoringEnabled); err != nil {
		return Config{}, err
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getFloat(key string, def float64) (float64, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getInt(key string, def int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

// getRate 以 Hz 读取频率并换算为间隔
func getRate(key string, def time.Duration) (time.Duration, error) {
	hz, err := getInt(key, 0)
	if err != nil {
		return 0, err
	}
	if hz == 0 {
		return def, nil
	}
	if hz < 0 {
		return 0, fmt.Errorf("%s: rate must be positive, got %d", key, hz)
	}
	return time.Second / time.Duration(hz), nil
}

func getList(key string, def []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
