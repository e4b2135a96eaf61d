// Package game 是纯模拟层：化身移动、轨迹、碰撞与战绩，不做任何 I/O
package game

import "math"

// Heading 离散朝向，顺时针排列：UP → RIGHT → DOWN → LEFT
type Heading int

const (
	Up Heading = iota
	Right
	Down
	Left
)

var headingNames = [...]string{"UP", "RIGHT", "DOWN", "LEFT"}

func (h Heading) String() string {
	if h < Up || h > Left {
		return "UNKNOWN"
	}
	return headingNames[h]
}

// vector 朝向的单位向量（y 轴向下）
func (h Heading) vector() (dx, dy float64) {
	switch h {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	}
	return 0, 0
}

// Turn 转向意图
type Turn int

const (
	TurnNone Turn = iota
	TurnLeft
	TurnRight
)

// ParseTurn 解析客户端的 "left"/"right"，其它输入返回 TurnNone
func ParseTurn(s string) Turn {
	switch s {
	case "left":
		return TurnLeft
	case "right":
		return TurnRight
	}
	return TurnNone
}

// Point 轨迹上的一个历史位置
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// StartSlot 出生点：位置 + 初始朝向
type StartSlot struct {
	X       float64
	Y       float64
	Heading Heading
}

// Avatar 一名玩家在房间内的权威模拟状态
type Avatar struct {
	ID    string
	Name  string
	Color string
	Slot  int // 出生点/颜色下标，离开房间时归还

	X       float64
	Y       float64
	Heading Heading
	Trail   []Point

	Alive bool
	Ready bool
}

// NewAvatar 在指定出生点创建化身
func NewAvatar(id, name, color string, slot int, start StartSlot) *Avatar {
	return &Avatar{
		ID:      id,
		Name:    name,
		Color:   color,
		Slot:    slot,
		X:       start.X,
		Y:       start.Y,
		Heading: start.Heading,
		Alive:   true,
	}
}

// Move 沿当前朝向前进 speed；与上一个轨迹点在任一轴上相距 >= 1 才记录新点
func (a *Avatar) Move(speed float64) {
	if !a.Alive {
		return
	}
	dx, dy := a.Heading.vector()
	nx := a.X + dx*speed
	ny := a.Y + dy*speed

	if n := len(a.Trail); n == 0 ||
		math.Abs(nx-a.Trail[n-1].X) >= 1 ||
		math.Abs(ny-a.Trail[n-1].Y) >= 1 {
		a.Trail = append(a.Trail, Point{X: nx, Y: ny})
	}
	a.X = nx
	a.Y = ny
}

// Turn 左转/右转 90 度，未知输入不做处理
func (a *Avatar) Turn(t Turn) {
	switch t {
	case TurnLeft:
		a.Heading = (a.Heading + 3) % 4
	case TurnRight:
		a.Heading = (a.Heading + 1) % 4
	}
}

// Reset 回到出生点，清空轨迹，复活并取消准备
func (a *Avatar) Reset(start StartSlot) {
	a.X = start.X
	a.Y = start.Y
	a.Heading = start.Heading
	a.Trail = nil
	a.Alive = true
	a.Ready = false
}

// BeginGame 开局：轨迹只含当前位置
func (a *Avatar) BeginGame() {
	a.Trail = []Point{{X: a.X, Y: a.Y}}
	a.Alive = true
}

// Snapshot 化身的只读投影，用于广播
type Snapshot struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Color     string  `json:"color"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Direction string  `json:"direction"`
	Trail     []Point `json:"trail"`
	Alive     bool    `json:"alive"`
	Ready     bool    `json:"ready"`
}

// Snapshot 复制当前状态；trailLimit > 0 时只对副本做等距重采样，模拟用的轨迹不受影响
func (a *Avatar) Snapshot(trailLimit int) Snapshot {
	return Snapshot{
		ID:        a.ID,
		Name:      a.Name,
		Color:     a.Color,
		X:         a.X,
		Y:         a.Y,
		Direction: a.Heading.String(),
		Trail:     resample(a.Trail, trailLimit),
		Alive:     a.Alive,
		Ready:     a.Ready,
	}
}

// resample 返回 trail 的副本，超过 limit 时保留首尾并等距抽样
func resample(trail []Point, limit int) []Point {
	if limit <= 1 || len(trail) <= limit {
		out := make([]Point, len(trail))
		copy(out, trail)
		return out
	}
	out := make([]Point, limit)
	last := len(trail) - 1
	for i := 0; i < limit; i++ {
		out[i] = trail[i*last/(limit-1)]
	}
	return out
}
