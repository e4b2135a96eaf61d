package game

import "math"

// selfBufferAtCrawl 速度为 1 时轨迹点极密，需要固定的大缓冲避免转弯即自撞
const selfBufferAtCrawl = 150

// Detector 无状态的碰撞判定，参数来自配置
type Detector struct {
	Width       float64 // 轨迹线宽
	ArenaWidth  float64
	ArenaHeight float64
}

// Collides 撞墙或撞上任一轨迹
func (d Detector) Collides(a *Avatar, all []*Avatar, speed float64) bool {
	return d.WallCollision(a.X, a.Y) || d.TrailCollision(a, all, speed)
}

// WallCollision 严格不等式：恰好位于安全边界上不算碰撞
func (d Detector) WallCollision(x, y float64) bool {
	half := d.Width / 2
	return x < half || x > d.ArenaWidth-half ||
		y < half || y > d.ArenaHeight-half
}

// PointCollision 两点距离严格小于线宽才算碰撞
func (d Detector) PointCollision(x1, y1, x2, y2 float64) bool {
	return math.Hypot(x1-x2, y1-y2) < d.Width
}

// SelfBuffer 自身轨迹末尾跳过检测的点数，随速度变化
func (d Detector) SelfBuffer(speed float64) int {
	if speed == 1 {
		return selfBufferAtCrawl
	}
	pointsNeeded := int(math.Ceil(d.Width * 3 / speed))
	byTicks := int(math.Ceil(10 * speed / 2))
	return max(pointsNeeded, byTicks)
}

// TrailCollision 检测 a 当前位置与房间内所有轨迹点；自身轨迹跳过最近 SelfBuffer 个点
func (d Detector) TrailCollision(a *Avatar, all []*Avatar, speed float64) bool {
	buffer := d.SelfBuffer(speed)
	for _, other := range all {
		n := len(other.Trail)
		if other.ID == a.ID {
			n = max(0, n-buffer)
		}
		for _, p := range other.Trail[:n] {
			if d.PointCollision(a.X, a.Y, p.X, p.Y) {
				return true
			}
		}
	}
	return false
}
