package server

import "lightcycle/game"

// 房间收件箱中的命令：每个客户端意图都是一个离散的值，由房间自己的协程顺序处理

// Join 加入房间；结果写回 Reply（nil 或 ErrRoomFull），Reply 须带缓冲
type Join struct {
	Conn  Conn
	Name  string
	Reply chan<- error
}

// Leave 离开房间（主动离开或断线）
type Leave struct {
	ConnID string
}

// Ready 切换准备状态
type Ready struct {
	ConnID string
	Ready  bool
}

// Steer 转向意图
type Steer struct {
	ConnID string
	Turn   game.Turn
}

// SetSpeed 修改房间速度，仅大厅阶段有效
type SetSpeed struct {
	ConnID string
	Speed  float64
}

// Restart 对局结束后回到大厅
type Restart struct {
	ConnID string
}

// Inspect 只读查询，供管理接口使用；Reply 须带缓冲
type Inspect struct {
	Reply chan<- RoomInfo
}

// RoomInfo 房间概要
type RoomInfo struct {
	ID          string                  `json:"id"`
	State       State                   `json:"state"`
	Players     int                     `json:"players"`
	Speed       float64                 `json:"speed"`
	Countdown   int                     `json:"countdown"`
	Leaderboard []game.LeaderboardEntry `json:"leaderboard"`
	Stats       game.RoomStats          `json:"roomStats"`
}
