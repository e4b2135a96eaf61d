package server

import (
	"lightcycle/game"
	"lightcycle/protocol"
)

// Conn 房间视角下的客户端连接：只负责投递已编码的消息
type Conn interface {
	ID() string
	Codec() protocol.Codec
	Enqueue(b []byte)
}

// member 房间内的玩家：权威化身 + 发送端
type member struct {
	avatar  *game.Avatar
	conn    Conn
	playing bool // 参与当前一局（对局中加入的旁观者为 false）
}

// roster 按加入顺序维护玩家，并分配颜色/出生点对
type roster struct {
	byID  map[string]*member
	order []*member
	slots []bool // 已占用的颜色/出生点下标
}

func newRoster(capacity int) *roster {
	return &roster{
		byID:  make(map[string]*member),
		slots: make([]bool, capacity),
	}
}

func (r *roster) len() int { return len(r.order) }

func (r *roster) get(id string) (*member, bool) {
	m, ok := r.byID[id]
	return m, ok
}

// freeSlot 返回最小的空闲下标，没有则 -1
func (r *roster) freeSlot() int {
	for i, used := range r.slots {
		if !used {
			return i
		}
	}
	return -1
}

func (r *roster) add(m *member) {
	r.byID[m.avatar.ID] = m
	r.order = append(r.order, m)
	r.slots[m.avatar.Slot] = true
}

// remove 移除玩家并归还其颜色/出生点
func (r *roster) remove(id string) (*member, bool) {
	m, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	delete(r.byID, id)
	for i, o := range r.order {
		if o == m {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.slots[m.avatar.Slot] = false
	return m, true
}

// avatars 按加入顺序返回全部化身
func (r *roster) avatars() []*game.Avatar {
	out := make([]*game.Avatar, len(r.order))
	for i, m := range r.order {
		out[i] = m.avatar
	}
	return out
}

func (r *roster) readyCount() int {
	n := 0
	for _, m := range r.order {
		if m.avatar.Ready {
			n++
		}
	}
	return n
}
