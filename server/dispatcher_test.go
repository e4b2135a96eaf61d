package server

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"lightcycle/config"
	"lightcycle/protocol"
)

func newTestManager(t *testing.T, mutate func(*config.Config)) (*RoomManager, *Dispatcher) {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	rooms := NewRoomManager(cfg)
	t.Cleanup(rooms.Close)
	return rooms, NewDispatcher(rooms)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func inspect(t *testing.T, rooms *RoomManager, id string) RoomInfo {
	t.Helper()
	room, ok := rooms.Room(id)
	if !ok {
		t.Fatalf("room %s not found", id)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	info, err := room.Inspect(ctx)
	if err != nil {
		t.Fatalf("inspect %s: %v", id, err)
	}
	return info
}

func TestDispatcherJoinDefaultRoom(t *testing.T) {
	rooms, d := newTestManager(t, nil)
	c := newFakeConn("c1")
	if err := d.Join(c, protocol.JoinGame{Name: "alice"}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if id, ok := d.RoomOf("c1"); !ok || id != DefaultRoomID {
		t.Fatalf("expected session in %q, got %q", DefaultRoomID, id)
	}
	if rooms.Len() != 1 {
		t.Fatalf("expected 1 room, got %d", rooms.Len())
	}
	if c.count(t, protocol.EvJoined) != 1 {
		t.Fatalf("joined event not delivered")
	}
}

func TestEmptyRoomIsEvicted(t *testing.T) {
	rooms, d := newTestManager(t, nil)
	c := newFakeConn("c1")
	if err := d.Join(c, protocol.JoinGame{Name: "alice", RoomID: "r1"}); err != nil {
		t.Fatalf("join: %v", err)
	}
	room, _ := rooms.Room("r1")

	d.Disconnect("c1")
	waitFor(t, "room eviction", func() bool { return rooms.Len() == 0 })
	select {
	case <-room.Done():
	case <-time.After(time.Second):
		t.Fatalf("room goroutine still running after eviction")
	}
	if _, ok := d.RoomOf("c1"); ok {
		t.Fatalf("session kept after disconnect")
	}
	if room.Submit(Ready{ConnID: "c1", Ready: true}) {
		t.Fatalf("submit to closed room must fail")
	}

	// 同名房间重新创建为新实例
	if err := d.Join(c, protocol.JoinGame{Name: "alice", RoomID: "r1"}); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if again, _ := rooms.Room("r1"); again == room {
		t.Fatalf("expected a fresh room instance")
	}
}

func TestDispatcherRoomFull(t *testing.T) {
	_, d := newTestManager(t, func(c *config.Config) { c.MaxPlayers = 2 })
	for _, id := range []string{"a", "b"} {
		if err := d.Join(newFakeConn(id), protocol.JoinGame{Name: id}); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}
	c := newFakeConn("c")
	if err := d.Join(c, protocol.JoinGame{Name: "c"}); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
	if _, ok := d.RoomOf("c"); ok {
		t.Fatalf("rejected conn must not get a session")
	}
	if c.count(t, protocol.EvError) != 1 {
		t.Fatalf("expected error event for rejected conn")
	}
}

func TestDispatcherSwitchRooms(t *testing.T) {
	rooms, d := newTestManager(t, nil)
	c := newFakeConn("c1")
	if err := d.Join(c, protocol.JoinGame{Name: "alice", RoomID: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := d.Join(c, protocol.JoinGame{Name: "alice", RoomID: "b"}); err != nil {
		t.Fatal(err)
	}
	if id, _ := d.RoomOf("c1"); id != "b" {
		t.Fatalf("expected session in b, got %q", id)
	}
	waitFor(t, "old room eviction", func() bool {
		_, ok := rooms.Room("a")
		return !ok
	})
}

func TestDispatcherSwitchToFullRoomKeepsSession(t *testing.T) {
	rooms, d := newTestManager(t, func(c *config.Config) { c.MaxPlayers = 2 })
	for _, id := range []string{"x", "y"} {
		if err := d.Join(newFakeConn(id), protocol.JoinGame{Name: id, RoomID: "full"}); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}
	a := newFakeConn("a")
	if err := d.Join(a, protocol.JoinGame{Name: "alice", RoomID: "home"}); err != nil {
		t.Fatal(err)
	}

	if err := d.Join(a, protocol.JoinGame{Name: "alice", RoomID: "full"}); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
	if id, ok := d.RoomOf("a"); !ok || id != "home" {
		t.Fatalf("rejected switch must keep the old session, got %q %v", id, ok)
	}
	if info := inspect(t, rooms, "home"); info.Players != 1 {
		t.Fatalf("player removed from home room: %+v", info)
	}
	if info := inspect(t, rooms, "full"); info.Players != 2 {
		t.Fatalf("full room changed: %+v", info)
	}
}

func TestHandleMessageRejectsNaNSpeed(t *testing.T) {
	rooms, d := newTestManager(t, nil)
	c := newFakeConn("c1")
	if err := d.Join(c, protocol.JoinGame{Name: "alice", RoomID: "r"}); err != nil {
		t.Fatal(err)
	}
	for _, speed := range []float64{math.NaN(), math.Inf(1)} {
		b, err := protocol.MsgPack.Encode(protocol.EvSetSpeed, speed)
		if err != nil {
			t.Fatal(err)
		}
		in, err := protocol.MsgPack.Decode(b)
		if err != nil {
			t.Fatal(err)
		}
		d.HandleMessage(c, in)
	}

	if info := inspect(t, rooms, "r"); info.Speed != testConfig().DefaultSpeed {
		t.Fatalf("non-finite speed applied: %v", info.Speed)
	}
	if c.count(t, protocol.EvSpeedChanged) != 0 {
		t.Fatalf("speedChanged broadcast for rejected speed")
	}
}

func TestHandleMessageRoutesIntents(t *testing.T) {
	rooms, d := newTestManager(t, nil)
	a, b := newFakeConn("a"), newFakeConn("b")

	send := func(c *fakeConn, msg string) {
		in, err := protocol.JSON.Decode([]byte(msg))
		if err != nil {
			t.Fatalf("decode %s: %v", msg, err)
		}
		d.HandleMessage(c, in)
	}
	send(a, `{"type":"joinGame","data":{"name":"alice","roomId":"r"}}`)
	send(b, `{"type":"joinGame","data":{"name":"bob","roomId":"r"}}`)
	send(a, `{"type":"setSpeed","data":4}`)
	send(a, `{"type":"ready","data":"not a bool"}`)
	send(a, `{"type":"fly"}`)
	send(a, `{"type":"ready","data":true}`)
	send(b, `{"type":"ready","data":true}`)

	info := inspect(t, rooms, "r")
	if info.State != StateCountdown || info.Players != 2 || info.Speed != 4 {
		t.Fatalf("unexpected room info %+v", info)
	}
}

func TestHandleMessageJoinWithoutPayload(t *testing.T) {
	rooms, d := newTestManager(t, nil)
	c := newFakeConn("c1")
	in, err := protocol.JSON.Decode([]byte(`{"type":"joinGame"}`))
	if err != nil {
		t.Fatal(err)
	}
	d.HandleMessage(c, in)

	info := inspect(t, rooms, DefaultRoomID)
	if info.Players != 1 {
		t.Fatalf("expected one player in default room, got %d", info.Players)
	}
	var st protocol.GameState
	c.last(t, protocol.EvGameState, &st)
	if st.Players[0].Name != "Player 1" {
		t.Fatalf("expected default name, got %q", st.Players[0].Name)
	}
}

func TestIntentsWithoutSessionAreDropped(t *testing.T) {
	rooms, d := newTestManager(t, nil)
	d.Ready("nobody", true)
	d.Restart("nobody")
	d.Disconnect("nobody")
	if rooms.Len() != 0 {
		t.Fatalf("intents without a session must not create rooms")
	}
}

func TestListRoomsSorted(t *testing.T) {
	rooms, d := newTestManager(t, nil)
	for _, id := range []string{"zeta", "alpha", "mid"} {
		if err := d.Join(newFakeConn("c-"+id), protocol.JoinGame{Name: id, RoomID: id}); err != nil {
			t.Fatal(err)
		}
	}
	list := rooms.ListRooms(context.Background())
	if len(list) != 3 || list[0].ID != "alpha" || list[1].ID != "mid" || list[2].ID != "zeta" {
		t.Fatalf("unexpected room list %+v", list)
	}
	for _, info := range list {
		if info.Players != 1 || info.State != StateLobby {
			t.Fatalf("unexpected info %+v", info)
		}
	}
}

func TestManagerCloseStopsRooms(t *testing.T) {
	rooms := NewRoomManager(testConfig())
	room := rooms.GetOrCreateRoom("r1")
	rooms.Close()
	select {
	case <-room.Done():
	case <-time.After(time.Second):
		t.Fatalf("room not stopped by Close")
	}
	if _, err := room.Inspect(context.Background()); !errors.Is(err, ErrRoomClosed) {
		t.Fatalf("expected ErrRoomClosed, got %v", err)
	}
}
