package game

import "testing"

var arena = Detector{Width: 10, ArenaWidth: 800, ArenaHeight: 800}

func TestWallCollisionBoundary(t *testing.T) {
	cases := []struct {
		x, y float64
		want bool
	}{
		{400, 400, false},
		{5, 400, false},   // 恰好在安全边界
		{795, 400, false}, // 恰好在安全边界
		{400, 5, false},
		{400, 795, false},
		{4.99, 400, true},
		{795.01, 400, true},
		{400, 4.99, true},
		{400, 795.01, true},
		{-1, -1, true},
	}
	for _, c := range cases {
		if got := arena.WallCollision(c.x, c.y); got != c.want {
			t.Errorf("WallCollision(%v,%v) = %v, want %v", c.x, c.y, got, c.want)
		}
	}
}

func TestWallCollisionAfterMove(t *testing.T) {
	a := NewAvatar("p1", "a", "red", 0, StartSlot{X: 7, Y: 400, Heading: Left})
	a.Move(2) // x=5
	if arena.Collides(a, []*Avatar{a}, 2) {
		t.Fatalf("x=5 is on the safe boundary and must not collide")
	}
	a.Move(2) // x=3
	if !arena.Collides(a, []*Avatar{a}, 2) {
		t.Fatalf("x=3 is outside the safe area and must collide")
	}
}

func TestPointCollisionIsStrict(t *testing.T) {
	cases := []struct {
		dist float64
		want bool
	}{
		{5, true},
		{9.99, true},
		{10, false},
		{10.01, false},
		{0, true},
	}
	for _, c := range cases {
		if got := arena.PointCollision(100, 100, 100+c.dist, 100); got != c.want {
			t.Errorf("distance %v: got %v, want %v", c.dist, got, c.want)
		}
	}
	// 斜向 6-8-10 三角形：距离恰为 10
	if arena.PointCollision(0, 0, 6, 8) {
		t.Errorf("diagonal distance 10 must not collide")
	}
}

func TestSelfBuffer(t *testing.T) {
	cases := []struct {
		speed float64
		want  int
	}{
		{1, 150},
		{2, 15},
		{3, 15},
		{5, 25},
		{1.5, 20},
	}
	for _, c := range cases {
		if got := arena.SelfBuffer(c.speed); got != c.want {
			t.Errorf("SelfBuffer(%v) = %d, want %d", c.speed, got, c.want)
		}
	}
}

// selfTrail 41 个相距 15px 的点，全部远离 (400,400)
func selfTrail() []Point {
	trail := make([]Point, 41)
	for i := range trail {
		trail[i] = Point{X: 100 + 15*float64(i), Y: 100}
	}
	return trail
}

func TestSelfCollisionBeyondBuffer(t *testing.T) {
	a := NewAvatar("p1", "a", "red", 0, StartSlot{X: 400, Y: 400, Heading: Up})
	a.Trail = selfTrail()
	if arena.TrailCollision(a, []*Avatar{a}, 2) {
		t.Fatalf("no trail point is near the head yet")
	}

	a.Trail[0] = Point{X: 403, Y: 400} // 距当前 40 个点，超出缓冲 15
	if !arena.TrailCollision(a, []*Avatar{a}, 2) {
		t.Fatalf("point 40 indices behind must collide")
	}
}

func TestSelfCollisionWithinBuffer(t *testing.T) {
	a := NewAvatar("p1", "a", "red", 0, StartSlot{X: 400, Y: 400, Heading: Up})
	a.Trail = selfTrail()
	a.Trail[35] = Point{X: 403, Y: 400} // 距当前 5 个点，在缓冲内
	if arena.TrailCollision(a, []*Avatar{a}, 2) {
		t.Fatalf("point 5 indices behind is inside the buffer and must be skipped")
	}
}

func TestOtherTrailCheckedInFull(t *testing.T) {
	a := NewAvatar("p1", "a", "red", 0, StartSlot{X: 400, Y: 400, Heading: Up})
	b := NewAvatar("p2", "b", "blue", 1, StartSlot{X: 100, Y: 100, Heading: Down})
	b.Trail = selfTrail()
	b.Trail[40] = Point{X: 400, Y: 405} // b 最新的点同样参与检测
	if !arena.TrailCollision(a, []*Avatar{a, b}, 2) {
		t.Fatalf("other avatar's most recent trail point must be checked")
	}
}

func TestTurnRightAfterStartDoesNotSelfCollide(t *testing.T) {
	for _, speed := range []float64{1, 2, 3, 5} {
		a := NewAvatar("p1", "a", "red", 0, StartSlot{X: 400, Y: 400, Heading: Right})
		a.BeginGame()
		for i := 0; i < 40; i++ {
			a.Move(speed)
			if arena.Collides(a, []*Avatar{a}, speed) {
				t.Fatalf("speed %v: straight line collided at step %d", speed, i)
			}
		}
		a.Turn(TurnRight)
		for i := 0; i < 3; i++ {
			a.Move(speed)
			if arena.Collides(a, []*Avatar{a}, speed) {
				t.Fatalf("speed %v: collided %d steps after turning", speed, i)
			}
		}
	}
}
