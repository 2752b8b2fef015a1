package biz

import "testing"

func TestNewGridDataPlacesExactMines(t *testing.T) {
	g := NewGridData(5, 3, 0.97, stdRNG{})
	var mines int
	for _, row := range g.Cells {
		for _, cell := range row {
			if cell.IsMine {
				mines++
			}
		}
	}
	if mines != 3 {
		t.Fatalf("placed %d mines, want 3", mines)
	}
	if g.SafeCells() != 22 {
		t.Fatalf("SafeCells = %d, want 22", g.SafeCells())
	}
}

func TestGridRevealBounds(t *testing.T) {
	g := NewGridData(5, 3, 0.97, stdRNG{})
	for _, pos := range [][2]int{{-1, 0}, {0, -1}, {5, 0}, {0, 5}} {
		if _, ok := g.Reveal(pos[0], pos[1]); ok {
			t.Fatalf("Reveal(%d,%d) accepted out-of-range cell", pos[0], pos[1])
		}
	}
}

func TestGridRevealRepeatRejected(t *testing.T) {
	// Scripted placement: mines at (0,0) (0,1) (0,2).
	g := NewGridData(5, 3, 0.97, &scriptRNG{ints: []int{0, 0, 0, 1, 0, 2}})
	if _, ok := g.Reveal(2, 2); !ok {
		t.Fatal("first reveal rejected")
	}
	if _, ok := g.Reveal(2, 2); ok {
		t.Fatal("second reveal of same cell accepted")
	}
	if g.Revealed != 1 {
		t.Fatalf("Revealed = %d, want 1", g.Revealed)
	}
}

func TestGridMineHitZeroesMultiplier(t *testing.T) {
	g := NewGridData(5, 3, 0.97, &scriptRNG{ints: []int{0, 0, 0, 1, 0, 2}})
	g.Reveal(2, 2)
	if g.Multiplier() <= 0 {
		t.Fatalf("Multiplier = %v after safe reveal, want > 0", g.Multiplier())
	}
	mine, ok := g.Reveal(0, 0)
	if !ok || !mine {
		t.Fatalf("Reveal(0,0) = (%v,%v), want mine", mine, ok)
	}
	if !g.MineHit() || g.Multiplier() != 0 {
		t.Fatalf("MineHit=%v Multiplier=%v after mine", g.MineHit(), g.Multiplier())
	}
}

func TestGridCleared(t *testing.T) {
	g := NewGridData(2, 1, 0.97, &scriptRNG{ints: []int{0, 0}})
	for _, pos := range [][2]int{{0, 1}, {1, 0}, {1, 1}} {
		if mine, ok := g.Reveal(pos[0], pos[1]); mine || !ok {
			t.Fatalf("Reveal(%d,%d) = (%v,%v)", pos[0], pos[1], mine, ok)
		}
	}
	if !g.Cleared() {
		t.Fatal("board with all safe cells revealed not Cleared")
	}
}

func TestGridMultiplierMonotone(t *testing.T) {
	prev := 0.0
	for k := 1; k <= 22; k++ {
		m := GridMultiplier(5, 3, k, 0.97)
		if m <= prev {
			t.Fatalf("GridMultiplier(5,3,%d) = %v, not above %v", k, m, prev)
		}
		prev = m
	}
}

func TestGridMultiplierFirstReveal(t *testing.T) {
	// One safe reveal on 5x5 with 3 mines: survival p = 22/25.
	want := 0.97 * 25.0 / 22.0
	if got := GridMultiplier(5, 3, 1, 0.97); !almostEqual(got, want) {
		t.Fatalf("GridMultiplier = %v, want %v", got, want)
	}
	if got := GridMultiplier(5, 3, 0, 0.97); got != 0 {
		t.Fatalf("GridMultiplier with zero reveals = %v, want 0", got)
	}
}

func TestGridOddsTable(t *testing.T) {
	table := GridOddsTable(5, 3, 0.97)
	if len(table) != 22 {
		t.Fatalf("table length = %d, want 22", len(table))
	}
	for i, m := range table {
		if !almostEqual(m, GridMultiplier(5, 3, i+1, 0.97)) {
			t.Fatalf("table[%d] = %v", i, m)
		}
	}
}
