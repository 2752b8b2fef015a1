package biz

import (
	"math"
	"testing"

	"github.com/cloudstok/mines-game-backend/internal/conf"
)

// scriptRNG replays a fixed sequence of draws.
type scriptRNG struct {
	floats []float64
	ints   []int
}

func (r *scriptRNG) Float64() float64 {
	if len(r.floats) == 0 {
		return 0.99
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scriptRNG) IntN(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	if v >= n {
		v = n - 1
	}
	return v
}

func testGame() *conf.Game {
	return &conf.Game{
		MinStake:      1,
		MaxStake:      1000,
		MaxCashout:    50000,
		SessionTTL:    3600,
		BoardSize:     5,
		MinMines:      1,
		MaxMines:      24,
		GridRTP:       0.97,
		GreenLadder:   []float64{1.2, 1.5, 1.9, 2.4, 3.0, 3.7, 4.5, 5.4},
		OrangeLadder:  []float64{1.5, 2.3, 3.4, 5.0, 7.2, 10.4, 15.0},
		PurpleLadder:  []float64{2.0, 4.0, 8.0, 16.0, 32.0},
		PurpleBonuses: []float64{3.0, 5.0, 10.0, 25.0, 50.0},
		GreenBonus:    7.5,
		OrangeBonus:   21.0,
	}
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestChainSpinBands(t *testing.T) {
	tests := []struct {
		name    string
		u       float64
		section string
		darkGem bool
		stone   bool
	}{
		{"green low edge", 0.51, SectionGreen, false, false},
		{"green high edge", 0.69, SectionGreen, false, false},
		{"orange low edge", 0.70, SectionOrange, false, false},
		{"orange high edge", 0.89, SectionOrange, false, false},
		{"purple low edge", 0.90, SectionPurple, false, false},
		{"purple top", 0.99, SectionPurple, false, false},
		{"dark gem low edge", 0.31, "", true, false},
		{"dark gem high edge", 0.50, "", true, false},
		{"stone high edge", 0.30, "", false, true},
		{"stone zero", 0.0, "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChainData(testGame())
			spin := c.Spin(&scriptRNG{floats: []float64{tt.u}})
			if spin.Section != tt.section || spin.DarkGem != tt.darkGem || spin.Stone != tt.stone {
				t.Fatalf("Spin(%v) = %+v", tt.u, spin)
			}
		})
	}
}

func TestChainAdvanceFollowsLadder(t *testing.T) {
	c := NewChainData(testGame())

	spin := c.Spin(&scriptRNG{floats: []float64{0.6}})
	if !almostEqual(spin.SpinMult, 1.2) {
		t.Fatalf("first green spin mult = %v, want 1.2", spin.SpinMult)
	}
	spin = c.Spin(&scriptRNG{floats: []float64{0.6}})
	if !almostEqual(spin.SpinMult, 0.3) {
		t.Fatalf("second green spin mult = %v, want 0.3", spin.SpinMult)
	}
	if len(c.Green) != 2 || !almostEqual(c.Green[1], 1.5) {
		t.Fatalf("green sequence = %v", c.Green)
	}
}

func TestChainGreenOverflowBonus(t *testing.T) {
	c := NewChainData(testGame())
	for i := 0; i < len(c.Ladders.Green); i++ {
		c.Spin(&scriptRNG{floats: []float64{0.6}})
	}
	if len(c.Green) != len(c.Ladders.Green) {
		t.Fatalf("green length = %d before overflow", len(c.Green))
	}

	spin := c.Spin(&scriptRNG{floats: []float64{0.6}})
	if !almostEqual(spin.SpinMult, 7.5) || !almostEqual(spin.BonusMult, 7.5) {
		t.Fatalf("overflow spin = %+v, want bonus 7.5", spin)
	}
	// The appended overflow step is replaced by the bonus payout.
	if len(c.Green) != len(c.Ladders.Green) {
		t.Fatalf("green length = %d after overflow, want %d", len(c.Green), len(c.Ladders.Green))
	}
}

func TestChainPurpleOverflowResetsSequence(t *testing.T) {
	c := NewChainData(testGame())
	for i := 0; i < len(c.Ladders.Purple); i++ {
		c.Spin(&scriptRNG{floats: []float64{0.95}})
	}

	spin := c.Spin(&scriptRNG{floats: []float64{0.95}, ints: []int{2}})
	if !almostEqual(spin.SpinMult, 10.0) {
		t.Fatalf("purple overflow mult = %v, want 10.0", spin.SpinMult)
	}
	if len(c.Purple) != 0 {
		t.Fatalf("purple sequence = %v, want reset", c.Purple)
	}
}

func TestChainStonePopsAllTails(t *testing.T) {
	c := NewChainData(testGame())
	c.Spin(&scriptRNG{floats: []float64{0.6}})  // green 1.2
	c.Spin(&scriptRNG{floats: []float64{0.6}})  // green 1.5
	c.Spin(&scriptRNG{floats: []float64{0.8}})  // orange 1.5
	c.Spin(&scriptRNG{floats: []float64{0.95}}) // purple 2.0

	spin := c.Spin(&scriptRNG{floats: []float64{0.1}})
	if !spin.Stone {
		t.Fatalf("spin = %+v, want stone", spin)
	}
	if !almostEqual(spin.SpinMult, -(1.5 + 1.5 + 2.0)) {
		t.Fatalf("stone mult = %v, want -5.0", spin.SpinMult)
	}
	if len(c.Green) != 1 || len(c.Orange) != 0 || len(c.Purple) != 0 {
		t.Fatalf("sequences after stone = %v %v %v", c.Green, c.Orange, c.Purple)
	}
}

func TestChainDarkGemLeavesSequences(t *testing.T) {
	c := NewChainData(testGame())
	c.Spin(&scriptRNG{floats: []float64{0.6}})

	spin := c.Spin(&scriptRNG{floats: []float64{0.4}})
	if !spin.DarkGem || spin.SpinMult != 0 {
		t.Fatalf("spin = %+v, want zero-value dark gem", spin)
	}
	if len(c.Green) != 1 {
		t.Fatalf("green sequence = %v, want untouched", c.Green)
	}
}

func TestChainPopTails(t *testing.T) {
	c := NewChainData(testGame())
	c.Spin(&scriptRNG{floats: []float64{0.6}}) // green 1.2
	c.Spin(&scriptRNG{floats: []float64{0.6}}) // green 1.5
	c.Spin(&scriptRNG{floats: []float64{0.8}}) // orange 1.5

	mult := c.PopTails()
	if !almostEqual(mult, 0.3+1.5) {
		t.Fatalf("PopTails = %v, want 1.8", mult)
	}
	if len(c.Green) != 1 || len(c.Orange) != 0 {
		t.Fatalf("sequences after pop = %v %v", c.Green, c.Orange)
	}
}

func TestChainMultiplierSumsTails(t *testing.T) {
	c := NewChainData(testGame())
	if c.Multiplier() != 0 || !c.Empty() {
		t.Fatal("fresh chain must be empty with zero multiplier")
	}
	c.Spin(&scriptRNG{floats: []float64{0.6}})
	c.Spin(&scriptRNG{floats: []float64{0.6}})
	c.Spin(&scriptRNG{floats: []float64{0.95}})
	if !almostEqual(c.Multiplier(), 1.5+2.0) {
		t.Fatalf("Multiplier = %v, want 3.5", c.Multiplier())
	}
}

func TestTailDelta(t *testing.T) {
	tests := []struct {
		seq  []float64
		want float64
	}{
		{nil, 0},
		{[]float64{1.2}, 1.2},
		{[]float64{1.2, 1.5}, 0.3},
		{[]float64{2.0, 4.0, 8.0}, 4.0},
	}
	for _, tt := range tests {
		if got := tailDelta(tt.seq); !almostEqual(got, tt.want) {
			t.Errorf("tailDelta(%v) = %v, want %v", tt.seq, got, tt.want)
		}
	}
}
