package biz

import "github.com/cloudstok/mines-game-backend/internal/conf"

const (
	SectionGreen  = "green"
	SectionOrange = "orange"
	SectionPurple = "purple"
)

// ChainData is the CHAIN variant payload: three ordered sequences of revealed
// ladder steps plus the fixed tables they were drawn from.
type ChainData struct {
	Green  []float64 `json:"green"`
	Orange []float64 `json:"orange"`
	Purple []float64 `json:"purple"`

	Ladders struct {
		Green  []float64 `json:"green"`
		Orange []float64 `json:"orange"`
		Purple []float64 `json:"purple"`
	} `json:"multipliers"`
	BonusMultipliers []float64 `json:"bonusMultipliers"`
	GreenBonus       float64   `json:"greenBonus"`
	OrangeBonus      float64   `json:"orangeBonus"`
}

// NewChainData builds an empty three-section ladder from the configured
// tables.
func NewChainData(g *conf.Game) *ChainData {
	c := &ChainData{
		Green:            []float64{},
		Orange:           []float64{},
		Purple:           []float64{},
		BonusMultipliers: append([]float64(nil), g.PurpleBonuses...),
		GreenBonus:       g.GreenBonus,
		OrangeBonus:      g.OrangeBonus,
	}
	c.Ladders.Green = append([]float64(nil), g.GreenLadder...)
	c.Ladders.Orange = append([]float64(nil), g.OrangeLadder...)
	c.Ladders.Purple = append([]float64(nil), g.PurpleLadder...)
	return c
}

// ChainSpin is the resolved outcome of a single spin. SpinMult is the
// settleable multiplier of this spin alone: the ladder delta on a section
// advance, the bonus payout on an overflow, zero on a dark gem, and the
// negated sum of popped tails on a stone.
type ChainSpin struct {
	Section   string  `json:"result"`
	DarkGem   bool    `json:"darkGem"`
	Stone     bool    `json:"stone"`
	SpinMult  float64 `json:"payout"`
	BonusMult float64 `json:"-"`
}

// Spin draws a uniform sample and advances the sequences.
//
// Bands: u > 0.5 progresses one section (u < 0.7 green, u < 0.9 orange, else
// purple); a push past the end of a full ladder repeats the last step and
// pays the section's overflow bonus, which replaces the appended step. The
// purple bonus additionally resets the purple sequence. 0.3 < u <= 0.5 is a
// dark gem (no sequence change). u <= 0.3 is a stone: every non-empty
// section loses its tail.
func (c *ChainData) Spin(rng RNG) ChainSpin {
	u := rng.Float64()
	switch {
	case u > 0.5:
		return c.advanceSection(pickSection(u), rng)
	case u > 0.3:
		return ChainSpin{DarkGem: true}
	default:
		return c.stone()
	}
}

func pickSection(u float64) string {
	switch {
	case u < 0.7:
		return SectionGreen
	case u < 0.9:
		return SectionOrange
	default:
		return SectionPurple
	}
}

func (c *ChainData) advanceSection(section string, rng RNG) ChainSpin {
	seq := c.section(section)
	ladder := c.ladder(section)

	var step float64
	if len(*seq) >= len(ladder) {
		step = (*seq)[len(*seq)-1] // ladder exhausted, repeat last value
	} else {
		step = ladder[len(*seq)]
	}
	*seq = append(*seq, step)

	out := ChainSpin{Section: section, SpinMult: tailDelta(*seq)}

	if bonus := c.overflowBonus(section, rng); bonus > 0 {
		out.SpinMult = bonus
		out.BonusMult = bonus
		*seq = (*seq)[:len(*seq)-1] // bonus replaces the appended step
		if section == SectionPurple {
			c.Purple = []float64{}
		}
	}
	return out
}

// overflowBonus pays only once a sequence has grown past its fixed ladder.
func (c *ChainData) overflowBonus(section string, rng RNG) float64 {
	switch section {
	case SectionGreen:
		if len(c.Green) > len(c.Ladders.Green) {
			return c.GreenBonus
		}
	case SectionOrange:
		if len(c.Orange) > len(c.Ladders.Orange) {
			return c.OrangeBonus
		}
	case SectionPurple:
		if len(c.Purple) > len(c.Ladders.Purple) && len(c.BonusMultipliers) > 0 {
			return c.BonusMultipliers[rng.IntN(len(c.BonusMultipliers))]
		}
	}
	return 0
}

func (c *ChainData) stone() ChainSpin {
	out := ChainSpin{Stone: true}
	for _, seq := range []*[]float64{&c.Green, &c.Orange, &c.Purple} {
		if n := len(*seq); n > 0 {
			out.SpinMult -= (*seq)[n-1]
			*seq = (*seq)[:n-1]
		}
	}
	return out
}

// PopTails removes the most recent step from every non-empty section and
// returns the summed per-section deltas, the partial cash-out multiplier.
func (c *ChainData) PopTails() float64 {
	var mult float64
	for _, seq := range []*[]float64{&c.Green, &c.Orange, &c.Purple} {
		if n := len(*seq); n > 0 {
			mult += tailDelta(*seq)
			*seq = (*seq)[:n-1]
		}
	}
	return mult
}

// Multiplier is the current cash-out multiplier: the sum of the last step of
// each non-empty section.
func (c *ChainData) Multiplier() float64 {
	var sum float64
	for _, seq := range [][]float64{c.Green, c.Orange, c.Purple} {
		if n := len(seq); n > 0 {
			sum += seq[n-1]
		}
	}
	return sum
}

func (c *ChainData) Empty() bool {
	return len(c.Green) == 0 && len(c.Orange) == 0 && len(c.Purple) == 0
}

func (c *ChainData) section(name string) *[]float64 {
	switch name {
	case SectionGreen:
		return &c.Green
	case SectionOrange:
		return &c.Orange
	default:
		return &c.Purple
	}
}

func (c *ChainData) ladder(name string) []float64 {
	switch name {
	case SectionGreen:
		return c.Ladders.Green
	case SectionOrange:
		return c.Ladders.Orange
	default:
		return c.Ladders.Purple
	}
}

// tailDelta is the marginal value of the newest step: the difference between
// the last two steps, or the first step itself when it stands alone.
func tailDelta(seq []float64) float64 {
	switch n := len(seq); {
	case n > 1:
		return seq[n-1] - seq[n-2]
	case n == 1:
		return seq[0]
	default:
		return 0
	}
}
