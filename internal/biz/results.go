package biz

// Sections is the player-visible view of the three chain sequences.
type Sections struct {
	Green  []float64 `json:"green"`
	Orange []float64 `json:"orange"`
	Purple []float64 `json:"purple"`
}

// RoundSnapshot is the reconnect/start view of a round. The GRID variant
// exposes only revealed positions, never mine placement.
type RoundSnapshot struct {
	MatchID    string    `json:"matchId"`
	RoundID    string    `json:"roundId"`
	Variant    Variant   `json:"variant"`
	Bank       float64   `json:"bank"`
	Multiplier float64   `json:"multiplier"`
	Sections   *Sections `json:"sections,omitempty"`
	BoardSize  int       `json:"boardSize,omitempty"`
	MineCount  int       `json:"mineCount,omitempty"`
	Revealed   [][]bool  `json:"revealed,omitempty"`
	Reveals    int       `json:"revealedCells,omitempty"`
}

// Snapshot renders the outward view of the round.
func (r *RoundState) Snapshot() *RoundSnapshot {
	snap := &RoundSnapshot{
		MatchID:    r.MatchID,
		RoundID:    r.RoundID,
		Variant:    r.Variant,
		Bank:       r.Bank.Round(2).InexactFloat64(),
		Multiplier: r.Multiplier,
	}
	switch r.Variant {
	case VariantChain:
		snap.Sections = r.Chain.sections()
	case VariantGrid:
		snap.BoardSize = r.Grid.Size
		snap.MineCount = r.Grid.Mines
		snap.Reveals = r.Grid.Revealed
		snap.Revealed = r.Grid.revealedMask()
	}
	return snap
}

func (c *ChainData) sections() *Sections {
	return &Sections{Green: c.Green, Orange: c.Orange, Purple: c.Purple}
}

func (g *GridData) revealedMask() [][]bool {
	mask := make([][]bool, g.Size)
	for i, row := range g.Cells {
		mask[i] = make([]bool, g.Size)
		for j, cell := range row {
			mask[i][j] = cell.Revealed
		}
	}
	return mask
}

func (g *GridData) mineMask() [][]bool {
	mask := make([][]bool, g.Size)
	for i, row := range g.Cells {
		mask[i] = make([]bool, g.Size)
		for j, cell := range row {
			mask[i][j] = cell.IsMine
		}
	}
	return mask
}

// StartResult is returned by StartRound.
type StartResult struct {
	Round   *RoundSnapshot `json:"round"`
	Balance float64        `json:"balance"`
}

// SpinResult mirrors the spin_result notification of the CHAIN variant.
type SpinResult struct {
	MatchID    string   `json:"matchId"`
	RoundID    string   `json:"roundId"`
	Bank       float64  `json:"bank"`
	Sections   Sections `json:"sections"`
	Result     string   `json:"result"`
	DarkGem    bool     `json:"darkGem"`
	Stone      bool     `json:"stone"`
	Multiplier float64  `json:"multiplier"`
	SpinMult   float64  `json:"payout"`
	WinAmount  float64  `json:"winAmount,omitempty"`
	Balance    float64  `json:"balance"`
	Closed     bool     `json:"closed"`
	Stake      float64  `json:"-"`
}

// RevealResult mirrors the revealed_cell notification of the GRID variant.
// Mines is disclosed only once the round is terminal.
type RevealResult struct {
	MatchID    string   `json:"matchId"`
	RoundID    string   `json:"roundId"`
	Row        int      `json:"row"`
	Col        int      `json:"col"`
	Mine       bool     `json:"mine"`
	Reveals    int      `json:"revealedCells"`
	Multiplier float64  `json:"multiplier"`
	Bank       float64  `json:"bank"`
	WinAmount  float64  `json:"winAmount,omitempty"`
	Balance    float64  `json:"balance"`
	Closed     bool     `json:"closed"`
	Mines      [][]bool `json:"mines,omitempty"`
}

// CashOutResult covers both the full and the partial cash-out notifications.
type CashOutResult struct {
	Payout     float64   `json:"payout"`
	MatchID    string    `json:"matchId"`
	RoundID    string    `json:"roundId,omitempty"`
	Bank       float64   `json:"bank"`
	Multiplier float64   `json:"multiplier"`
	Sections   *Sections `json:"sections,omitempty"`
	Balance    float64   `json:"balance"`
	Closed     bool      `json:"closed"`
}
