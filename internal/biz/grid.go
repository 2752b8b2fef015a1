package biz

// GridCell is one cell of the GRID variant board.
type GridCell struct {
	IsMine   bool `json:"isMine"`
	Revealed bool `json:"revealed"`
}

// GridData is the GRID variant payload: a fixed-size mine board and the count
// of safely revealed cells. RTP is captured at round creation so the odds of
// an open round survive a config reload.
type GridData struct {
	Size     int          `json:"size"`
	Mines    int          `json:"mineCount"`
	Cells    [][]GridCell `json:"playerGrid"`
	Revealed int          `json:"revealedCells"`
	RTP      float64      `json:"rtp"`
}

// NewGridData places mineCount mines uniformly at random without repetition
// on a size x size board.
func NewGridData(size, mineCount int, rtp float64, rng RNG) *GridData {
	cells := make([][]GridCell, size)
	for i := range cells {
		cells[i] = make([]GridCell, size)
	}
	placed := 0
	for placed < mineCount {
		r, c := rng.IntN(size), rng.IntN(size)
		if !cells[r][c].IsMine {
			cells[r][c].IsMine = true
			placed++
		}
	}
	return &GridData{Size: size, Mines: mineCount, Cells: cells, RTP: rtp}
}

// Reveal flips one cell. It reports (mine, ok); ok is false when the target
// is out of range or already revealed, which leaves the board untouched.
func (g *GridData) Reveal(row, col int) (mine, ok bool) {
	if row < 0 || row >= g.Size || col < 0 || col >= g.Size {
		return false, false
	}
	cell := &g.Cells[row][col]
	if cell.Revealed {
		return false, false
	}
	cell.Revealed = true
	if cell.IsMine {
		return true, true
	}
	g.Revealed++
	return false, true
}

// MineHit reports whether any mine has been revealed.
func (g *GridData) MineHit() bool {
	for _, row := range g.Cells {
		for _, cell := range row {
			if cell.IsMine && cell.Revealed {
				return true
			}
		}
	}
	return false
}

// SafeCells is the number of non-mine cells on the board.
func (g *GridData) SafeCells() int {
	return g.Size*g.Size - g.Mines
}

// Cleared reports whether every safe cell has been revealed.
func (g *GridData) Cleared() bool {
	return g.Revealed >= g.SafeCells()
}

// Multiplier is the current cash-out multiplier for the revealed count.
func (g *GridData) Multiplier() float64 {
	if g.MineHit() {
		return 0
	}
	return GridMultiplier(g.Size, g.Mines, g.Revealed, g.RTP)
}

// GridMultiplier maps (boardSize, mineCount, revealedCount) to a multiplier
// from the hypergeometric survival probability of drawing revealed safe cells
// in a row, scaled by the configured RTP. Strictly increasing in revealed.
func GridMultiplier(size, mines, revealed int, rtp float64) float64 {
	if revealed <= 0 {
		return 0
	}
	total := size * size
	safe := total - mines
	if revealed > safe {
		revealed = safe
	}
	p := 1.0
	for i := 0; i < revealed; i++ {
		p *= float64(safe-i) / float64(total-i)
	}
	return rtp / p
}

// GridOddsTable is the full multiplier ladder for a board configuration,
// indexed by revealed count starting at one safe reveal. Pure; the MD query
// is served from it without touching any stored state.
func GridOddsTable(size, mines int, rtp float64) []float64 {
	safe := size*size - mines
	table := make([]float64, safe)
	for k := 1; k <= safe; k++ {
		table[k-1] = GridMultiplier(size, mines, k, rtp)
	}
	return table
}
