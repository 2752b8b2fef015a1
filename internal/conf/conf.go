package conf

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Bootstrap is the full startup configuration tree, loaded once in main.
type Bootstrap struct {
	Server *Server `yaml:"server"`
	Data   *Data   `yaml:"data"`
	Game   *Game   `yaml:"game"`
}

type Server struct {
	Addr         string        `yaml:"addr"`
	Path         string        `yaml:"path"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

type Data struct {
	Redis    Redis    `yaml:"redis"`
	Database Database `yaml:"database"`
	Rabbitmq Rabbitmq `yaml:"rabbitmq"`
	Ledger   Ledger   `yaml:"ledger"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Database struct {
	Driver string `yaml:"driver"`
	Source string `yaml:"source"`
}

type Rabbitmq struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	Queue      string `yaml:"queue"`
	RoutingKey string `yaml:"routingKey"`
}

type Ledger struct {
	BaseURL string        `yaml:"baseUrl"`
	Timeout time.Duration `yaml:"timeout"`
}

// Game holds the wagering rules shared by both variants. Ladder tables and
// bonus sets are copied into each round at creation so an open round is not
// affected by a config reload.
type Game struct {
	MinStake   float64 `yaml:"minStake"`
	MaxStake   float64 `yaml:"maxStake"`
	MaxCashout float64 `yaml:"maxCashout"`
	SessionTTL int     `yaml:"sessionTTL"` // seconds, round cache TTL

	BoardSize int     `yaml:"boardSize"`
	MinMines  int     `yaml:"minMines"`
	MaxMines  int     `yaml:"maxMines"`
	GridRTP   float64 `yaml:"gridRtp"`

	GreenLadder   []float64 `yaml:"greenLadder"`
	OrangeLadder  []float64 `yaml:"orangeLadder"`
	PurpleLadder  []float64 `yaml:"purpleLadder"`
	PurpleBonuses []float64 `yaml:"purpleBonuses"`
	GreenBonus    float64   `yaml:"greenBonus"`
	OrangeBonus   float64   `yaml:"orangeBonus"`
}

func defaultGame() *Game {
	return &Game{
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

// Load reads the YAML bootstrap file and fills unset game fields with
// defaults.
func Load(path string) (*Bootstrap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	bc := &Bootstrap{}
	if err := yaml.Unmarshal(raw, bc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if bc.Server == nil {
		bc.Server = &Server{}
	}
	if bc.Server.Addr == "" {
		bc.Server.Addr = ":8080"
	}
	if bc.Server.Path == "" {
		bc.Server.Path = "/ws"
	}
	if bc.Data == nil {
		bc.Data = &Data{}
	}
	if bc.Data.Ledger.Timeout <= 0 {
		bc.Data.Ledger.Timeout = 5 * time.Second
	}
	bc.Game = mergeGame(bc.Game)
	if err := bc.Game.Validate(); err != nil {
		return nil, err
	}
	return bc, nil
}

func mergeGame(g *Game) *Game {
	def := defaultGame()
	if g == nil {
		return def
	}
	if g.MinStake <= 0 {
		g.MinStake = def.MinStake
	}
	if g.MaxStake <= 0 {
		g.MaxStake = def.MaxStake
	}
	if g.MaxCashout <= 0 {
		g.MaxCashout = def.MaxCashout
	}
	if g.SessionTTL <= 0 {
		g.SessionTTL = def.SessionTTL
	}
	if g.BoardSize <= 0 {
		g.BoardSize = def.BoardSize
	}
	if g.MinMines <= 0 {
		g.MinMines = def.MinMines
	}
	if g.MaxMines <= 0 {
		g.MaxMines = g.BoardSize*g.BoardSize - 1
	}
	if g.GridRTP <= 0 || g.GridRTP > 1 {
		g.GridRTP = def.GridRTP
	}
	if len(g.GreenLadder) == 0 {
		g.GreenLadder = def.GreenLadder
	}
	if len(g.OrangeLadder) == 0 {
		g.OrangeLadder = def.OrangeLadder
	}
	if len(g.PurpleLadder) == 0 {
		g.PurpleLadder = def.PurpleLadder
	}
	if len(g.PurpleBonuses) == 0 {
		g.PurpleBonuses = def.PurpleBonuses
	}
	if g.GreenBonus <= 0 {
		g.GreenBonus = def.GreenBonus
	}
	if g.OrangeBonus <= 0 {
		g.OrangeBonus = def.OrangeBonus
	}
	return g
}

func (g *Game) Validate() error {
	switch {
	case g.MinStake > g.MaxStake:
		return fmt.Errorf("invalid stake bounds [%v,%v]", g.MinStake, g.MaxStake)
	case g.BoardSize < 2:
		return fmt.Errorf("invalid board size %d", g.BoardSize)
	case g.MaxMines >= g.BoardSize*g.BoardSize:
		return fmt.Errorf("max mines %d must leave at least one safe cell on a %dx%d board",
			g.MaxMines, g.BoardSize, g.BoardSize)
	case g.MinMines > g.MaxMines:
		return fmt.Errorf("invalid mine bounds [%d,%d]", g.MinMines, g.MaxMines)
	}
	return nil
}

// TTL is the round cache expiry as a duration.
func (g *Game) TTL() time.Duration {
	return time.Duration(g.SessionTTL) * time.Second
}
