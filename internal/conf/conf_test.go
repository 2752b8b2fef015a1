package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFillsDefaults(t *testing.T) {
	bc, err := Load(writeConfig(t, `
data:
  redis:
    addr: "127.0.0.1:6379"
`))
	if err != nil {
		t.Fatal(err)
	}
	if bc.Server.Addr != ":8080" || bc.Server.Path != "/ws" {
		t.Fatalf("server defaults = %+v", bc.Server)
	}
	if bc.Data.Ledger.Timeout != 5*time.Second {
		t.Fatalf("ledger timeout = %v", bc.Data.Ledger.Timeout)
	}
	g := bc.Game
	if g.MinStake != 1 || g.MaxStake != 1000 || g.SessionTTL != 3600 {
		t.Fatalf("game defaults = %+v", g)
	}
	if g.BoardSize != 5 || g.MinMines != 1 || g.MaxMines != 24 || g.GridRTP != 0.97 {
		t.Fatalf("grid defaults = %+v", g)
	}
	if len(g.GreenLadder) != 8 || len(g.OrangeLadder) != 7 || len(g.PurpleLadder) != 5 {
		t.Fatalf("ladder defaults = %+v", g)
	}
	if g.GreenBonus != 7.5 || g.OrangeBonus != 21.0 || len(g.PurpleBonuses) != 5 {
		t.Fatalf("bonus defaults = %+v", g)
	}
}

func TestLoadKeepsExplicitValues(t *testing.T) {
	bc, err := Load(writeConfig(t, `
server:
  addr: ":9999"
game:
  minStake: 2
  maxStake: 50
  greenLadder: [1.1, 1.3]
`))
	if err != nil {
		t.Fatal(err)
	}
	if bc.Server.Addr != ":9999" {
		t.Fatalf("addr = %q", bc.Server.Addr)
	}
	g := bc.Game
	if g.MinStake != 2 || g.MaxStake != 50 || len(g.GreenLadder) != 2 {
		t.Fatalf("game = %+v", g)
	}
	// Unset fields still default.
	if g.MaxCashout != 50000 || len(g.OrangeLadder) != 7 {
		t.Fatalf("defaults not merged: %+v", g)
	}
}

func TestLoadRejectsInvalidGame(t *testing.T) {
	cases := []string{
		"game:\n  minStake: 100\n  maxStake: 10\n",
		"game:\n  boardSize: 1\n",
		"game:\n  boardSize: 3\n  maxMines: 9\n",
		"game:\n  minMines: 5\n  maxMines: 4\n",
	}
	for _, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Errorf("Load accepted invalid config:\n%s", body)
		}
	}
}

func TestTTL(t *testing.T) {
	g := &Game{SessionTTL: 3600}
	if g.TTL() != time.Hour {
		t.Fatalf("TTL = %v, want 1h", g.TTL())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load of missing file succeeded")
	}
}
