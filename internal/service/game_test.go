package service

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cloudstok/mines-game-backend/internal/biz"
	"github.com/cloudstok/mines-game-backend/internal/conf"
)

type pushed struct {
	session string
	event   string
	payload any
}

type capturePusher struct {
	mu     sync.Mutex
	events []pushed
}

func (p *capturePusher) Push(sessionID, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, pushed{session: sessionID, event: event, payload: payload})
}

func (p *capturePusher) Broadcast(event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, pushed{event: event, payload: payload})
}

func (p *capturePusher) named(event string) []pushed {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []pushed
	for _, e := range p.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

type memRepo struct {
	mu       sync.Mutex
	sessions map[string]*biz.PlayerSession
	rounds   map[string]*biz.RoundState
}

func newMemRepo() *memRepo {
	return &memRepo{
		sessions: make(map[string]*biz.PlayerSession),
		rounds:   make(map[string]*biz.RoundState),
	}
}

func (m *memRepo) GetSession(_ context.Context, id string) (*biz.PlayerSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id], nil
}

func (m *memRepo) SetSession(_ context.Context, s *biz.PlayerSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.SessionID] = s
	return nil
}

func (m *memRepo) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memRepo) GetRound(_ context.Context, key string) (*biz.RoundState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rounds[key], nil
}

func (m *memRepo) SetRound(_ context.Context, key string, r *biz.RoundState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.Version++
	m.rounds[key] = r
	return nil
}

func (m *memRepo) DeleteRound(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rounds, key)
	return nil
}

type okLedger struct{}

func (okLedger) Debit(context.Context, *biz.DebitRequest) (string, error) { return "txn-1", nil }
func (okLedger) Credit(context.Context, *biz.CreditRequest) error        { return nil }

type noopRecorder struct{}

func (noopRecorder) Record(context.Context, *biz.SettlementRecord) {}

type noopReconciler struct{}

func (noopReconciler) PendingCredit(context.Context, *biz.CreditCorrection) {}

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

func newTestService(t *testing.T) (*GameService, *capturePusher) {
	t.Helper()
	engine := biz.NewRoundEngine(testGame(), newMemRepo(), okLedger{}, noopRecorder{}, noopReconciler{}, zap.NewNop())
	svc := NewGameService(engine, zap.NewNop())
	pusher := &capturePusher{}
	svc.SetPusher(pusher)

	svc.OnSessionOpen(context.Background(), &biz.PlayerSession{
		UserID:     "user42",
		OperatorID: "op1",
		SessionID:  "sess-1",
		Balance:    decimal.NewFromInt(100),
	})
	return svc, pusher
}

func TestOnSessionOpenPushesInfo(t *testing.T) {
	_, pusher := newTestService(t)
	infos := pusher.named("info")
	if len(infos) != 1 {
		t.Fatalf("info events = %d, want 1", len(infos))
	}
	payload := infos[0].payload.(map[string]any)
	if payload["balance"] != 100.0 || payload["user_id"] != "user42" {
		t.Fatalf("info payload = %v", payload)
	}
	if got := pusher.named("game_status"); len(got) != 0 {
		t.Fatal("game_status replayed with no open round")
	}
}

func TestHandleMessageStartGame(t *testing.T) {
	svc, pusher := newTestService(t)
	svc.HandleMessage(context.Background(), "sess-1", "SG:10")

	if got := pusher.named("game_started"); len(got) != 1 {
		t.Fatalf("game_started events = %d", len(got))
	}
	infos := pusher.named("info")
	last := infos[len(infos)-1].payload.(map[string]any)
	if last["balance"] != 90.0 {
		t.Fatalf("balance after start = %v, want 90", last["balance"])
	}
}

func TestHandleMessageGridFlow(t *testing.T) {
	svc, pusher := newTestService(t)
	svc.HandleMessage(context.Background(), "sess-1", "SG:10:5:3")
	if got := pusher.named("game_started"); len(got) != 1 {
		t.Fatalf("game_started events = %d", len(got))
	}
	svc.HandleMessage(context.Background(), "sess-1", "RC:2:2")
	if got := pusher.named("revealed_cell"); len(got) != 1 {
		t.Fatalf("revealed_cell events = %d", len(got))
	}
}

func TestHandleMessageChainSpinBroadcastsBet(t *testing.T) {
	svc, pusher := newTestService(t)
	svc.HandleMessage(context.Background(), "sess-1", "SG:10")
	svc.HandleMessage(context.Background(), "sess-1", "SP")

	if got := pusher.named("spin_result"); len(got) != 1 {
		t.Fatalf("spin_result events = %d", len(got))
	}
	bets := pusher.named("bets")
	if len(bets) != 1 {
		t.Fatalf("bets broadcasts = %d", len(bets))
	}
	payload := bets[0].payload.(map[string]any)
	if payload["userId"] != "us**42" {
		t.Fatalf("masked user id = %v", payload["userId"])
	}
}

func TestHandleMessageErrors(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want string
	}{
		{"unknown opcode", "XX:1", "Invalid Action"},
		{"bad stake", "SG:abc", "Invalid Bet"},
		{"missing stake", "SG", "Invalid Bet"},
		{"spin without round", "SP", "Game Details not found"},
		{"cashout without round", "COA", "Game Details not found"},
		{"bad reveal args", "RC:1", "Invalid Action"},
		{"bad odds args", "MD:zz", "Invalid Action"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, pusher := newTestService(t)
			svc.HandleMessage(context.Background(), "sess-1", tt.msg)
			errs := pusher.named("betError")
			if len(errs) != 1 || errs[0].payload != tt.want {
				t.Fatalf("betError = %v, want %q", errs, tt.want)
			}
		})
	}
}

func TestHandleMessageMinesMultiplier(t *testing.T) {
	svc, pusher := newTestService(t)
	svc.HandleMessage(context.Background(), "sess-1", "MD:3")

	got := pusher.named("mines_multiplier")
	if len(got) != 1 {
		t.Fatalf("mines_multiplier events = %d", len(got))
	}
	payload := got[0].payload.(map[string]any)
	table := payload["multipliers"].([]float64)
	if len(table) != 22 {
		t.Fatalf("table length = %d, want 22", len(table))
	}
}

func TestMaskUserID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"user42", "us**42"},
		{"ab", "**"},
		{"", "**"},
		{"abcd", "ab**cd"},
	}
	for _, tt := range tests {
		if got := maskUserID(tt.in); got != tt.want {
			t.Errorf("maskUserID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestErrMessageMapping(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{biz.ErrInvalidSession, "Invalid Player Details"},
		{biz.ErrInsufficientBalance, "Insufficient Balance"},
		{biz.ErrBetCancelled, "Bet Cancelled by Upstream"},
		{biz.ErrRoundConflict, "Action rejected, please retry"},
		{context.DeadlineExceeded, "Service unavailable, please retry"},
	}
	for _, tt := range tests {
		if got := errMessage(tt.err); got != tt.want {
			t.Errorf("errMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
