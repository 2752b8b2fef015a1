package data

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cloudstok/mines-game-backend/encoding"
	"github.com/cloudstok/mines-game-backend/internal/biz"
	"github.com/cloudstok/mines-game-backend/internal/conf"
)

const (
	txnTypeDebit  = "DEBIT"
	txnTypeCredit = "CREDIT"
)

type ledgerClient struct {
	base    string
	timeout time.Duration
	hc      *http.Client
	log     *zap.Logger
}

// NewLedgerClient talks to the external operator balance service over HTTP.
// Every call is bounded by the configured timeout; the engine treats a
// timeout like any other refusal.
func NewLedgerClient(c *conf.Data, logger *zap.Logger) biz.LedgerClient {
	return &ledgerClient{
		base:    c.Ledger.BaseURL,
		timeout: c.Ledger.Timeout,
		hc:      &http.Client{},
		log:     logger,
	}
}

type balanceRequest struct {
	ID         string  `json:"id"`
	TxnType    string  `json:"txn_type"`
	Amount     float64 `json:"amount"`
	TxnID      string  `json:"txn_id,omitempty"`
	UserID     string  `json:"user_id"`
	OperatorID string  `json:"operator_id"`
	SessionID  string  `json:"session_id"`
	IP         string  `json:"ip"`
}

type balanceResponse struct {
	Status bool   `json:"status"`
	TxnID  string `json:"txn_id"`
	Msg    string `json:"msg"`
}

func (l *ledgerClient) Debit(ctx context.Context, req *biz.DebitRequest) (string, error) {
	resp, err := l.post(ctx, &balanceRequest{
		ID:         req.RoundID,
		TxnType:    txnTypeDebit,
		Amount:     req.Amount.Round(2).InexactFloat64(),
		UserID:     req.UserID,
		OperatorID: req.OperatorID,
		SessionID:  req.SessionID,
		IP:         req.IP,
	})
	if err != nil {
		return "", err
	}
	if !resp.Status {
		return "", fmt.Errorf("debit refused: %s", resp.Msg)
	}
	return resp.TxnID, nil
}

func (l *ledgerClient) Credit(ctx context.Context, req *biz.CreditRequest) error {
	resp, err := l.post(ctx, &balanceRequest{
		ID:         req.RoundID,
		TxnType:    txnTypeCredit,
		Amount:     req.Amount.Round(2).InexactFloat64(),
		TxnID:      req.TxnID,
		UserID:     req.UserID,
		OperatorID: req.OperatorID,
		SessionID:  req.SessionID,
		IP:         req.IP,
	})
	if err != nil {
		return err
	}
	if !resp.Status {
		return fmt.Errorf("credit refused: %s", resp.Msg)
	}
	return nil
}

func (l *ledgerClient) post(ctx context.Context, body *balanceRequest) (*balanceResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	raw, err := encoding.JSON.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode balance request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.base+"/balance", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build balance request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := l.hc.Do(req)
	if err != nil {
		l.log.Error("ledger post", zap.Error(err), zap.String("roundId", body.ID), zap.String("type", body.TxnType))
		return nil, fmt.Errorf("ledger call: %w", err)
	}
	defer httpResp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read ledger response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ledger status %d: %s", httpResp.StatusCode, payload)
	}
	resp := new(balanceResponse)
	if err := encoding.JSON.Unmarshal(payload, resp); err != nil {
		return nil, fmt.Errorf("decode ledger response: %w", err)
	}
	return resp, nil
}
