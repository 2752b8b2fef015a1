package data

import (
	"context"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/cloudstok/mines-game-backend/encoding"
	"github.com/cloudstok/mines-game-backend/internal/biz"
	"github.com/cloudstok/mines-game-backend/internal/conf"
)

type reconciler struct {
	ch       *amqp.Channel
	exchange string
	key      string
	log      *zap.Logger
}

// NewReconciler publishes pending ledger/audit corrections to the durable
// reconciliation queue, where an out-of-band worker replays them.
func NewReconciler(data *Data, c *conf.Data, logger *zap.Logger) biz.Reconciler {
	return &reconciler{
		ch:       data.mq,
		exchange: c.Rabbitmq.Exchange,
		key:      c.Rabbitmq.RoutingKey,
		log:      logger,
	}
}

func (r *reconciler) PendingCredit(ctx context.Context, c *biz.CreditCorrection) {
	body, err := encoding.JSON.Marshal(c)
	if err != nil {
		r.log.Error("PendingCredit", zap.Error(err), zap.String("roundId", c.RoundID))
		return
	}
	err = r.ch.Publish(r.exchange, r.key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		// Nothing further to fall back on; the correction survives only in
		// the log line.
		r.log.Error("PendingCredit",
			zap.Error(err),
			zap.String("kind", c.Kind),
			zap.String("roundId", c.RoundID),
			zap.String("userId", c.UserID),
			zap.String("amount", c.Amount.String()),
		)
	}
}
