package data

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
	"xorm.io/xorm"

	"github.com/cloudstok/mines-game-backend/internal/conf"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewRedis,
	NewMysql,
	NewRabbitMQ,
	NewSessionRepo,
	NewLedgerClient,
	NewSettlementRecorder,
	NewReconciler,
)

// Data bundles the shared external resources: the session cache, the
// settlement database, and the reconciliation queue channel.
type Data struct {
	rdb redis.UniversalClient
	db  *xorm.Engine
	mq  *amqp.Channel
}

func NewData(logger *zap.Logger, rdb redis.UniversalClient, db *xorm.Engine, mq *amqp.Channel) (*Data, func(), error) {
	cleanup := func() {
		logger.Info("closing the data resources")
	}
	return &Data{rdb: rdb, db: db, mq: mq}, cleanup, nil
}

func NewRedis(c *conf.Data, logger *zap.Logger) (redis.UniversalClient, func(), error) {
	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{c.Redis.Addr},
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("NewRedis", zap.Error(err), zap.String("addr", c.Redis.Addr))
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, func() { _ = rdb.Close() }, nil
}

func NewMysql(c *conf.Data, logger *zap.Logger) (*xorm.Engine, func(), error) {
	driver := c.Database.Driver
	if driver == "" {
		driver = "mysql"
	}
	engine, err := xorm.NewEngine(driver, c.Database.Source)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := engine.Sync(new(Settlement)); err != nil {
		logger.Error("NewMysql", zap.Error(err))
		return nil, nil, fmt.Errorf("sync settlement schema: %w", err)
	}
	return engine, func() { _ = engine.Close() }, nil
}

// NewRabbitMQ opens the reconciliation channel and declares its durable
// exchange, queue, and binding.
func NewRabbitMQ(c *conf.Data, logger *zap.Logger) (*amqp.Channel, func(), error) {
	conn, err := amqp.Dial(c.Rabbitmq.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(c.Rabbitmq.Exchange, "direct", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(c.Rabbitmq.Queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(c.Rabbitmq.Queue, c.Rabbitmq.RoutingKey, c.Rabbitmq.Exchange, false, nil); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("bind queue: %w", err)
	}
	cleanup := func() {
		_ = ch.Close()
		_ = conn.Close()
	}
	return ch, cleanup, nil
}
