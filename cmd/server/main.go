package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/cloudstok/mines-game-backend/internal/conf"
	"github.com/cloudstok/mines-game-backend/internal/server"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name = "mines-game-backend"
	// Version is the version of the compiled software.
	Version string
	// flagconf is the config flag.
	flagconf string
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs/config.yaml", "config path, eg: -conf config.yaml")
}

type app struct {
	ws  *server.WSServer
	log *zap.Logger
}

func newApp(ws *server.WSServer, logger *zap.Logger) *app {
	return &app{ws: ws, log: logger}
}

// Run serves until a termination signal or a listener failure, then drains
// connections with a bounded shutdown.
func (a *app) Run() error {
	errCh := make(chan error, 1)
	go func() { errCh <- a.ws.Start(context.Background()) }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		a.log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.ws.Stop(ctx)
}

func main() {
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	logger = logger.With(zap.String("service", Name), zap.String("version", Version))

	bc, err := conf.Load(flagconf)
	if err != nil {
		logger.Fatal("load config", zap.Error(err), zap.String("path", flagconf))
	}

	application, cleanup, err := wireApp(bc.Server, bc.Data, bc.Game, logger)
	if err != nil {
		logger.Fatal("init application", zap.Error(err))
	}
	defer cleanup()

	if err := application.Run(); err != nil {
		logger.Fatal("run", zap.Error(err))
	}
}
