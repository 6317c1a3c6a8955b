package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/DonHugo/sun-heat-and-ftx-sub004/docs"
	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/config"
	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/handlers"
	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/logger"
	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/repository"
	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/repository/db"
	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/sensors"
	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/server"
	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/service"
	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/telemetry"
)

// @title           Thermal Control Core API
// @version         1.0
// @description     Solar-thermal heating rig controller: live status, command gate, event journal and operator auth.
// @host            localhost:8080
// @BasePath        /

// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization

func main() {
	// load configs/config.yml before the logger so log level and file
	// come from it; config errors fall back to a default logger
	cfg, err := config.Load()
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.GetWithFile(cfg.Log.Level, cfg.Log.File)

	// open DB (API users live here, operational counters do not)
	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	repos := repository.NewRepository(sqlDB, cfg.State.Path)
	bus := buildBus(cfg)
	pub, err := buildPublisher(cfg, log)
	if err != nil {
		log.Fatalw("failed to set up mqtt", "err", err)
	}

	services := service.NewService(cfg, repos, bus, pub, log)
	if rp, ok := pub.(*telemetry.RealPublisher); ok {
		// remote commands and the pellet flag enter through the same gate
		// as the HTTP API
		rp.SubscribeCommands(services.Control)
	}
	apiHandler := handlers.NewHandler(services, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// start the control loop
	loopDone := make(chan struct{})
	go func() {
		services.Loop.Run(ctx, cfg.Loop.Tick)
		close(loopDone)
	}()

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, loopDone, srv, bus, pub, log)
}

// buildBus selects the hardware bus. The simulator stands in for the rig;
// fault-sentinel filtering applies to simulated probes the same as real ones.
func buildBus(cfg *config.Config) sensors.Bus {
	return sensors.NewSentinelFilter(sensors.NewSimulator(), cfg.Tank.FaultSentinels)
}

// buildPublisher returns the MQTT publisher, or a no-op when telemetry is
// disabled. An unreachable broker is not fatal: the real publisher buffers
// and retries in the background.
func buildPublisher(cfg *config.Config, log *logger.Logger) (telemetry.Publisher, error) {
	if !cfg.MQTT.Enabled {
		log.Infow("mqtt disabled, telemetry publishing is a no-op")
		return telemetry.Nop{}, nil
	}
	return telemetry.NewRealPublisher(cfg.MQTT, log)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, loopDone <-chan struct{}, srv *server.Server,
	bus sensors.Bus, pub telemetry.Publisher, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down...")

	// Stop the control loop first so the final counters save lands before
	// anything closes under it.
	cancel()
	select {
	case <-loopDone:
	case <-time.After(10 * time.Second):
		log.Warnw("control loop did not stop in time")
	}

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}

	if err := bus.Close(); err != nil {
		log.Warnw("bus close failed", "err", err)
	}
	if err := pub.Close(); err != nil {
		log.Warnw("telemetry close failed", "err", err)
	}
}
