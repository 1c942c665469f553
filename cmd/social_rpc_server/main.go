package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lam0glia/social-service/bootstrap"
	"github.com/lam0glia/social-service/connection"
	"github.com/lam0glia/social-service/http/handler"
	"github.com/lam0glia/social-service/http/route"
	"github.com/lam0glia/social-service/repository"
	"github.com/lam0glia/social-service/rpc"
	"github.com/lam0glia/social-service/service"
	"github.com/lam0glia/social-service/subscriber"
	"github.com/lam0glia/social-service/use_case"
	"github.com/lam0glia/social-service/worker"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	app, err := bootstrap.NewApp()
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	defer func() {
		if err := app.Close(); err != nil {
			app.Logger.Error("close app", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		env    = app.Env
		logger = app.Logger
	)

	presenceRepository := repository.NewPresence(app.RedisClient)
	friendshipRepository := repository.NewFriendship(app.CassandraSession)
	communityRepository := repository.NewCommunity(app.CassandraSession)

	subscribers := subscriber.NewRegistry(app.Metrics)

	server := rpc.NewServer(logger, app.Metrics)
	use_case.Register(server, use_case.Dependencies{
		Friends:  friendshipRepository,
		Presence: presenceRepository,
		Logger:   logger,
	})

	manager := connection.NewManager(
		env.ConnectionConfig(),
		service.NewHMACVerifier(env.AuthSecret, env.AuthMaxSkew()),
		server,
		subscribers,
		service.NewPresence(presenceRepository, app.Bus),
		logger,
		app.Metrics,
	)

	router := worker.NewUpdateRouter(
		app.Bus,
		subscribers,
		friendshipRepository,
		communityRepository,
		logger,
		app.Metrics,
	)

	h := handler.NewHandler(
		handler.NewWebSocket(manager, env.SocketConfig(), logger),
	)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", env.HTTPPortNumber),
		Handler: route.Setup(h, app.SonyFlake, app.Registry, env.EnvironmentName, logger),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return router.Start(ctx)
	})

	g.Go(func() error {
		logger.Info("listening", "port", env.HTTPPortNumber, "bus", env.BusDriver)

		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := httpServer.Shutdown(shutdownCtx)
		manager.CloseAll(websocket.CloseGoingAway, "server shutting down")

		return err
	})

	if err = g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
