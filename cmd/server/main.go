package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "voting-app/docs"
	"voting-app/internal/config"
	"voting-app/internal/domain/auth"
	"voting-app/internal/domain/poll"
	"voting-app/internal/domain/user"
	"voting-app/internal/domain/vote"
	api "voting-app/internal/http"
	"voting-app/internal/metrics"
	"voting-app/internal/platform/database"
	jwtpkg "voting-app/internal/platform/jwt"
	"voting-app/internal/repository/postgres"
	"voting-app/internal/worker"
)

// @title           Voting App API
// @version         1.0
// @description     Poll voting platform with JWT session rotation
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
func main() {
	cfg := config.Load()
	metrics.Register()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	api.SetLogger(logger)

	db, err := database.NewPostgres(cfg.DB_DSN)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer db.Close()

	userRepo := postgres.NewUserRepo(db)
	tokenRepo := postgres.NewTokenRepo(db)
	pollRepo := postgres.NewPollRepo(db)
	voteRepo := postgres.NewVoteRepo(db)

	jwtMgr := jwtpkg.NewManager(cfg.JWTSecret, cfg.JWTIssuer)

	userSvc := user.NewService(userRepo)
	authSvc := auth.NewService(tokenRepo, jwtMgr, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	pollSvc := poll.NewService(pollRepo)
	voteSvc := vote.NewService(voteRepo)

	voteCh := make(chan worker.VoteEvent, 100)
	statsWorker := worker.NewStatsWorker(voteCh, logger)

	router := api.NewRouter(userSvc, authSvc, pollSvc, voteSvc, voteCh, db)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go statsWorker.Run(ctx)

	go func() {
		log.Printf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	<-stop
	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server shutdown error: %v", err)
	}

	log.Println("server stopped")
}
