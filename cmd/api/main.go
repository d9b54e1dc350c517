package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-social-go/internal/content"
	contentrepo "github.com/ovaphlow/pitchfork/service-social-go/internal/content/repo"
	"github.com/ovaphlow/pitchfork/service-social-go/internal/feed"
	feedrepo "github.com/ovaphlow/pitchfork/service-social-go/internal/feed/repo"
	"github.com/ovaphlow/pitchfork/service-social-go/internal/graph"
	graphrepo "github.com/ovaphlow/pitchfork/service-social-go/internal/graph/repo"
	"github.com/ovaphlow/pitchfork/service-social-go/internal/profile"
	profilerepo "github.com/ovaphlow/pitchfork/service-social-go/internal/profile/repo"
	"github.com/ovaphlow/pitchfork/service-social-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-social-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-social-go/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-social-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/mail"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/utilities"
)

// openRevoker connects to redis when REDIS_ADDR is set. Without it logout
// only clears the cookie.
func openRevoker(ctx context.Context, sugar *zap.SugaredLogger) (session.Revoker, func()) {
	cfg := session.RedisConfigFromEnv()
	if cfg.Addr == "" {
		sugar.Warn("REDIS_ADDR not set; token revocation disabled")
		return session.NopRevoker{}, func() {}
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		sugar.Warnw("redis unreachable at startup", "addr", cfg.Addr, "err", err)
	}
	return session.NewRedisRevoker(rdb), func() { _ = rdb.Close() }
}

func main() {
	// best-effort: without a .env file the real environment is used
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-social-go")

	db, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	applied, err := database.Migrate(db)
	if err != nil {
		sugar.Fatalf("db migrate: %v", err)
	}
	sugar.Infow("migrations applied", "count", applied)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens, err := session.NewTokens(session.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("session: %v", err)
	}
	revoker, closeRevoker := openRevoker(ctx, sugar)
	defer closeRevoker()
	guard := session.NewGuard(tokens, revoker, sugar)

	mailer := mail.NewSMTPSender(mail.ConfigFromEnv())

	userSvc := user.NewUserService(userrepo.NewUserRepo(db), user.BcryptHasher{Cost: 10}, mailer, sugar)
	profileSvc := profile.NewService(profilerepo.NewProfileRepo(db))
	graphSvc := graph.NewService(graphrepo.NewGraphRepo(db))
	contentSvc := content.NewService(contentrepo.NewPostRepo(db), contentrepo.NewCommentRepo(db))
	feedSvc := feed.NewService(feedrepo.NewFeedRepo(db))

	handler := router.RegisterRoutes(sugar, router.Deps{
		DB:      db,
		Guard:   guard,
		CORS:    router.CORSConfigFromEnv(),
		User:    user.NewHandler(userSvc, guard, sugar),
		Profile: profile.NewHandler(profileSvc, sugar),
		Graph:   graph.NewHandler(graphSvc, sugar),
		Content: content.NewHandler(contentSvc, sugar),
		Feed:    feed.NewHandler(feedSvc, sugar),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	srv := &http.Server{
		Addr:              "0.0.0.0:" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sugar.Infow("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
