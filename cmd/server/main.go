package main

import (
	"context"
	"crypto/rand"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"chat-platform/backend/internal/audit"
	auditrepo "chat-platform/backend/internal/audit/repository"
	authhandler "chat-platform/backend/internal/auth/handler"
	"chat-platform/backend/internal/auth/service"
	"chat-platform/backend/internal/channel"
	"chat-platform/backend/internal/config"
	"chat-platform/backend/internal/db"
	"chat-platform/backend/internal/health"
	membershiprepo "chat-platform/backend/internal/membership/repository"
	"chat-platform/backend/internal/notify"
	"chat-platform/backend/internal/otp"
	otprepo "chat-platform/backend/internal/otp/repository"
	"chat-platform/backend/internal/platform/clock"
	realtimehandler "chat-platform/backend/internal/realtime/handler"
	"chat-platform/backend/internal/security"
	signuprepo "chat-platform/backend/internal/signup/repository"
	"chat-platform/backend/internal/server"
	"chat-platform/backend/internal/server/middleware"
	"chat-platform/backend/internal/telemetry/otel"
	"chat-platform/backend/internal/token"
	tokenrepo "chat-platform/backend/internal/token/repository"
	userrepo "chat-platform/backend/internal/user/repository"
)

// grantTTL bounds realtime channel grants; clients request a fresh grant per
// subscription, so it only needs to cover the handshake.
const grantTTL = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "chat-auth", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	clk := clock.System{}

	var otpStore otprepo.Repository = otprepo.NewPostgresRepository(conn)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		otpStore = otprepo.NewRedisRepository(redis.NewClient(opts))
	}

	codes := otp.NewManager(otpStore, clk, rand.Reader)
	tokens := token.NewIssuer(tokenrepo.NewPostgresRepository(conn), clk, rand.Reader, cfg.AccessTTL(), cfg.RefreshTTL())

	privateKey, err := security.ParsePrivateKey(cfg.GrantPrivateKey)
	if err != nil {
		log.Fatalf("grant private key: %v", err)
	}
	publicKey, err := security.ParsePublicKey(cfg.GrantPublicKey)
	if err != nil {
		log.Fatalf("grant public key: %v", err)
	}
	signer := security.NewGrantSigner(privateKey, publicKey, cfg.GrantIssuer, grantTTL)

	var sender notify.Sender
	switch {
	case len(cfg.KafkaBrokersList()) > 0:
		kafkaSender := notify.NewKafkaSender(cfg.KafkaBrokersList(), cfg.OTPDeliveryTopic)
		defer kafkaSender.Close()
		sender = kafkaSender
	case cfg.SMTPHost != "":
		sender = notify.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	case cfg.Env == "development":
		sender = &notify.LogSender{}
	default:
		log.Fatal("no delivery transport: set KAFKA_BROKERS or SMTP_HOST (or APP_ENV=development)")
	}

	auditLogger := audit.NewLogger(auditrepo.NewPostgresRepository(conn), middleware.GetClientIP)

	authSvc := service.NewAuthService(
		userrepo.NewPostgresRepository(conn),
		signuprepo.NewPostgresRepository(conn),
		codes, tokens, sender, auditLogger,
		security.NewHasher(cfg.BcryptCost), clk,
	)
	authorizer := channel.NewAuthorizer(membershiprepo.NewPostgresRepository(conn))

	app := server.New("chat-auth", server.Deps{
		Auth:     authhandler.NewHandler(authSvc),
		Realtime: realtimehandler.NewHandler(authorizer, signer, clk),
		Health:   health.NewHandler(conn),
		Tokens:   tokens,
	})

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
