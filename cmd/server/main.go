// The server binary runs the committee governance HTTP API.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"commie/backend/internal/audit"
	auditrepo "commie/backend/internal/audit/repository"
	commenthandler "commie/backend/internal/comment/handler"
	commentrepo "commie/backend/internal/comment/repository"
	committeehandler "commie/backend/internal/committee/handler"
	committeerepo "commie/backend/internal/committee/repository"
	committeeservice "commie/backend/internal/committee/service"
	"commie/backend/internal/config"
	"commie/backend/internal/db"
	"commie/backend/internal/eligibility/engine"
	eligibilityrepo "commie/backend/internal/eligibility/repository"
	motionhandler "commie/backend/internal/motion/handler"
	motionrepo "commie/backend/internal/motion/repository"
	motionservice "commie/backend/internal/motion/service"
	orghandler "commie/backend/internal/organization/handler"
	orgrepo "commie/backend/internal/organization/repository"
	orgservice "commie/backend/internal/organization/service"
	"commie/backend/internal/security"
	"commie/backend/internal/server"
	"commie/backend/internal/server/middleware"
	"commie/backend/internal/telemetry"
	"commie/backend/internal/telemetry/otel"
	"commie/backend/internal/telemetry/producer"
	userhandler "commie/backend/internal/user/handler"
	userrepo "commie/backend/internal/user/repository"
	userservice "commie/backend/internal/user/service"
	votehandler "commie/backend/internal/vote/handler"
	voterepo "commie/backend/internal/vote/repository"
	voteservice "commie/backend/internal/vote/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "commie-api", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	verifier, err := newVerifier(cfg)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	kafkaProducer, err := producer.NewKafkaProducer(cfg.EventKafkaBrokersList(), cfg.EventKafkaTopic)
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}
	var emitter telemetry.EventEmitter
	if kafkaProducer != nil {
		emitter = kafkaProducer
		defer kafkaProducer.Close()
	}

	auditLog := audit.NewLogger(auditrepo.NewPostgresRepository(database), middleware.IPFrom)

	users := userrepo.NewPostgresRepository(database)
	orgs := orgrepo.NewPostgresRepository(database)
	committees := committeerepo.NewPostgresRepository(database)
	motions := motionrepo.NewPostgresRepository(database)
	votes := voterepo.NewPostgresRepository(database)
	comments := commentrepo.NewPostgresRepository(database)
	policies := eligibilityrepo.NewPostgresRepository(database)

	evaluator := engine.NewOPAEvaluator(policies)
	userSvc := userservice.NewService(users)
	orgSvc := orgservice.NewService(orgs, users, auditLog)
	committeeSvc := committeeservice.NewService(committees, auditLog)
	motionSvc := motionservice.NewService(motions, votes, comments, evaluator, auditLog, emitter)
	voteSvc := voteservice.NewService(votes, auditLog, emitter)

	router := server.NewRouter(server.Deps{
		DB:            database,
		Verifier:      verifier,
		UserSync:      userSvc,
		CORSOrigins:   cfg.CORSOriginsList(),
		Organizations: orghandler.New(orgSvc),
		Users:         userhandler.New(userSvc, users),
		Committees:    committeehandler.New(committeeSvc, committees, auditrepo.NewPostgresRepository(database)),
		Motions:       motionhandler.New(motionSvc, motions, committees),
		Votes:         votehandler.New(voteSvc, motions, committees),
		Comments:      commenthandler.New(comments, motions, committees),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("api listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Print("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	// Give in-flight async emits time to land before the producer closes.
	time.Sleep(telemetry.ShutdownDrainDuration)
}

func newVerifier(cfg *config.Config) (*security.Verifier, error) {
	if cfg.JWTPublicKey != "" {
		return security.NewPublicKeyVerifier([]byte(cfg.JWTPublicKey), cfg.JWTIssuer, cfg.JWTAudience)
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("set JWT_SECRET or JWT_PUBLIC_KEY")
	}
	return security.NewHS256Verifier(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience), nil
}
