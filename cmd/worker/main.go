// The worker binary runs the background jobs: the Kafka→Loki event forwarder
// and the voting-window sweeper.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/segmentio/kafka-go"

	"commie/backend/internal/audit"
	auditrepo "commie/backend/internal/audit/repository"
	commentrepo "commie/backend/internal/comment/repository"
	committeerepo "commie/backend/internal/committee/repository"
	"commie/backend/internal/config"
	"commie/backend/internal/db"
	"commie/backend/internal/eligibility/engine"
	eligibilityrepo "commie/backend/internal/eligibility/repository"
	motionrepo "commie/backend/internal/motion/repository"
	motionservice "commie/backend/internal/motion/service"
	"commie/backend/internal/sweeper"
	"commie/backend/internal/telemetry"
	"commie/backend/internal/telemetry/loki"
	"commie/backend/internal/telemetry/producer"
	voterepo "commie/backend/internal/vote/repository"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	if brokers := cfg.EventKafkaBrokersList(); len(brokers) > 0 && cfg.LokiURL != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			forwardEvents(ctx, brokers, cfg)
		}()
	} else {
		log.Print("event forwarder disabled (KAFKA_BROKERS or LOKI_URL unset)")
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		runSweeper(ctx, database, cfg)
	}()

	wg.Wait()
}

// forwardEvents consumes domain events from Kafka and pushes them to Loki.
// Push failures are logged and the message is skipped; the pipeline is
// best-effort by design of the emit path.
func forwardEvents(ctx context.Context, brokers []string, cfg *config.Config) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   cfg.EventKafkaTopic,
		GroupID: cfg.KafkaGroupID,
	})
	defer reader.Close()

	log.Printf("forwarding %s to %s", cfg.EventKafkaTopic, cfg.LokiURL)
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Printf("worker: read: %v", err)
			continue
		}
		if err := loki.PushEventJSON(ctx, cfg.LokiURL, msg.Value); err != nil {
			log.Printf("worker: loki push: %v", err)
		}
	}
}

// runSweeper closes expired voting windows through the same lifecycle
// transitions the API uses, acting as the system user.
func runSweeper(ctx context.Context, database *sql.DB, cfg *config.Config) {
	motions := motionrepo.NewPostgresRepository(database)
	votes := voterepo.NewPostgresRepository(database)
	comments := commentrepo.NewPostgresRepository(database)
	committees := committeerepo.NewPostgresRepository(database)
	policies := eligibilityrepo.NewPostgresRepository(database)
	auditLog := audit.NewLogger(auditrepo.NewPostgresRepository(database), nil)

	var emitter telemetry.EventEmitter
	kafkaProducer, err := producer.NewKafkaProducer(cfg.EventKafkaBrokersList(), cfg.EventKafkaTopic)
	if err != nil {
		log.Printf("worker: kafka producer: %v", err)
	} else if kafkaProducer != nil {
		emitter = kafkaProducer
		defer kafkaProducer.Close()
	}

	lifecycle := motionservice.NewService(motions, votes, comments, engine.NewOPAEvaluator(policies), auditLog, emitter)
	s := sweeper.New(motions, committees, lifecycle, cfg.SweepIntervalDuration())
	log.Printf("sweeper running every %s", cfg.SweepIntervalDuration())
	s.Run(ctx)
}
