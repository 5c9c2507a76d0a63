package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"schooltrack/internal/api/router"
	"schooltrack/internal/cache"
	"schooltrack/internal/config"
	"schooltrack/internal/core/aggregate"
	"schooltrack/internal/core/alert"
	"schooltrack/internal/core/ingest"
	"schooltrack/internal/core/model"
	"schooltrack/internal/core/repository"
	"schooltrack/internal/core/service"
	"schooltrack/internal/feed"
)

func main() {
	// Invalid configuration aborts startup; every other failure degrades.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories: MongoDB when configured, in-memory otherwise
	var (
		sessionRepo repository.SessionRepository
		eventRepo   repository.RawEventRepository
		alertRepo   repository.AlertRepository
		schoolRepo  repository.SchoolRepository
	)
	mongoConfig := config.NewMongoConfig()
	if mongoConfig.URI != "" {
		db, err := config.ConnectMongoDB(mongoConfig)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		sessionRepo = repository.NewMongoSessionRepository(db)
		eventRepo = repository.NewMongoRawEventRepository(db)
		alertRepo = repository.NewMongoAlertRepository(db)
		schoolRepo = repository.NewMongoSchoolRepository(db)
	} else {
		log.Println("MONGODB_URI not set, using in-memory repositories")
		sessionRepo = repository.NewInMemorySessionRepository()
		eventRepo = repository.NewInMemoryRawEventRepository()
		alertRepo = repository.NewInMemoryAlertRepository()
		schoolRepo = repository.NewInMemorySchoolRepository()
	}

	// Core pipeline: feed -> ingestor -> engine -> {trend, alerts}
	engine := aggregate.NewEngine()
	ingestor := ingest.NewIngestor(ingest.Config{
		DedupWindow:   cfg.Ingest.DedupWindow,
		LateTolerance: cfg.Ingest.LateTolerance,
	}, engine, eventRepo)
	evaluator := alert.NewEvaluator(alertRepo)

	attendanceService := service.NewAttendanceService(sessionRepo, service.AttendancePolicy{
		Location: cfg.School.Location,
		DayStart: cfg.School.DayStart,
		DayEnd:   cfg.School.DayEnd,
		Grace:    cfg.School.Grace,
	}, ingestor)
	schoolService := service.NewSchoolService(schoolRepo)

	if len(cfg.KafkaBrokers) > 0 {
		consumer := feed.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, ingestor)
		defer consumer.Close()
		go consumer.Run(ctx)
	} else {
		log.Println("KAFKA_BROKERS not set, event feed disabled")
	}

	go evaluationLoop(ctx, engine, evaluator, cfg.Rules)

	readCache := cache.New(cfg.RedisURL)
	defer readCache.Close()

	r := router.NewRouter(attendanceService, schoolService, engine, evaluator, readCache, cfg.JWTSecret)

	srv := &http.Server{
		Addr:    cfg.Host + ":" + cfg.Port,
		Handler: r,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Server starting on %s:%s", cfg.Host, cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// evaluationLoop re-checks the threshold rules against the current-period
// buckets. Alerts are edge-triggered inside the evaluator, so the fixed
// cadence produces no duplicates.
func evaluationLoop(ctx context.Context, engine *aggregate.Engine, evaluator *alert.Evaluator, rules []model.ThresholdRule) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	kinds := make(map[string]bool)
	for _, rule := range rules {
		kinds[rule.Kind] = true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for kind := range kinds {
				for _, g := range aggregate.Granularities {
					bucket := engine.Snapshot(aggregate.PeriodKey(g, now), kind)
					// an untouched bucket is "no data yet", not a breach
					if len(bucket.RunningCounts) == 0 && len(bucket.RunningSums) == 0 {
						continue
					}
					evaluator.Evaluate(bucket, rules)
				}
			}
		}
	}
}
