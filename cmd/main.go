package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/api"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/camera"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/config"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/database"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/kafka"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/pipe"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/queue"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/runner"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/s3"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/services/detection"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/watchdog"
	"github.com/samber/lo"
)

const apiShutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to the daemon YAML config")
	flag.Parse()

	log.Println("Main: init...")

	// Чтение конфига
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cameras, err := openCameras(cfg.Cameras)
	if err != nil {
		log.Fatal(err)
	}

	q := queue.New(cfg.MaxPending)
	var history api.HistorySource
	var archive api.ArchiveCounter
	deps := runner.Deps{
		MacrosPath:   cfg.MacrosPath,
		LoopInterval: cfg.LoopInterval,
	}

	// Инициализация базы данных
	if cfg.Postgres.DSN != "" {
		db, err := database.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			log.Fatal(err)
		}
		if err := db.Init(ctx); err != nil {
			log.Fatal(err)
		}
		defer db.Close()
		deps.History = db
		history = db

		// Горутина для очистки старой истории
		if cfg.Postgres.Retention > 0 {
			go watchdog.New(db, cfg.Postgres.Retention).Start(ctx)
		}
	}

	// Инициализация s3
	if cfg.Minio.Endpoint != "" {
		minioClient, err := s3.NewMinioClient(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.Bucket)
		if err != nil {
			log.Fatalf("Failed connect to MinIO: %v", err)
		}
		if err := minioClient.EnsureBucket(ctx); err != nil {
			log.Fatal(err)
		}
		deps.Archive = minioClient
		archive = minioClient
	}

	if cfg.Detection.Endpoint != "" {
		deps.Analyser = detection.NewClient(cfg.Detection.Endpoint)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		if cfg.Kafka.CommandTopic != "" {
			consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.CommandTopic)
			if err != nil {
				log.Fatalf("Failed to create Kafka consumer: %v", err)
			}
			defer consumer.Close()
			go consumer.StartListening(ctx)
			deps.Commands = consumer.Messages()
		}
		if cfg.Kafka.StatusTopic != "" {
			producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.StatusTopic)
			if err != nil {
				log.Fatalf("Failed to create Kafka producer: %v", err)
			}
			defer producer.Close()
			deps.Publisher = producer
		}
	}

	r, err := runner.New(cameras, q, deps)
	if err != nil {
		log.Fatal(err)
	}

	controlFile := cfg.ControlFile
	if controlFile == "" {
		controlFile = r.Main().Config().ControlFile
	}
	fifo, err := pipe.Open(controlFile, cfg.MaxCommandLen)
	if err != nil {
		log.Fatalf("Failed to open control pipe: %v", err)
	}
	defer fifo.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		pipe.NewListener(fifo, q, cfg.FIFOInterval).Listen(ctx)
	}()
	go func() {
		defer wg.Done()
		r.ListenAndRun(ctx)
	}()

	if cfg.API.Addr != "" {
		srv := &http.Server{
			Addr:    cfg.API.Addr,
			Handler: api.NewHandlers(r, history, archive, q).Router(),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("Main: starting API server on %s", cfg.API.Addr)
			if err := serveAPI(ctx, srv, apiShutdownTimeout); err != nil {
				log.Printf("Main: API server: %v", err)
			}
		}()
	}

	<-ctx.Done()
	log.Println("Main: shutting down...")
	wg.Wait()
	log.Println("Main: bye")
}

// serveAPI runs srv until ctx is cancelled and then shuts it down, giving
// open requests up to timeout to finish.
func serveAPI(ctx context.Context, srv *http.Server, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// openCameras opens a controller per configured slot and builds its record.
// Cameras opened before a failure are closed again.
func openCameras(entries []config.CameraEntry) ([]*runner.Camera, error) {
	var cams []*runner.Camera
	for _, entry := range lo.UniqBy(entries, func(e config.CameraEntry) int { return e.Slot }) {
		ctrl, err := camera.Open(entry.Driver, entry.Slot)
		if err != nil {
			closeControllers(cams)
			return nil, err
		}
		cam, err := runner.NewCamera(entry.Slot, ctrl, entry.ConfigFile)
		if err != nil {
			ctrl.Close()
			closeControllers(cams)
			return nil, err
		}
		log.Printf("Main: camera %d opened (%s)", entry.Slot, lo.Ternary(entry.Driver == "", "simulated", entry.Driver))
		cams = append(cams, cam)
	}
	return cams, nil
}

func closeControllers(cams []*runner.Camera) {
	for _, cam := range cams {
		if err := cam.Close(); err != nil {
			log.Printf("Main: camera %d close: %v", cam.Slot, err)
		}
	}
}
