package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"rollcall/internal/config"
	"rollcall/internal/docstore"
	"rollcall/internal/notify"
	"rollcall/internal/queue"
	"rollcall/internal/roster"
	"rollcall/internal/store"
)

// Worker consumes fine-notice messages and records notification documents.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	var docs docstore.Store
	if cfg.DocstoreBackend == "memory" {
		docs = docstore.NewMemory()
		log.Println("docstore: in-memory backend (data is not persisted)")
	} else {
		pg, err := docstore.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db connect failed: %v", err)
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatalf("schema setup failed: %v", err)
		}
		docs = pg
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "rollcall:notices")
	}

	repo := roster.NewRepository(docs, cfg.ReconcileWorkers)
	recorder := notify.NewRecorder(repo)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for fine notices...")
	for msg := range messages {
		if msg.Type != notify.MessageType {
			continue
		}

		note, err := recorder.Handle(ctx, msg)
		if err != nil {
			log.Printf("notice handling failed: %v", err)
			continue
		}
		log.Printf("notification %s recorded for student %s", note.ID, note.StudentID)
	}

	log.Println("worker stopped")
}
