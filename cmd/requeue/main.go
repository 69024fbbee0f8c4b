// Command requeue puts failed files back on the processing queue, optionally
// restricted to one batch. Files left in processing for longer than the
// document timeout, as after a crash, are requeued too. The running server's
// queue worker picks them up.
// Usage: go run ./cmd/requeue [batch-id]
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"actflow/internal/config"
	"actflow/internal/domain"
	"actflow/internal/repository/postgres"
)

const batchSize = 100

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var batchID *uuid.UUID
	if len(os.Args) > 1 {
		id, err := uuid.Parse(os.Args[1])
		if err != nil {
			return fmt.Errorf("invalid batch id %q: %w", os.Args[1], err)
		}
		batchID = &id
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer func() { _ = db.Close() }()

	fileRepo := postgres.NewFileRepo(db)

	ctx := context.Background()
	staleBefore := time.Now().UTC().Add(-cfg.Pipeline.DocumentTimeout())
	skipped := 0
	total := 0

	for {
		var files []domain.File
		err := db.SelectContext(ctx, &files,
			`SELECT * FROM files
			 WHERE (status = $1 OR (status = $2 AND updated_at < $3))
			   AND ($4::uuid IS NULL OR batch_id = $4)
			 ORDER BY updated_at
			 LIMIT $5 OFFSET $6`,
			domain.FileStatusFailed, domain.FileStatusProcessing, staleBefore, batchID, batchSize, skipped)
		if err != nil {
			return fmt.Errorf("querying files to requeue: %w", err)
		}
		if len(files) == 0 {
			break
		}

		for i := range files {
			f := &files[i]
			if err := fileRepo.Requeue(ctx, f.ID, ""); err != nil {
				log.Printf("WARN: failed to requeue file %s: %v", f.ID, err)
				skipped++
				continue
			}
			total++
		}

		if total > 0 && total%batchSize == 0 {
			log.Printf("Progress: %d files requeued", total)
		}
	}

	log.Printf("Requeue complete: %d files requeued, %d skipped", total, skipped)
	return nil
}
