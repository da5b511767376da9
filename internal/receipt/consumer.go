package receipt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/natuki53/Walleca/internal/extract"
	"github.com/natuki53/Walleca/internal/jobs"
	"github.com/natuki53/Walleca/internal/scanning"
)

// Processor runs recognition over a normalized receipt image and returns
// the merged extracted fields. *scanning.Orchestrator satisfies this.
type Processor interface {
	Process(ctx context.Context, image []byte) (extract.Fields, error)
}

// Consumer pulls recognition jobs off the queue and drives each receipt
// through the processing -> success|failed lifecycle.
type Consumer struct {
	source     jobs.Source
	db         DB
	storage    Storage
	processor  Processor
	workers    int
	jobTimeout time.Duration
	timeSource TimeSource

	wg sync.WaitGroup
}

// NewConsumer creates a Consumer. workers below 1 is treated as 1.
func NewConsumer(source jobs.Source, db DB, storage Storage, processor Processor, workers int, jobTimeout time.Duration) *Consumer {
	if workers < 1 {
		workers = 1
	}
	return &Consumer{
		source:     source,
		db:         db,
		storage:    storage,
		processor:  processor,
		workers:    workers,
		jobTimeout: jobTimeout,
		timeSource: &defaultTimeSource{},
	}
}

// NewConsumerWithDeps creates a Consumer with a custom time source for testing
func NewConsumerWithDeps(source jobs.Source, db DB, storage Storage, processor Processor, workers int, jobTimeout time.Duration, timeSrc TimeSource) *Consumer {
	c := NewConsumer(source, db, storage, processor, workers, jobTimeout)
	c.timeSource = timeSrc
	return c
}

// Start launches the worker goroutines. They run until ctx is canceled or
// the queue is closed.
func (c *Consumer) Start(ctx context.Context) {
	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go func(worker int) {
			defer c.wg.Done()
			c.run(ctx, worker)
		}(i)
	}
}

// Wait blocks until all workers have stopped
func (c *Consumer) Wait() {
	c.wg.Wait()
}

func (c *Consumer) run(ctx context.Context, worker int) {
	for {
		job, ok := c.source.Dequeue(ctx)
		if !ok {
			return
		}

		if err := c.handle(ctx, job); err != nil {
			slog.Error("Recognition job failed",
				"worker", worker,
				"receipt_id", job.ReceiptID,
				"attempt", job.Attempt+1,
				"error", err)
			// Every failed attempt is user-visible as failed; a
			// redelivery flips the receipt back through processing.
			c.markFailed(job.ReceiptID)
			if !c.source.Nack(job) {
				slog.Warn("Recognition attempts exhausted", "receipt_id", job.ReceiptID)
			}
			continue
		}

		slog.Info("Receipt processed", "worker", worker, "receipt_id", job.ReceiptID)
	}
}

// handle runs one recognition attempt for a job. Any returned error means
// the attempt failed and the job should be nacked.
func (c *Consumer) handle(ctx context.Context, job jobs.Job) error {
	receipt, err := c.db.GetReceipt(job.ReceiptID)
	if err != nil {
		return fmt.Errorf("loading receipt: %w", err)
	}

	// Discard any fields from a previous attempt before starting this one
	receipt.Status = StatusProcessing
	receipt.ClearExtraction()
	receipt.UpdatedAt = c.timeSource.Now()
	if err := c.db.SaveReceipt(receipt); err != nil {
		return fmt.Errorf("marking receipt processing: %w", err)
	}

	data, err := c.storage.Get(job.ImagePath)
	if err != nil {
		return fmt.Errorf("loading receipt image: %w", err)
	}

	image, err := scanning.NormalizeImage(data, receipt.ContentType)
	if err != nil {
		return fmt.Errorf("normalizing receipt image: %w", err)
	}

	jobCtx := ctx
	if c.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, c.jobTimeout)
		defer cancel()
	}

	fields, err := c.processor.Process(jobCtx, image)
	if err != nil {
		return fmt.Errorf("recognizing receipt: %w", err)
	}

	now := c.timeSource.Now()
	receipt.Status = StatusSuccess
	receipt.RawText = fields.RawText
	receipt.Merchant = fields.Merchant
	receipt.Date = fields.Date
	receipt.Total = fields.Total
	receipt.ProcessedAt = &now
	receipt.UpdatedAt = now
	if err := c.db.SaveReceipt(receipt); err != nil {
		return fmt.Errorf("saving recognition result: %w", err)
	}
	return nil
}

// markFailed records the failed attempt with its timestamp
func (c *Consumer) markFailed(id string) {
	receipt, err := c.db.GetReceipt(id)
	if err != nil {
		slog.Warn("Failed to load receipt after failed attempt", "receipt_id", id, "error", err)
		return
	}
	now := c.timeSource.Now()
	receipt.Status = StatusFailed
	receipt.ClearExtraction()
	receipt.ProcessedAt = &now
	receipt.UpdatedAt = now
	if err := c.db.SaveReceipt(receipt); err != nil {
		slog.Warn("Failed to mark receipt failed", "receipt_id", id, "error", err)
	}
}
