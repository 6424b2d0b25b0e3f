package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nsqio/go-nsq"

	"devwell/backend/internal/config"
	"devwell/backend/internal/middleware"
)

// NSQDispatcher publishes ingestion tasks for workers in other processes.
type NSQDispatcher struct {
	pub Publisher
}

func NewNSQDispatcher(pub Publisher) *NSQDispatcher {
	return &NSQDispatcher{pub: pub}
}

func (d *NSQDispatcher) Dispatch(ctx context.Context, itemID string) error {
	body, err := json.Marshal(IngestTask{ItemID: itemID, CorrelationID: middleware.GetCorrelationID(ctx)})
	if err != nil {
		return err
	}
	if err := d.pub.Publish(config.TopicLibraryIngest, body); err != nil {
		return fmt.Errorf("publish ingest task: %w", err)
	}
	return nil
}

// IngestConsumer handles library.ingest messages. Pipeline failures are
// recorded on the item itself, so messages are never requeued.
type IngestConsumer struct {
	proc Processor
}

func NewIngestConsumer(proc Processor) *IngestConsumer {
	return &IngestConsumer{proc: proc}
}

func (h *IngestConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var task IngestTask
	if err := json.Unmarshal(m.Body, &task); err != nil || task.ItemID == "" {
		// Poison pill
		slog.Error("poison pill: invalid ingest task", "error", err)
		return nil
	}

	ctx := middleware.WithItemID(context.Background(), task.ItemID)
	if task.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, task.CorrelationID)
	}

	if err := h.proc.Process(ctx, task.ItemID); err != nil {
		slog.WarnContext(ctx, "ingest task failed", "error", err)
	}
	return nil
}

// NewConsumer subscribes an IngestConsumer to the ingest topic.
func NewConsumer(cfg *config.Config, proc Processor) (*nsq.Consumer, error) {
	nsqCfg := nsq.NewConfig()
	nsqCfg.MaxInFlight = cfg.IngestionConcurrency
	consumer, err := nsq.NewConsumer(config.TopicLibraryIngest, config.ChannelLibraryWorker, nsqCfg)
	if err != nil {
		return nil, err
	}
	consumer.AddConcurrentHandlers(NewIngestConsumer(proc), cfg.IngestionConcurrency)
	return consumer, nil
}
