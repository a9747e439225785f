package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"secureauthhub/internal/model"
	"secureauthhub/internal/platform/rabbitmq"
)

type MessageStore interface {
	Create(message *model.ChatMessage) error
}

type HistoryInvalidator interface {
	DeleteHistory(ctx context.Context, sessionID uint) error
}

// MessagePersistWorker consumes chat messages from the persistence queue and
// writes them to the database.
type MessagePersistWorker struct {
	conn      *amqp.Connection
	repo      MessageStore
	cache     HistoryInvalidator
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMessagePersistWorker(conn *amqp.Connection, repo MessageStore, cache HistoryInvalidator, queueName string) *MessagePersistWorker {
	return &MessagePersistWorker{
		conn:      conn,
		repo:      repo,
		cache:     cache,
		queueName: queueName,
	}
}

func (w *MessagePersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(32, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					slog.Warn("message worker delivery channel closed", "queue", w.queueName)
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					slog.Error("message worker failed", "queue", w.queueName, "error", err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	slog.Info("message persist worker started", "queue", w.queueName)
	return nil
}

// handle decodes and stores a single delivery body.
func (w *MessagePersistWorker) handle(ctx context.Context, body []byte) error {
	var msg model.ChatMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("decode message failed: %w", err)
	}
	if msg.SessionID == 0 || msg.Sender == "" {
		return fmt.Errorf("message missing session or sender")
	}
	msg.ID = 0
	if err := w.repo.Create(&msg); err != nil {
		return fmt.Errorf("persist message failed: %w", err)
	}
	if w.cache != nil {
		if err := w.cache.DeleteHistory(ctx, msg.SessionID); err != nil {
			slog.Warn("message worker cache invalidation failed", "session_id", msg.SessionID, "error", err)
		}
	}
	return nil
}

func (w *MessagePersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
