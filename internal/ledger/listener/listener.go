// Package listener applies consumption events published by other household services
// (meal planners, smart shelves) to the stock ledger.
package listener

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/fekuna/pantry-service/internal/ledger"
	"github.com/fekuna/pantry-service/internal/ledger/dto"
	"github.com/fekuna/pantry-service/internal/model"
	"github.com/fekuna/pantry-service/internal/sync/idempotency"
	"github.com/fekuna/pantry-service/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const EventStockConsumed = "StockConsumed"

type Config struct {
	Stream   string
	Group    string
	Consumer string
	Batch    int64
	Block    time.Duration
	// RetryAfter is how long an entry left un-acked stays pending before it is read again.
	// Entries idle that long under other consumers are claimed as well.
	RetryAfter time.Duration
}

type StockConsumedEvent struct {
	EventID   string  `json:"eventId"`
	EventType string  `json:"eventType"`
	ItemID    string  `json:"itemId"`
	UserID    string  `json:"userId"`
	Quantity  float64 `json:"quantity"`
	Unit      string  `json:"unit"`
	Reason    string  `json:"reason"`
}

type ConsumptionListener struct {
	client *redis.Client
	cfg    Config
	uc     ledger.UseCase
	seen   idempotency.Store
	logger logger.ZapLogger
}

func NewConsumptionListener(client *redis.Client, cfg Config, uc ledger.UseCase, seen idempotency.Store, log logger.ZapLogger) *ConsumptionListener {
	if cfg.Batch <= 0 {
		cfg.Batch = 16
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = 30 * time.Second
	}
	return &ConsumptionListener{
		client: client,
		cfg:    cfg,
		uc:     uc,
		seen:   seen,
		logger: log.With(zap.String("stream", cfg.Stream), zap.String("group", cfg.Group)),
	}
}

// Start consumes until ctx is cancelled. Entries left pending by an earlier run are retried first;
// entries that fail later are retried once RetryAfter has passed.
func (l *ConsumptionListener) Start(ctx context.Context) error {
	err := l.client.XGroupCreateMkStream(ctx, l.cfg.Stream, l.cfg.Group, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return err
	}

	l.logger.Info("Starting consumption listener")
	var (
		cursor  = "0"
		retryAt time.Time
	)
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping consumption listener")
			return nil
		default:
		}

		if cursor == ">" && !retryAt.IsZero() && !time.Now().Before(retryAt) {
			l.claimStale(ctx)
			cursor, retryAt = "0", time.Time{}
		}

		streams, err := l.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    l.cfg.Group,
			Consumer: l.cfg.Consumer,
			Streams:  []string{l.cfg.Stream, cursor},
			Count:    l.cfg.Batch,
			Block:    l.cfg.Block,
		}).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			l.logger.Error("Failed to read consumption stream", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		var read int
		for _, s := range streams {
			for _, msg := range s.Messages {
				read++
				if cursor != ">" {
					cursor = msg.ID
				}
				if !l.handle(ctx, msg) {
					if retryAt.IsZero() {
						retryAt = time.Now().Add(l.cfg.RetryAfter)
					}
					continue
				}
				if err := l.client.XAck(context.WithoutCancel(ctx), l.cfg.Stream, l.cfg.Group, msg.ID).Err(); err != nil {
					l.logger.Error("Failed to ack consumption event", zap.String("message_id", msg.ID), zap.Error(err))
				}
			}
		}
		if cursor != ">" && read == 0 {
			cursor = ">"
		}
	}
}

// claimStale moves entries that other consumers left pending for RetryAfter into this
// consumer's pending list, so the next pending read retries them.
func (l *ConsumptionListener) claimStale(ctx context.Context) {
	start := "0-0"
	for {
		ids, next, err := l.client.XAutoClaimJustID(ctx, &redis.XAutoClaimArgs{
			Stream:   l.cfg.Stream,
			Group:    l.cfg.Group,
			Consumer: l.cfg.Consumer,
			MinIdle:  l.cfg.RetryAfter,
			Start:    start,
			Count:    l.cfg.Batch,
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				l.logger.Warn("Failed to claim stale consumption events", zap.Error(err))
			}
			return
		}
		if len(ids) > 0 {
			l.logger.Info("Claimed stale consumption events", zap.Int("count", len(ids)))
		}
		if next == "0-0" || next == "" {
			return
		}
		start = next
	}
}

// handle applies one stream entry and reports whether it should be acknowledged.
// Only infrastructure failures leave the entry pending for redelivery.
func (l *ConsumptionListener) handle(ctx context.Context, msg redis.XMessage) bool {
	raw, _ := msg.Values["payload"].(string)
	var event StockConsumedEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		l.logger.Error("Failed to unmarshal consumption event", zap.String("message_id", msg.ID), zap.Error(err))
		return true
	}
	if event.EventType != EventStockConsumed {
		return true
	}
	if event.UserID == "" || event.ItemID == "" {
		l.logger.Warn("Dropping consumption event without user or item", zap.String("event_id", event.EventID))
		return true
	}

	log := l.logger.With(zap.String("event_id", event.EventID), zap.String("item_id", event.ItemID))

	opID := "event:" + event.EventID
	if event.EventID != "" {
		prior, claimed, err := l.seen.Claim(ctx, event.UserID, opID)
		if err != nil {
			log.Error("Failed to claim consumption event", zap.Error(err))
			return false
		}
		if !claimed {
			log.Debug("Skipping seen consumption event", zap.Bool("done", prior != nil && prior.State == idempotency.StateDone))
			return prior != nil && prior.State == idempotency.StateDone
		}
	}

	input := &dto.DeductStockInput{
		ItemID:   event.ItemID,
		UserID:   event.UserID,
		Quantity: event.Quantity,
		Unit:     event.Unit,
	}
	if event.Reason != "" {
		input.Reason = &event.Reason
	}

	res, err := l.uc.DeductStock(ctx, input)
	detached := context.WithoutCancel(ctx)
	if err != nil {
		if event.EventID != "" {
			if rerr := l.seen.Release(detached, event.UserID, opID); rerr != nil {
				log.Warn("Failed to release consumption event", zap.Error(rerr))
			}
		}
		if model.ErrorCode(err) == model.CodeInfrastructureFailure {
			log.Error("Failed to deduct consumed stock", zap.Error(err))
			return false
		}
		log.Warn("Rejected consumption event", zap.String("code", model.ErrorCode(err)), zap.Error(err))
		return true
	}

	if event.EventID != "" {
		data, _ := json.Marshal(res)
		if err := l.seen.Complete(detached, event.UserID, opID, idempotency.Record{Type: EventStockConsumed, Data: data}); err != nil {
			log.Error("Failed to record consumption event", zap.Error(err))
		}
	}
	log.Info("Applied consumption event", zap.Int64("current_stock", res.CurrentStock))
	return true
}

func isBusyGroup(err error) bool {
	return strings.HasPrefix(err.Error(), "BUSYGROUP")
}

// Publish appends a consumption event to the stream.
func Publish(ctx context.Context, client *redis.Client, stream string, event StockConsumedEvent) (string, error) {
	if event.EventType == "" {
		event.EventType = EventStockConsumed
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	return client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{"payload": string(payload)},
	}).Result()
}
