package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

type replayStats struct {
	mode      string
	processed int
	replayed  int
	skipped   int
	filtered  int
}

func (s replayStats) fields() log.Fields {
	return log.Fields{
		"mode":      s.mode,
		"processed": s.processed,
		"replayed":  s.replayed,
		"skipped":   s.skipped,
		"filtered":  s.filtered,
	}
}

func (s *replayStats) add(other replayStats) {
	s.processed += other.processed
	s.replayed += other.replayed
	s.skipped += other.skipped
	s.filtered += other.filtered
}

type replayer struct {
	cfg      config
	client   offsetClient
	consumer partitionConsumerSource
	producer replayProducer
	logger   *log.Entry
	now      func() time.Time
}

func newReplayer(cfg config, deps dependencies, logger *log.Entry) (*replayer, error) {
	if deps.client == nil || deps.consumer == nil {
		return nil, errors.New("kafka client and consumer are required")
	}
	if cfg.execute && deps.producer == nil {
		return nil, errors.New("producer is required in execute mode")
	}
	if logger == nil {
		logger = log.WithField("component", "dlq-reprocess")
	}

	return &replayer{
		cfg:      cfg,
		client:   deps.client,
		consumer: deps.consumer,
		producer: deps.producer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Run обходит partitions source-топика по возрастанию номера, пока не
// просмотрит limit сообщений.
func (r *replayer) Run(ctx context.Context) (replayStats, error) {
	stats := replayStats{mode: "dry-run"}
	if r.cfg.execute {
		stats.mode = "execute"
	}

	r.logger.WithFields(log.Fields{
		"source_topic": r.cfg.sourceTopic,
		"target_topic": r.cfg.targetTopic,
		"event_type":   r.cfg.eventType,
		"limit":        r.cfg.limit,
		"mode":         stats.mode,
		"from_newest":  r.cfg.fromNewest,
	}).Info("starting dlq replay")

	partitions, err := r.client.Partitions(r.cfg.sourceTopic)
	if err != nil {
		return stats, fmt.Errorf("get partitions for topic %s: %w", r.cfg.sourceTopic, err)
	}
	if len(partitions) == 0 {
		r.logger.WithField("topic", r.cfg.sourceTopic).Warn("source topic has no partitions")
		return stats, nil
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	for _, partition := range partitions {
		remaining := r.cfg.limit - stats.processed
		if remaining <= 0 {
			break
		}

		partStats, err := r.replayPartition(ctx, partition, remaining)
		stats.add(partStats)
		if err != nil {
			return stats, err
		}
	}

	return stats, nil
}

func (r *replayer) replayPartition(ctx context.Context, partition int32, limit int) (replayStats, error) {
	var stats replayStats

	oldest, err := r.client.GetOffset(r.cfg.sourceTopic, partition, sarama.OffsetOldest)
	if err != nil {
		return stats, fmt.Errorf("get oldest offset for partition %d: %w", partition, err)
	}
	newest, err := r.client.GetOffset(r.cfg.sourceTopic, partition, sarama.OffsetNewest)
	if err != nil {
		return stats, fmt.Errorf("get newest offset for partition %d: %w", partition, err)
	}
	if newest <= oldest {
		return stats, nil
	}

	start := oldest
	if r.cfg.fromNewest {
		start = max(newest-int64(limit), oldest)
	}

	pc, err := r.consumer.ConsumePartition(r.cfg.sourceTopic, partition, start)
	if err != nil {
		return stats, fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = pc.Close() }()

	idle := time.NewTimer(r.cfg.idleTimeout)
	defer idle.Stop()

	for stats.processed < limit {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-idle.C:
			return stats, nil
		case consumerErr := <-pc.Errors():
			if consumerErr != nil {
				return stats, fmt.Errorf("partition %d consumer error: %w", partition, consumerErr)
			}
		case msg, ok := <-pc.Messages():
			if !ok || msg == nil || msg.Offset >= newest {
				return stats, nil
			}
			resetTimer(idle, r.cfg.idleTimeout)

			stats.processed++
			if err := r.handle(msg, &stats); err != nil {
				return stats, err
			}
			if msg.Offset+1 >= newest {
				return stats, nil
			}
		}
	}

	return stats, nil
}

func (r *replayer) handle(msg *sarama.ConsumerMessage, stats *replayStats) error {
	logger := r.logger.WithFields(log.Fields{
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	replay, err := extractReplayMessage(msg, r.cfg.targetTopic, r.now())
	if err != nil {
		stats.skipped++
		logger.WithError(err).Warn("skip unsupported dlq message")
		return nil
	}
	if r.cfg.eventType != "" && replay.eventType != r.cfg.eventType {
		stats.filtered++
		return nil
	}

	logger = logger.WithFields(log.Fields{
		"source":       replay.source,
		"target_topic": replay.topic,
		"key":          replay.key,
	})
	if !r.cfg.execute {
		stats.replayed++
		logger.Info("dlq replay candidate")
		return nil
	}

	if _, _, err := r.producer.SendMessage(replay.producerMessage(msg, r.now())); err != nil {
		return fmt.Errorf("publish replay message: %w", err)
	}
	stats.replayed++
	logger.Debug("dlq message replayed")
	return nil
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
