package usecase

import (
	"context"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/pkg/logger"
	"MarketPulse/pkg/queue"
)

const (
	MsgAlertSingle   = "alert.single"
	MsgAlertCombined = "alert.combined"
)

// Dispatcher hands emitted alerts to the delivery queue. It implements the
// throttler's Emitter contract; enqueueing never blocks the evaluation loop,
// a full queue is logged and counted instead.
type Dispatcher struct {
	queue   queue.QueueService
	metrics drepo.Metrics
	log     *logger.Logger
}

// NewDispatcher creates a dispatcher on top of a queue service.
func NewDispatcher(q queue.QueueService, metrics drepo.Metrics, log *logger.Logger) *Dispatcher {
	return &Dispatcher{queue: q, metrics: metrics, log: log}
}

func (d *Dispatcher) AlertReady(cand models.AlertCandidate) {
	if err := d.queue.PublishMessage(context.Background(), MsgAlertSingle, cand); err != nil {
		d.metrics.RecordError("dispatch_enqueue")
		d.log.Error("alert enqueue failed",
			logger.String("condition", cand.Key.String()),
			logger.Error(err))
	}
}

func (d *Dispatcher) ConsolidatedAlertReady(cands []models.AlertCandidate) {
	if err := d.queue.PublishMessage(context.Background(), MsgAlertCombined, cands); err != nil {
		d.metrics.RecordError("dispatch_enqueue")
		d.log.Error("combined alert enqueue failed",
			logger.Int("count", len(cands)),
			logger.Error(err))
	}
}

// SendAlertJob delivers single alerts from the queue: chat first, then the
// optional Kafka mirror. A failed mirror never fails the delivery.
type SendAlertJob struct {
	notifier  drepo.Notifier
	publisher drepo.AlertPublisher
	log       *logger.Logger
}

func NewSendAlertJob(notifier drepo.Notifier, publisher drepo.AlertPublisher, log *logger.Logger) *SendAlertJob {
	return &SendAlertJob{notifier: notifier, publisher: publisher, log: log}
}

func (j *SendAlertJob) Name() string { return "send-alert" }
func (j *SendAlertJob) Type() string { return MsgAlertSingle }

func (j *SendAlertJob) Handle(ctx context.Context, payload interface{}) error {
	cand, err := queue.ParsePayload[models.AlertCandidate](payload)
	if err != nil {
		return err
	}
	if err := j.notifier.SendAlert(ctx, *cand); err != nil {
		return err
	}
	if j.publisher != nil {
		if err := j.publisher.Publish(ctx, *cand); err != nil {
			j.log.Warn("alert mirror publish failed",
				logger.String("condition", cand.Key.String()),
				logger.Error(err))
		}
	}
	return nil
}

// SendConsolidatedJob delivers combined alerts from the queue.
type SendConsolidatedJob struct {
	notifier  drepo.Notifier
	publisher drepo.AlertPublisher
	log       *logger.Logger
}

func NewSendConsolidatedJob(notifier drepo.Notifier, publisher drepo.AlertPublisher, log *logger.Logger) *SendConsolidatedJob {
	return &SendConsolidatedJob{notifier: notifier, publisher: publisher, log: log}
}

func (j *SendConsolidatedJob) Name() string { return "send-consolidated" }
func (j *SendConsolidatedJob) Type() string { return MsgAlertCombined }

func (j *SendConsolidatedJob) Handle(ctx context.Context, payload interface{}) error {
	cands, err := queue.ParsePayload[[]models.AlertCandidate](payload)
	if err != nil {
		return err
	}
	if err := j.notifier.SendConsolidated(ctx, *cands); err != nil {
		return err
	}
	if j.publisher != nil {
		for _, cand := range *cands {
			if err := j.publisher.Publish(ctx, cand); err != nil {
				j.log.Warn("alert mirror publish failed",
					logger.String("condition", cand.Key.String()),
					logger.Error(err))
			}
		}
	}
	return nil
}
