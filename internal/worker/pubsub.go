package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/dataacquisition/das/internal/acquisition"
)

// CallbackApplier applies a progress report. *acquisition.Service satisfies it.
type CallbackApplier interface {
	ApplyCallback(ctx context.Context, cb acquisition.Callback) (*acquisition.Request, error)
}

// Outcome tells the subscriber what to do with a processed message.
type Outcome int

const (
	// Ack removes the message from the subscription.
	Ack Outcome = iota
	// Nack asks Pub/Sub to redeliver the message.
	Nack
)

func (o Outcome) String() string {
	if o == Nack {
		return "nack"
	}
	return "ack"
}

// Processor turns callback messages into state changes.
type Processor struct {
	applier CallbackApplier
	logger  zerolog.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(applier CallbackApplier, logger zerolog.Logger) *Processor {
	return &Processor{applier: applier, logger: logger}
}

// Process applies one message body. Messages that can never succeed are
// acknowledged and logged; only transient failures are redelivered.
func (p *Processor) Process(ctx context.Context, data []byte) Outcome {
	var cb acquisition.Callback
	if err := json.Unmarshal(data, &cb); err != nil {
		p.logger.Error().Err(err).Msg("dropping unparsable callback message")
		return Ack
	}

	logger := p.logger.With().
		Str("source", string(cb.Source)).
		Str("request_id", cb.ID).
		Str("status", string(cb.Status)).
		Logger()

	req, err := p.applier.ApplyCallback(ctx, cb)
	switch {
	case err == nil:
		logger.Info().Str("state", string(req.State)).Msg("callback applied")
		return Ack
	case errors.Is(err, acquisition.ErrInvalidCallback),
		errors.Is(err, acquisition.ErrInvalidState):
		logger.Error().Err(err).Msg("dropping invalid callback")
		return Ack
	case errors.Is(err, acquisition.ErrRequestNotFound):
		logger.Warn().Msg("dropping callback for unknown request")
		return Ack
	case errors.Is(err, acquisition.ErrInvalidTransition):
		logger.Warn().Err(err).Msg("dropping callback with disallowed transition")
		return Ack
	case errors.Is(err, acquisition.ErrMalformedRecord):
		logger.Error().Err(err).Msg("dropping callback for unreadable record")
		return Ack
	default:
		logger.Error().Err(err).Msg("callback failed, will be redelivered")
		return Nack
	}
}

// PubSubHandler receives callback messages from a Pub/Sub subscription.
type PubSubHandler struct {
	client       *pubsub.Client
	subscriber   *pubsub.Subscriber
	subscription string
	timeout      time.Duration
	processor    *Processor
	logger       zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg Config, processor *Processor, logger zerolog.Logger) (*PubSubHandler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.Subscription)
	subscriber.ReceiveSettings.MaxOutstandingMessages = cfg.MaxOutstanding
	subscriber.ReceiveSettings.MaxExtension = cfg.MaxExtension

	return &PubSubHandler{
		client:       client,
		subscriber:   subscriber,
		subscription: cfg.Subscription,
		timeout:      cfg.HandlerTimeout,
		processor:    processor,
		logger:       logger,
	}, nil
}

// Start blocks receiving messages until ctx is cancelled.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscription).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if h.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.timeout)
			defer cancel()
		}

		start := time.Now()
		outcome := h.processor.Process(ctx, msg.Data)
		h.logger.Debug().
			Str("message_id", msg.ID).
			Stringer("outcome", outcome).
			Dur("duration", time.Since(start)).
			Msg("message processed")

		if outcome == Nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}
