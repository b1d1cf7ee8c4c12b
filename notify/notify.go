package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Job lifecycle statuses published to subscribers.
const (
	StatusReceived   = "received"
	StatusConverting = "converting"
	StatusReady      = "ready"
	StatusFailed     = "failed"
	StatusCompleted  = "completed"
)

type statusMessage struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// Publisher pushes job status updates to a redis channel. A nil Publisher
// is valid and does nothing, so callers never need to branch on whether
// notifications are configured.
type Publisher struct {
	client  *redis.Client
	channel string
}

// New returns a Publisher, or nil when no DSN is configured.
func New(dsn, channel string) *Publisher {
	if dsn == "" {
		return nil
	}
	return &Publisher{
		client:  redis.NewClient(&redis.Options{Addr: dsn}),
		channel: channel,
	}
}

// Publish sends a status update. Notification failures are logged and
// swallowed: they must never affect the job itself.
func (p *Publisher) Publish(ctx context.Context, jobID, status string) {
	if p == nil {
		return
	}

	payload, err := json.Marshal(statusMessage{JobID: jobID, Status: status})
	if err != nil {
		log.Error().Err(err).Str("jobId", jobID).Msg("failed to marshal status notification")
		return
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		log.Error().Err(err).Str("jobId", jobID).Str("status", status).Msg("failed to publish status notification")
	}
}

// Close releases the redis connection.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if err := p.client.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close redis client")
	}
}
