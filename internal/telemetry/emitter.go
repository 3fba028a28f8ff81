// Package telemetry publishes committee domain events to the event pipeline.
package telemetry

import (
	"context"

	"commie/backend/internal/telemetry/domain"
)

// EventEmitter publishes a single domain event. Implementations: the Kafka
// producer, or nil (pipeline disabled).
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.Event) error
}
