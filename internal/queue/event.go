// Package queue defines the lifecycle event message and the consumer that
// writes it to the lifecycle log.
package queue

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/iliyamo/library-lifecycle/internal/lifecycle"
)

// LifecycleQueue is the durable queue lifecycle events are published to.
const LifecycleQueue = "library.lifecycle"

// LifecycleEvent is the wire form of lifecycle.Event.
type LifecycleEvent struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	BookID      uint64    `json:"book_id,omitempty"`
	UserID      uint64    `json:"user_id"`
	ActorID     uint64    `json:"actor_id"`
	RecordID    uint64    `json:"record_id"`
	AmountCents int64     `json:"amount_cents,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// FromLifecycle stamps ev with a fresh message id.
func FromLifecycle(ev lifecycle.Event) LifecycleEvent {
	return LifecycleEvent{
		ID:          uuid.NewString(),
		Type:        ev.Type,
		BookID:      ev.BookID,
		UserID:      ev.UserID,
		ActorID:     ev.ActorID,
		RecordID:    ev.RecordID,
		AmountCents: ev.AmountCents,
		OccurredAt:  ev.OccurredAt.UTC(),
	}
}

// Line renders the event as one log line.
func (e LifecycleEvent) Line() string {
	line := fmt.Sprintf("[%s] %s | record_id=%d | user_id=%d | actor_id=%d",
		e.OccurredAt.Format(time.RFC3339), e.Type, e.RecordID, e.UserID, e.ActorID)
	if e.BookID != 0 {
		line += fmt.Sprintf(" | book_id=%d", e.BookID)
	}
	if e.AmountCents != 0 {
		line += " | amount=" + formatCents(e.AmountCents)
	}
	return line + " | id=" + e.ID + "\n"
}

// formatCents renders 123456 as "1,234.56".
func formatCents(c int64) string {
	sign := ""
	if c < 0 {
		sign, c = "-", -c
	}
	return fmt.Sprintf("%s%s.%02d", sign, humanize.Comma(c/100), c%100)
}
