package api

import (
	"time"

	"fastchannels/internal/journal"
)

// FromDelivery converts a journal row into its transport form.
func FromDelivery(d journal.Delivery) Delivery {
	return Delivery{
		ID:           d.ID,
		RequestID:    d.RequestID,
		EventID:      d.EventID,
		Source:       d.Source,
		DetailType:   d.DetailType,
		Stage:        d.Stage,
		ResourceKey:  d.ResourceKey,
		Status:       d.Status,
		FailureClass: d.FailureClass,
		Outcome:      d.Outcome,
		Message:      d.Message,
		DurationMs:   d.Duration.Milliseconds(),
		ReceivedAt:   FormatTime(d.ReceivedAt),
	}
}

// FromDeliveries converts a slice of journal rows.
func FromDeliveries(rows []journal.Delivery) []Delivery {
	out := make([]Delivery, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDelivery(row))
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
