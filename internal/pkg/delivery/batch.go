package delivery

import (
	"context"
	"log"
)

// BatchSummary counts the outcomes of one daily batch run.
type BatchSummary struct {
	Attempted        int `json:"attempted"`
	Delivered        int `json:"delivered"`
	AlreadyDelivered int `json:"already_delivered_today"`
	NoContentLeft    int `json:"no_content_left"`
	Errors           int `json:"errors"`
}

// DeliverAll runs the daily batch: one delivery attempt per active
// subscriber, sequential. It is invoked by an external scheduler through
// the cron endpoint; there is no in-process scheduler. A failure for one
// chat is logged and does not stop the rest of the batch.
func (e *Engine) DeliverAll(ctx context.Context) (BatchSummary, error) {
	summary := BatchSummary{}

	cat, err := e.source.Load(ctx)
	if err != nil {
		log.Printf("delivery batch: catalog load failed, treating as empty: %v", err)
	}

	users, err := e.store.VIPUsers().ListActive(e.now())
	if err != nil {
		return summary, err
	}

	for _, user := range users {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		summary.Attempted++
		result, err := e.deliverFrom(user.ChatID, cat)
		if err != nil {
			summary.Errors++
			log.Printf("delivery batch: chat %d failed: %v", user.ChatID, err)
			continue
		}
		switch result.Outcome {
		case OutcomeDelivered:
			summary.Delivered++
		case OutcomeAlreadyDeliveredToday:
			summary.AlreadyDelivered++
		case OutcomeNoContentLeft:
			summary.NoContentLeft++
		}
	}

	return summary, nil
}
