package main

import (
	"context"
	"time"

	"shamba_marketplace/internal/service"
)

// eventQueue feeds review events to the background worker.
type eventQueue struct {
	ch chan service.ReviewEvent
}

func (q *eventQueue) PublishReviewEvent(ev service.ReviewEvent) {
	q.ch <- ev
}

// reviewWorker drains review events and refreshes the affected product's
// rating aggregate. The aggregator serializes per product internally, so a
// single worker is about throughput, not correctness.
func (app *application) reviewWorker() {
	for ev := range app.reviewEvents {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := app.aggregator.Apply(ctx, ev); err != nil {
			app.errorLog.Println("Failed to refresh rating:", err)
		}
		cancel()
	}
}
