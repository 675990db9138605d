package eventqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/TextFox/app/models"
	"github.com/ManuelReschke/TextFox/app/repository"
)

const (
	// idleDelay is slept when a claim came back empty; busyDelay keeps the
	// loop from hot-spinning while draining a backlog.
	idleDelay = 2 * time.Second
	busyDelay = 100 * time.Millisecond
)

// Worker is the serial queue consumer: claim one event, process it fully,
// mark it done or error, repeat. All cross-process coordination happens
// through the store's atomic claim; running several workers is safe.
type Worker struct {
	events  repository.EventRepository
	chat    *ChatProcessor
	billing *BillingProcessor

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewWorker(events repository.EventRepository, chat *ChatProcessor, billing *BillingProcessor) *Worker {
	return &Worker{
		events:  events,
		chat:    chat,
		billing: billing,
		stopCh:  make(chan struct{}),
	}
}

// Start launches the consumer loop in its own goroutine.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.run()
	log.Info("[Worker] event queue worker started")
}

// Stop signals the loop and blocks until the in-flight event (if any)
// reached a terminal state. The stop signal is only checked between units
// of work, never mid-unit.
func (w *Worker) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	log.Info("[Worker] event queue worker stopped")
}

func (w *Worker) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		delay := idleDelay
		if w.ProcessOne() {
			delay = busyDelay
		}

		select {
		case <-w.stopCh:
			return
		case <-time.After(delay):
		}
	}
}

// ProcessOne claims and fully processes at most one event. It reports
// whether an event was claimed, so the loop can pick its next delay.
func (w *Worker) ProcessOne() bool {
	ev, err := w.events.ClaimNext(time.Now())
	if err != nil {
		if !errors.Is(err, models.ErrNoEligibleEvent) {
			log.Errorf("[Worker] claim failed: %v", err)
		}
		return false
	}

	log.Debugf("[Worker] claimed event %d (provider=%s attempt=%d)", ev.ID, ev.Provider, ev.Attempts)

	if err := w.dispatch(ev); err != nil {
		log.Errorf("[Worker] event %d failed: %v", ev.ID, err)
		count(models.StatEventsFailed)
		if markErr := w.events.MarkError(ev.ID, err.Error(), time.Now()); markErr != nil {
			log.Errorf("[Worker] mark-error for event %d failed: %v", ev.ID, markErr)
		}
		return true
	}

	count(models.StatEventsProcessed)
	if err := w.events.MarkDone(ev.ID, time.Now()); err != nil {
		log.Errorf("[Worker] mark-done for event %d failed: %v", ev.ID, err)
	}
	return true
}

// dispatch routes a claimed event by provider. The provider set is closed:
// rows carrying anything unknown fail loudly instead of falling through.
func (w *Worker) dispatch(ev *models.InboundEvent) error {
	provider, err := models.ParseProvider(ev.Provider)
	if err != nil {
		return err
	}

	ctx := context.Background()
	switch provider {
	case models.ProviderWhatsApp:
		return w.chat.Process(ctx, ev)
	case models.ProviderLemonSqueezy:
		return w.billing.Process(ctx, ev)
	default:
		return fmt.Errorf("no processor for provider %q", provider)
	}
}
