package events_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/frahmantamala/site-access/internal/core/events"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("EventBus", func() {
	var bus *events.EventBus

	BeforeEach(func() {
		bus = events.NewEventBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	It("should deliver to every subscriber of the type", func() {
		var calls int32
		handler := func(_ context.Context, _ events.Event) error {
			atomic.AddInt32(&calls, 1)
			return nil
		}
		bus.Subscribe(events.EventTypeAccessGranted, handler)
		bus.Subscribe(events.EventTypeAccessGranted, handler)
		bus.Subscribe(events.EventTypeAccessDenied, handler)

		Expect(bus.Publish(context.Background(), events.NewAccessGrantedEvent(1, "north", 1, time.Now()))).To(Succeed())
		bus.Wait()

		Expect(atomic.LoadInt32(&calls)).To(Equal(int32(2)))
	})

	It("should run async handlers after the publisher's context is cancelled", func() {
		release := make(chan struct{})
		var handlerErr atomic.Value
		bus.Subscribe(events.EventTypeAccessDenied, func(ctx context.Context, _ events.Event) error {
			<-release
			handlerErr.Store(ctx.Err() == nil)
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		Expect(bus.Publish(ctx, events.NewAccessDeniedEvent("R1", 0, "rfid_not_found", time.Now()))).To(Succeed())
		cancel()
		close(release)
		bus.Wait()

		Expect(handlerErr.Load()).To(Equal(true))
	})

	It("should return handler errors from PublishSync", func() {
		bus.Subscribe(events.EventTypeAuditWriteFailed, func(_ context.Context, _ events.Event) error {
			return errors.New("error log unavailable")
		})

		err := bus.PublishSync(context.Background(), events.NewAuditWriteFailedEvent(1, "north", errors.New("disk full"), time.Now()))
		Expect(err).To(MatchError(ContainSubstring("error log unavailable")))
	})

	It("should accept events nobody listens to", func() {
		Expect(bus.PublishSync(context.Background(), events.NewAccessGrantedEvent(1, "north", 2, time.Now()))).To(Succeed())
		Expect(bus.Publish(context.Background(), events.NewAccessGrantedEvent(1, "north", 2, time.Now()))).To(Succeed())
	})

	Describe("access events", func() {
		It("should never carry the presented fingerprint", func() {
			event := events.NewAccessDeniedEvent("R1", 4, "fingerprint_mismatch", time.Now())

			Expect(event.EventID()).NotTo(BeEmpty())
			Expect(event.Payload()).To(Equal(map[string]interface{}{
				"rfid_tag":    "R1",
				"employee_id": int64(4),
				"reason":      "fingerprint_mismatch",
			}))
		})

		It("should carry the failure text of an audit write", func() {
			event := events.NewAuditWriteFailedEvent(4, "north", errors.New("disk full"), time.Now())
			Expect(event.Error).To(Equal("disk full"))
			Expect(event.EventType()).To(Equal(events.EventTypeAuditWriteFailed))
		})
	})
})
