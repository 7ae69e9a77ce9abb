package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	service "github.com/okian/convrelay/internal/app"
	"github.com/okian/convrelay/internal/domain/model"
	"github.com/okian/convrelay/internal/domain/resolve"
	"github.com/okian/convrelay/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

type stubSender struct {
	calls  atomic.Int64
	err    error
	last   model.ConversionRecord
	traces []string
}

func (s *stubSender) Send(_ context.Context, _ model.ConfigSet, rec model.ConversionRecord, traceID, _ string) error {
	s.calls.Add(1)
	s.last = rec
	s.traces = append(s.traces, traceID)
	return s.err
}

func baseConfig() model.ConfigSet {
	return model.ConfigSet{
		CustomerID:         "123456",
		ConversionAction:   "99",
		HashAllIdentifiers: true,
	}
}

func TestServiceProcess(t *testing.T) {
	Convey("Given a started relay service", t, func() {
		ctx := context.Background()

		Convey("a valid event resolves and is delivered once", func() {
			sender := &stubSender{}
			svc := service.New(
				service.WithConversionConfig(baseConfig()),
				service.WithSender(sender),
			)
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			err := svc.Process(ctx, model.RawEvent{
				"event_name": "purchase",
				"value":      49.99,
				"currency":   "EUR",
				"order_id":   "A1",
			}, "trace-1")

			So(err, ShouldBeNil)
			So(sender.calls.Load(), ShouldEqual, 1)
			So(sender.last.OrderID, ShouldEqual, "A1")
			So(sender.last.ConversionValue, ShouldEqual, 49.99)
			So(sender.last.CurrencyCode, ShouldEqual, "EUR")
			So(sender.traces, ShouldResemble, []string{"trace-1"})
		})

		Convey("an empty trace id is replaced with a generated one", func() {
			sender := &stubSender{}
			svc := service.New(
				service.WithConversionConfig(baseConfig()),
				service.WithSender(sender),
			)
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			err := svc.Process(ctx, model.RawEvent{"event_name": "purchase"}, "")

			So(err, ShouldBeNil)
			So(len(sender.traces), ShouldEqual, 1)
			So(sender.traces[0], ShouldNotBeEmpty)
		})

		Convey("a missing conversion action fails before any delivery", func() {
			sender := &stubSender{}
			svc := service.New(
				service.WithConversionConfig(model.ConfigSet{CustomerID: "123456"}),
				service.WithSender(sender),
			)
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			err := svc.Process(ctx, model.RawEvent{"event_name": "purchase"}, "trace-2")

			So(errors.Is(err, resolve.ErrInvalidConfig), ShouldBeTrue)
			So(sender.calls.Load(), ShouldEqual, 0)
		})

		Convey("a repeated order id is suppressed locally", func() {
			sender := &stubSender{}
			svc := service.New(
				service.WithConversionConfig(baseConfig()),
				service.WithSender(sender),
			)
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			event := model.RawEvent{"event_name": "purchase", "order_id": "A1"}

			So(svc.Process(ctx, event, "trace-3"), ShouldBeNil)
			So(svc.Process(ctx, event, "trace-4"), ShouldBeNil)
			So(sender.calls.Load(), ShouldEqual, 1)
		})

		Convey("a failed delivery releases the order id for retry", func() {
			sender := &stubSender{err: errors.New("upstream down")}
			svc := service.New(
				service.WithConversionConfig(baseConfig()),
				service.WithSender(sender),
			)
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			event := model.RawEvent{"event_name": "purchase", "order_id": "A1"}

			So(svc.Process(ctx, event, "trace-5"), ShouldNotBeNil)

			sender.err = nil
			So(svc.Process(ctx, event, "trace-6"), ShouldBeNil)
			So(sender.calls.Load(), ShouldEqual, 2)
		})

		Convey("duplicate suppression can be disabled", func() {
			sender := &stubSender{}
			svc := service.New(
				service.WithConversionConfig(baseConfig()),
				service.WithSender(sender),
				service.WithDedupeSize(0),
			)
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			event := model.RawEvent{"event_name": "purchase", "order_id": "A1"}

			So(svc.Process(ctx, event, "trace-7"), ShouldBeNil)
			So(svc.Process(ctx, event, "trace-8"), ShouldBeNil)
			So(sender.calls.Load(), ShouldEqual, 2)
		})

		Convey("stats reflect processing outcomes", func() {
			sender := &stubSender{}
			svc := service.New(
				service.WithConversionConfig(baseConfig()),
				service.WithSender(sender),
			)
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			So(svc.Process(ctx, model.RawEvent{"event_name": "purchase", "order_id": "A1"}, ""), ShouldBeNil)

			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["processed"], ShouldEqual, int64(1))
			So(stats["succeeded"], ShouldEqual, int64(1))
			So(stats["failed"], ShouldEqual, int64(0))
		})
	})
}
