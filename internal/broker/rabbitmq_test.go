package broker_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"os"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/frahmantamala/resto-order/internal/broker"
	"github.com/frahmantamala/resto-order/internal/core/events"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	mu         sync.Mutex
	declared   []string
	kinds      []string
	published  []published
	declareErr error
	publishErr error
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	f.declared = append(f.declared, name)
	f.kinds = append(f.kinds, kind)
	return f.declareErr
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func (f *fakeChannel) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

var _ = Describe("Publisher", func() {
	var (
		lg *slog.Logger
		ch *fakeChannel
	)

	BeforeEach(func() {
		lg = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		ch = &fakeChannel{}
	})

	It("declares a topic exchange", func() {
		_, err := broker.NewPublisher(ch, "orders_topic", lg)
		Expect(err).NotTo(HaveOccurred())
		Expect(ch.declared).To(Equal([]string{"orders_topic"}))
		Expect(ch.kinds).To(Equal([]string{amqp.ExchangeTopic}))
	})

	It("fails when the exchange cannot be declared", func() {
		ch.declareErr = stderrors.New("access refused")
		_, err := broker.NewPublisher(ch, "orders_topic", lg)
		Expect(err).To(HaveOccurred())
	})

	It("publishes persistent JSON routed by event type", func() {
		p, err := broker.NewPublisher(ch, "orders_topic", lg)
		Expect(err).NotTo(HaveOccurred())

		event := events.NewOrderStatusChangedEvent(1, 10, "1234140325", "pending", "accepted", nil)
		Expect(p.Publish(context.Background(), event)).To(Succeed())

		Expect(ch.published).To(HaveLen(1))
		msg := ch.published[0]
		Expect(msg.exchange).To(Equal("orders_topic"))
		Expect(msg.key).To(Equal(events.EventTypeOrderStatusChanged))
		Expect(msg.msg.DeliveryMode).To(Equal(amqp.Persistent))
		Expect(msg.msg.ContentType).To(Equal("application/json"))
		Expect(msg.msg.MessageId).To(Equal(event.EventID()))

		var body map[string]interface{}
		Expect(json.Unmarshal(msg.msg.Body, &body)).To(Succeed())
		Expect(body["order_code"]).To(Equal("1234140325"))
		Expect(body["to_status"]).To(Equal("accepted"))
	})

	It("wraps publish failures", func() {
		ch.publishErr = stderrors.New("channel closed")
		p, err := broker.NewPublisher(ch, "orders_topic", lg)
		Expect(err).NotTo(HaveOccurred())

		err = p.Publish(context.Background(), events.NewOrderCreatedEvent(1, 10, "1234140325", 3, "55000.00", "cash"))
		Expect(err).To(MatchError(ContainSubstring("order.created")))
	})

	It("relays every bus event to the exchange", func() {
		p, err := broker.NewPublisher(ch, "orders_topic", lg)
		Expect(err).NotTo(HaveOccurred())

		bus := events.NewEventBus(lg)
		p.Relay(bus, time.Second)

		ctx := context.Background()
		Expect(bus.Publish(ctx, events.NewOrderCreatedEvent(1, 10, "1234140325", 3, "55000.00", "cash"))).To(Succeed())
		Expect(bus.Publish(ctx, events.NewPaymentStatusChangedEvent(1, 10, "1234140325", "paid", "gateway"))).To(Succeed())
		bus.Wait()

		Expect(ch.count()).To(Equal(2))
	})

	It("closes the channel", func() {
		p, err := broker.NewPublisher(ch, "orders_topic", lg)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Close()).To(Succeed())
		Expect(ch.closed).To(BeTrue())
	})
})
