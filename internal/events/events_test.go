package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront/internal/events"
	"storefront/internal/logging"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(routingKey string, body []byte) error {
	args := m.Called(routingKey, body)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) OrderConfirmed(ctx context.Context, ev events.OrderCreatedEvent) error {
	args := m.Called(ev)
	return args.Error(0)
}

func TestEmit_PublishesJSON(t *testing.T) {
	pub := new(MockPublisher)
	ev := events.OrderCreatedEvent{OrderID: 7, Reference: "ref-1", Total: decimal.RequireFromString("25.00")}

	pub.On("Publish", events.OrderCreated, mock.MatchedBy(func(body []byte) bool {
		var got events.OrderCreatedEvent
		return json.Unmarshal(body, &got) == nil && got.OrderID == 7 && got.Total.Equal(decimal.NewFromInt(25))
	})).Return(nil).Once()

	events.Emit(pub, logging.Discard(), events.OrderCreated, ev)
	pub.AssertExpectations(t)
}

func TestEmit_SwallowsPublishErrors(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("Publish", events.PayoutPaid, mock.Anything).Return(errors.New("broker down")).Once()

	assert.NotPanics(t, func() {
		events.Emit(pub, logging.Discard(), events.PayoutPaid, events.PayoutEvent{PayoutID: 1})
	})
	pub.AssertExpectations(t)

	assert.NotPanics(t, func() {
		events.Emit(nil, logging.Discard(), events.PayoutPaid, events.PayoutEvent{PayoutID: 1})
	})
}

func TestOrderCreatedHandler(t *testing.T) {
	notifier := new(MockNotifier)
	handler := events.OrderCreatedHandler(logging.Discard(), notifier)

	body, err := json.Marshal(events.OrderCreatedEvent{OrderID: 3, Reference: "abc", Email: "a@b.c"})
	require.NoError(t, err)
	notifier.On("OrderConfirmed", mock.MatchedBy(func(ev events.OrderCreatedEvent) bool {
		return ev.OrderID == 3 && ev.Email == "a@b.c"
	})).Return(nil).Once()

	assert.NoError(t, handler(amqp.Delivery{Body: body}))
	notifier.AssertExpectations(t)

	assert.Error(t, handler(amqp.Delivery{Body: []byte("not json")}))
	assert.Error(t, handler(amqp.Delivery{Body: []byte(`{"reference":"x"}`)}))
	notifier.AssertNumberOfCalls(t, "OrderConfirmed", 1)
}
