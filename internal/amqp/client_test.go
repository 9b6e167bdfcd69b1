package amqp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp091 "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialBackoff(t *testing.T) {
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, maxBackoff, maxBackoff}
	for attempt, d := range want {
		assert.Equal(t, d, exponentialBackoff(attempt), "attempt %d", attempt)
	}
	assert.Equal(t, maxBackoff, exponentialBackoff(64))
}

func TestIsConnectionError(t *testing.T) {
	retryable := []error{
		amqp091.ErrClosed,
		fmt.Errorf("open channel: %w", amqp091.ErrClosed),
		errors.New("dial tcp 127.0.0.1:5672: connect: connection refused"),
		errors.New("unexpected EOF"),
		errors.New("write: broken pipe"),
		errors.New("connection closed: message channel closed"),
	}
	for _, err := range retryable {
		assert.True(t, isConnectionError(err), err.Error())
	}

	assert.False(t, isConnectionError(nil))
	assert.False(t, isConnectionError(errors.New("declare queue: access refused")))
}

func TestCircuitBreakerLifecycle(t *testing.T) {
	c := &Client{exchangeName: "vendas.dataset"}
	require.False(t, c.isCircuitOpen())

	for i := 0; i < maxFailures-1; i++ {
		c.recordFailure()
	}
	assert.False(t, c.isCircuitOpen(), "stays closed below the failure threshold")

	c.recordFailure()
	assert.True(t, c.isCircuitOpen())
	assert.Equal(t, StateOpen, c.state)

	c.lastFailure = time.Now().Add(-openTimeout - time.Second)
	assert.False(t, c.isCircuitOpen(), "half-open once the open timeout has passed")
	assert.Equal(t, StateHalfOpen, c.state)

	c.recordFailure()
	assert.True(t, c.isCircuitOpen(), "a failure while half-open reopens at once")

	c.recordSuccess()
	assert.False(t, c.isCircuitOpen())
	assert.Equal(t, StateClosed, c.state)
	assert.Zero(t, c.failureCount)
}

func TestPublishDatasetRefreshedWithoutBroker(t *testing.T) {
	msg := NewDatasetRefreshedMessage(7, 10, 2)

	t.Run("open circuit fails fast", func(t *testing.T) {
		c := &Client{exchangeName: "vendas.dataset", state: StateOpen, lastFailure: time.Now()}
		err := c.PublishDatasetRefreshed(context.Background(), msg)
		assert.ErrorIs(t, err, errCircuitOpen)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := (&Client{exchangeName: "vendas.dataset"}).PublishDatasetRefreshed(ctx, msg)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDispatch(t *testing.T) {
	body, err := NewDatasetRefreshedMessage(3, 31, 12).ToJSON()
	require.NoError(t, err)

	t.Run("handler receives the decoded message", func(t *testing.T) {
		var got *DatasetRefreshedMessage
		err := dispatch(body, func(m *DatasetRefreshedMessage) error {
			got = m
			return nil
		})
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(3), got.MirrorRunID)
		assert.Equal(t, 31, got.LedgerRows)
	})

	t.Run("garbage is rejected before the handler", func(t *testing.T) {
		called := false
		err := dispatch([]byte("not json"), func(*DatasetRefreshedMessage) error {
			called = true
			return nil
		})
		assert.ErrorContains(t, err, "decode message")
		assert.False(t, called)
	})

	t.Run("handler errors are reported", func(t *testing.T) {
		boom := errors.New("boom")
		err := dispatch(body, func(*DatasetRefreshedMessage) error { return boom })
		assert.ErrorIs(t, err, boom)
	})
}

func TestNewDatasetRefreshedMessage(t *testing.T) {
	msg := NewDatasetRefreshedMessage(42, 120, 12)

	assert.Equal(t, int64(42), msg.MirrorRunID)
	assert.Equal(t, 120, msg.LedgerRows)
	assert.Equal(t, 12, msg.TargetRows)
	assert.NotEqual(t, uuid.Nil, msg.RunID)
	assert.NotEqual(t, msg.RunID, NewDatasetRefreshedMessage(42, 120, 12).RunID)
	assert.WithinDuration(t, time.Now(), msg.Timestamp, time.Second)
}

func TestDatasetRefreshedMessageJSON(t *testing.T) {
	runID := uuid.MustParse("3f1c2a9e-8d4b-4c1e-9a6f-0b2d7e5c1a44")
	msg := &DatasetRefreshedMessage{
		RunID:       runID,
		MirrorRunID: 3,
		LedgerRows:  31,
		TargetRows:  12,
		Timestamp:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	b, err := msg.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"run_id":"3f1c2a9e-8d4b-4c1e-9a6f-0b2d7e5c1a44"`)

	parsed, err := DatasetRefreshedMessageFromJSON(b)
	require.NoError(t, err)
	assert.Equal(t, runID, parsed.RunID)
	assert.True(t, parsed.Timestamp.Equal(msg.Timestamp))

	_, err = DatasetRefreshedMessageFromJSON([]byte(`{"run_id": "not-a-uuid"}`))
	assert.Error(t, err)
}
