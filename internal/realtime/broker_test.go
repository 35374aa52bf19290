package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/parkfinder-backend/pkg/errors"
	"github.com/angelmondragon/parkfinder-backend/pkg/redis"
)

type loopbackSub struct {
	ch   chan []byte
	once sync.Once
}

func (s *loopbackSub) Messages() <-chan []byte { return s.ch }

func (s *loopbackSub) Close() error {
	s.once.Do(func() { close(s.ch) })
	return nil
}

// loopbackPubSub delivers every published payload to its single subscription.
type loopbackPubSub struct {
	mu         sync.Mutex
	sub        *loopbackSub
	subscribed chan struct{}
	publishErr error
	published  [][]byte
}

func newLoopback() *loopbackPubSub {
	return &loopbackPubSub{subscribed: make(chan struct{})}
}

func (p *loopbackPubSub) Publish(_ context.Context, _ string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.publishErr != nil {
		return p.publishErr
	}
	p.published = append(p.published, payload)
	if p.sub != nil {
		p.sub.ch <- payload
	}
	return nil
}

func (p *loopbackPubSub) Subscribe(_ context.Context, _ string) (redis.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sub = &loopbackSub{ch: make(chan []byte, 8)}
	close(p.subscribed)
	return p.sub, nil
}

func startBroker(t *testing.T, ps *loopbackPubSub, hub *Hub) *Broker {
	t.Helper()
	broker, err := NewBroker(ps, "", hub, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- broker.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	select {
	case <-ps.subscribed:
	case <-time.After(time.Second):
		t.Fatal("broker did not subscribe")
	}
	return broker
}

func TestBrokerFansOutThroughPubSub(t *testing.T) {
	hub := startHub(t, nil)
	ps := newLoopback()
	broker := startBroker(t, ps, hub)

	c := newTestClient(t, hub, 4)
	parkingID := uuid.New()
	hub.Join(c, parkingID)
	nextMessage(t, c)

	require.NoError(t, broker.PublishCountUpdate(context.Background(), sampleUpdate(parkingID)))

	msg := nextMessage(t, c)
	assert.Equal(t, EventParkingCountUpdated, msg.Event)
	var update ParkingCountUpdate
	require.NoError(t, json.Unmarshal(msg.Data, &update))
	assert.Equal(t, 7, update.CurrentCount)
	assert.Len(t, ps.published, 1)
	assertNoMessage(t, c)
}

func TestBrokerFallsBackToLocalDelivery(t *testing.T) {
	hub := startHub(t, nil)
	ps := newLoopback()
	ps.publishErr = errors.New("redis down")
	broker := startBroker(t, ps, hub)

	c := newTestClient(t, hub, 4)
	parkingID := uuid.New()
	hub.Join(c, parkingID)
	nextMessage(t, c)

	err := broker.PublishCountUpdate(context.Background(), sampleUpdate(parkingID))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
	assert.Equal(t, EventParkingCountUpdated, nextMessage(t, c).Event)
}

func TestBrokerIgnoresMalformedPayloads(t *testing.T) {
	hub := startHub(t, nil)
	ps := newLoopback()
	broker := startBroker(t, ps, hub)

	c := newTestClient(t, hub, 4)
	parkingID := uuid.New()
	hub.Join(c, parkingID)
	nextMessage(t, c)

	require.NoError(t, ps.Publish(context.Background(), DefaultChannel, []byte(`{broken`)))
	require.NoError(t, broker.PublishCountUpdate(context.Background(), sampleUpdate(parkingID)))
	assert.Equal(t, EventParkingCountUpdated, nextMessage(t, c).Event)
}

func TestNewBrokerRequiresDependencies(t *testing.T) {
	_, err := NewBroker(nil, "", NewHub(nil, nil), nil)
	assert.Error(t, err)
	_, err = NewBroker(newLoopback(), "", nil, nil)
	assert.Error(t, err)
}
