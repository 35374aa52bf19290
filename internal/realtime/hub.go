package realtime

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/angelmondragon/parkfinder-backend/pkg/logger"
	"github.com/angelmondragon/parkfinder-backend/pkg/metrics"
)

const broadcastBuffer = 256

// ErrHubClosed is returned when a client registers after the hub stopped.
var ErrHubClosed = errors.New("realtime hub closed")

// Stats is a point-in-time view of this instance's relay.
type Stats struct {
	ConnectedClients int `json:"connectedClients"`
	ActiveRooms      int `json:"activeRooms"`
}

type membership struct {
	client    *Client
	parkingID uuid.UUID
	join      bool
}

type roomMessage struct {
	room    string
	payload []byte
}

type directMessage struct {
	client  *Client
	payload []byte
}

// Hub owns every room and client of this instance. All state is touched only by the Run
// goroutine; other goroutines talk to it through channels.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	membership chan membership
	broadcast  chan roomMessage
	direct     chan directMessage
	stats      chan chan Stats
	done       chan struct{}

	clients map[*Client]map[string]struct{}
	rooms   map[string]map[*Client]struct{}

	metrics *metrics.Metrics
	logg    *logger.Logger
}

// NewHub builds an idle hub. Call Run to start it.
func NewHub(logg *logger.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		membership: make(chan membership),
		broadcast:  make(chan roomMessage, broadcastBuffer),
		direct:     make(chan directMessage, broadcastBuffer),
		stats:      make(chan chan Stats),
		done:       make(chan struct{}),
		clients:    make(map[*Client]map[string]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		metrics:    m,
		logg:       logg,
	}
}

// Run processes hub events until ctx is cancelled, then closes every client queue.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return nil
		case c := <-h.register:
			h.clients[c] = make(map[string]struct{})
			h.metrics.SetRelayClients(len(h.clients))
		case c := <-h.unregister:
			h.remove(c)
		case m := <-h.membership:
			h.applyMembership(m)
		case msg := <-h.broadcast:
			h.deliver(msg)
		case msg := <-h.direct:
			if _, ok := h.clients[msg.client]; ok {
				h.enqueue(msg.client, msg.payload)
			}
		case reply := <-h.stats:
			reply <- Stats{ConnectedClients: len(h.clients), ActiveRooms: len(h.rooms)}
		}
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

// Unregister removes a client from every room and closes its queue.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Join subscribes a client to a lot's room. The hub acknowledges with joined_parking_room.
func (h *Hub) Join(c *Client, parkingID uuid.UUID) {
	h.sendMembership(membership{client: c, parkingID: parkingID, join: true})
}

// Leave unsubscribes a client from a lot's room.
func (h *Hub) Leave(c *Client, parkingID uuid.UUID) {
	h.sendMembership(membership{client: c, parkingID: parkingID})
}

func (h *Hub) sendMembership(m membership) {
	select {
	case h.membership <- m:
	case <-h.done:
	}
}

// Broadcast queues payload for every client in room.
func (h *Hub) Broadcast(room string, payload []byte) {
	select {
	case h.broadcast <- roomMessage{room: room, payload: payload}:
	case <-h.done:
	}
}

// Send queues payload for a single client.
func (h *Hub) Send(c *Client, payload []byte) {
	select {
	case h.direct <- directMessage{client: c, payload: payload}:
	case <-h.done:
	}
}

// Stats reports connected clients and rooms with at least one member.
func (h *Hub) Stats() Stats {
	reply := make(chan Stats, 1)
	select {
	case h.stats <- reply:
	case <-h.done:
		return Stats{}
	}
	return <-reply
}

// PublishCountUpdate delivers an occupancy change to this instance's clients only.
func (h *Hub) PublishCountUpdate(_ context.Context, update ParkingCountUpdate) error {
	payload, err := encode(EventParkingCountUpdated, update)
	if err != nil {
		return err
	}
	h.Broadcast(RoomForParking(update.ParkingID), payload)
	return nil
}

func (h *Hub) applyMembership(m membership) {
	joined, ok := h.clients[m.client]
	if !ok {
		return
	}
	room := RoomForParking(m.parkingID)
	ack := roomAck{ParkingID: m.parkingID.String()}

	if m.join {
		members := h.rooms[room]
		if members == nil {
			members = make(map[*Client]struct{})
			h.rooms[room] = members
		}
		members[m.client] = struct{}{}
		joined[room] = struct{}{}
		h.reply(m.client, EventJoinedParkingRoom, ack)
		return
	}

	h.leaveRoom(m.client, room)
	delete(joined, room)
	h.reply(m.client, EventLeftParkingRoom, ack)
}

func (h *Hub) reply(c *Client, event string, data any) {
	payload, err := encode(event, data)
	if err != nil {
		return
	}
	h.enqueue(c, payload)
}

func (h *Hub) deliver(msg roomMessage) {
	var delivered, dropped int
	for c := range h.rooms[msg.room] {
		if h.enqueue(c, msg.payload) {
			delivered++
		} else {
			dropped++
		}
	}
	h.metrics.AddRelayDelivered(delivered)
	h.metrics.AddRelayDropped(dropped)
	if dropped > 0 && h.logg != nil {
		ctx := h.logg.WithFields(context.Background(), map[string]any{"room": msg.room, "dropped": dropped})
		h.logg.Warn(ctx, "realtime.queue_full")
	}
}

func (h *Hub) enqueue(c *Client, payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (h *Hub) leaveRoom(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) remove(c *Client) {
	joined, ok := h.clients[c]
	if !ok {
		return
	}
	for room := range joined {
		h.leaveRoom(c, room)
	}
	delete(h.clients, c)
	close(c.send)
	h.metrics.SetRelayClients(len(h.clients))
}

func (h *Hub) shutdown() {
	for c := range h.clients {
		close(c.send)
	}
	h.clients = make(map[*Client]map[string]struct{})
	h.rooms = make(map[string]map[*Client]struct{})
	h.metrics.SetRelayClients(0)
}
