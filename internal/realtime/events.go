package realtime

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/parkfinder-backend/pkg/enums"
)

// Event names exchanged with websocket clients.
const (
	EventAuthenticated       = "authenticated"
	EventJoinParkingRoom     = "join_parking_room"
	EventLeaveParkingRoom    = "leave_parking_room"
	EventJoinedParkingRoom   = "joined_parking_room"
	EventLeftParkingRoom     = "left_parking_room"
	EventParkingCountUpdated = "parking_count_updated"
	EventError               = "error"
)

const parkingRoomPrefix = "parking:"

// ParkingCountUpdate is pushed to a lot's room after its occupancy changes.
type ParkingCountUpdate struct {
	ParkingID       uuid.UUID          `json:"parkingId"`
	VehicleType     enums.VehicleClass `json:"vehicleType"`
	CurrentCount    int                `json:"currentCount"`
	Capacity        int                `json:"capacity"`
	AvailableSpaces int                `json:"availableSpaces"`
	IsFull          bool               `json:"isFull"`
	Occupancy       float64            `json:"occupancy"`
	Timestamp       time.Time          `json:"timestamp"`
}

// Message is the frame format in both directions.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type roomAck struct {
	ParkingID string `json:"parkingId"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// RoomForParking names the room that receives a lot's updates.
func RoomForParking(id uuid.UUID) string {
	return parkingRoomPrefix + id.String()
}

func encode(event string, data any) ([]byte, error) {
	return json.Marshal(outbound{Event: event, Data: data})
}

// parseParkingID accepts either {"parkingId": "..."} or a bare JSON string.
func parseParkingID(raw json.RawMessage) (uuid.UUID, bool) {
	if len(raw) == 0 {
		return uuid.Nil, false
	}

	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		var payload roomAck
		if err := json.Unmarshal(raw, &payload); err != nil {
			return uuid.Nil, false
		}
		value = payload.ParkingID
	}

	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
