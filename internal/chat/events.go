package chat

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nibblemarket/go-chatclient/internal/types"
)

const (
	EventJoinRoom    = "join-room"
	EventSendMessage = "send-message"
	EventNewMessage  = "new-message"
	EventRoomUpdate  = "room-update"
	EventError       = "error"
)

// Envelope is the framing for every socket event, in or out. Outbound
// envelopes carry a correlation id so server-side logs can be matched to a
// client session.
type Envelope struct {
	Id    string          `json:"id,omitempty"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type JoinRoomPayload struct {
	ChatroomId int `json:"chatroomId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}

func newEnvelope(event string, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event, err)
	}

	return &Envelope{
		Id:    uuid.NewString(),
		Event: event,
		Data:  data,
	}, nil
}

func NewJoinRoomEvent(roomId int) (*Envelope, error) {
	return newEnvelope(EventJoinRoom, JoinRoomPayload{ChatroomId: roomId})
}

func NewSendMessageEvent(msg types.Message) (*Envelope, error) {
	return newEnvelope(EventSendMessage, msg)
}

func decodeMessage(data json.RawMessage) (types.Message, bool) {
	var msg types.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return types.Message{}, false
	}

	return msg, msg.MessageId != 0 && msg.ChatroomId != 0
}

func decodeRoom(data json.RawMessage) (types.Room, bool) {
	var room types.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return types.Room{}, false
	}

	return room, room.ChatroomId != 0
}

func decodeError(data json.RawMessage) string {
	var payload ErrorPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Message == "" {
		return "unknown socket error"
	}

	return payload.Message
}
