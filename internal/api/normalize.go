package api

import (
	"encoding/json"
	"time"

	"github.com/nibblemarket/go-chatclient/internal/types"
)

// The backend is inconsistent about envelope shapes: list endpoints answer
// either a wrapped object ({"rooms": [...]}) or a bare array, and ids appear
// under either a generic "id" key or the entity-specific one. All of that
// variance is absorbed here; the rest of the module only ever sees the
// canonical types. An entirely unrecognized shape degrades to empty.

type roomPayload struct {
	Id         int                    `json:"id"`
	ChatroomId int                    `json:"chatroomId"`
	CustomerId int                    `json:"customerId"`
	SellerId   int                    `json:"sellerId"`
	CreatedAt  time.Time              `json:"createdAt"`
	Seller     *types.SellerSummary   `json:"seller"`
	Customer   *types.CustomerSummary `json:"customer"`
}

func (p roomPayload) toRoom(viewer types.SenderType) types.Room {
	room := types.Room{
		ChatroomId: p.ChatroomId,
		CustomerId: p.CustomerId,
		SellerId:   p.SellerId,
		CreatedAt:  p.CreatedAt,
	}
	if room.ChatroomId == 0 {
		room.ChatroomId = p.Id
	}

	// Attach only the counterpart summary: sellers see the customer side and
	// customers see the seller side.
	switch viewer {
	case types.SenderSeller:
		room.Customer = p.Customer
	default:
		room.Seller = p.Seller
	}

	return room
}

type messagePayload struct {
	Id         int              `json:"id"`
	MessageId  int              `json:"messageId"`
	ChatroomId int              `json:"chatroomId"`
	SenderId   int              `json:"senderId"`
	SenderType types.SenderType `json:"senderType"`
	Content    string           `json:"content"`
	CreatedAt  time.Time        `json:"createdAt"`
}

func (p messagePayload) toMessage(roomId int) types.Message {
	msg := types.Message{
		MessageId:  p.MessageId,
		ChatroomId: p.ChatroomId,
		SenderId:   p.SenderId,
		SenderType: p.SenderType,
		Content:    p.Content,
		CreatedAt:  p.CreatedAt,
	}
	if msg.MessageId == 0 {
		msg.MessageId = p.Id
	}
	if msg.ChatroomId == 0 {
		msg.ChatroomId = roomId
	}

	return msg
}

func normalizeRoomList(raw []byte, viewer types.SenderType) []types.Room {
	var payloads []roomPayload

	var wrapped struct {
		Rooms []roomPayload `json:"rooms"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Rooms != nil {
		payloads = wrapped.Rooms
	} else if err := json.Unmarshal(raw, &payloads); err != nil {
		return []types.Room{}
	}

	rooms := make([]types.Room, 0, len(payloads))
	for _, p := range payloads {
		rooms = append(rooms, p.toRoom(viewer))
	}

	return rooms
}

func normalizeRoom(raw []byte, viewer types.SenderType) (types.Room, bool) {
	var p roomPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return types.Room{}, false
	}

	room := p.toRoom(viewer)
	if room.ChatroomId == 0 {
		return types.Room{}, false
	}

	return room, true
}

func normalizeMessageList(raw []byte, roomId int) []types.Message {
	var payloads []messagePayload

	var wrapped struct {
		Messages []messagePayload `json:"messages"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Messages != nil {
		payloads = wrapped.Messages
	} else if err := json.Unmarshal(raw, &payloads); err != nil {
		return []types.Message{}
	}

	messages := make([]types.Message, 0, len(payloads))
	for _, p := range payloads {
		messages = append(messages, p.toMessage(roomId))
	}

	return messages
}

func normalizeSentMessage(raw []byte, roomId int) (types.Message, bool) {
	var wrapped struct {
		Message *messagePayload `json:"message"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Message != nil {
		msg := wrapped.Message.toMessage(roomId)
		return msg, msg.MessageId != 0
	}

	var p messagePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return types.Message{}, false
	}

	msg := p.toMessage(roomId)
	return msg, msg.MessageId != 0
}
