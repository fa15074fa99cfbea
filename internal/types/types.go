package types

import (
	"time"
)

// SenderType identifies which side of a conversation a participant is on.
type SenderType string

const (
	SenderCustomer SenderType = "customer"
	SenderSeller   SenderType = "seller"
)

// Identity is the viewer's resolved identity, derived from the bearer token.
type Identity struct {
	UserId int        `json:"userId"`
	Role   SenderType `json:"role"`
}

// SellerSummary is the denormalized seller side of a room, attached when the
// viewer is the customer.
type SellerSummary struct {
	Id           int    `json:"id"`
	BusinessName string `json:"businessName"`
	StoreImage   string `json:"storeImage,omitempty"`
	Category     string `json:"category,omitempty"`
}

// CustomerSummary is the denormalized customer side of a room, attached when
// the viewer is the seller.
type CustomerSummary struct {
	Id           int    `json:"id"`
	Name         string `json:"name"`
	ProfileImage string `json:"profileImage,omitempty"`
	Location     string `json:"location,omitempty"`
	Email        string `json:"email,omitempty"`
}

// Room is a conversation between one customer and one seller. ChatroomId is
// server-assigned and immutable; a room is unique per (customer, seller) pair.
type Room struct {
	ChatroomId int              `json:"chatroomId"`
	CustomerId int              `json:"customerId"`
	SellerId   int              `json:"sellerId"`
	Seller     *SellerSummary   `json:"seller,omitempty"`
	Customer   *CustomerSummary `json:"customer,omitempty"`
	CreatedAt  time.Time        `json:"createdAt,omitempty"`
}

// Message is a single chat message. MessageId is server-assigned for
// confirmed messages; optimistic placeholders use negative ids, which the
// server id space never produces.
type Message struct {
	MessageId  int        `json:"messageId"`
	ChatroomId int        `json:"chatroomId"`
	SenderId   int        `json:"senderId"`
	SenderType SenderType `json:"senderType"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Pending reports whether the message is an unconfirmed optimistic placeholder.
func (m Message) Pending() bool {
	return m.MessageId < 0
}
