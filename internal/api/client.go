package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/nibblemarket/go-chatclient/internal/types"
)

// MarketClient is the REST boundary to the marketplace backend. Every other
// endpoint family in the marketplace (products, orders, reviews) follows the
// same request/response pattern; only the chat endpoints are represented here.
type MarketClient interface {
	CreateRoom(ctx context.Context, sellerId int) (types.Room, error)
	ListRooms(ctx context.Context) ([]types.Room, error)
	ListMessages(ctx context.Context, roomId int) ([]types.Message, error)
	SendMessage(ctx context.Context, roomId int, content string) (types.Message, error)
	MarkRead(ctx context.Context, messageId int) error
	Identity() (types.Identity, error)
	HasToken() bool
}

type Client struct {
	baseURL string
	http    *http.Client
	token   TokenSource
	log     *log.Logger
}

func NewClient(baseURL string, timeout time.Duration, token TokenSource, logger *log.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		token:   token,
		log:     logger,
	}
}

func (c *Client) HasToken() bool {
	return c.token() != ""
}

// Identity resolves the viewer's identity from the current bearer token.
func (c *Client) Identity() (types.Identity, error) {
	token := c.token()
	if token == "" {
		return types.Identity{}, ErrNoToken
	}

	return IdentityFromToken(token)
}

func (c *Client) do(ctx context.Context, method, path string, reqBody any) ([]byte, error) {
	var body io.Reader
	if reqBody != nil {
		raw, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, NewRequestError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewRequestError(err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, NewStatusError(resp.StatusCode)
	}

	return raw, nil
}

type createRoomRequest struct {
	SellerId int `json:"sellerId"`
}

func (c *Client) CreateRoom(ctx context.Context, sellerId int) (types.Room, error) {
	raw, err := c.do(ctx, http.MethodPost, "/chat/rooms", createRoomRequest{SellerId: sellerId})
	if err != nil {
		return types.Room{}, fmt.Errorf("create room: %w", err)
	}

	identity, err := c.Identity()
	if err != nil {
		return types.Room{}, fmt.Errorf("create room: %w", err)
	}

	room, ok := normalizeRoom(raw, identity.Role)
	if !ok {
		return types.Room{}, NewDecodeError(fmt.Errorf("unrecognized room payload"))
	}

	return room, nil
}

func (c *Client) ListRooms(ctx context.Context) ([]types.Room, error) {
	raw, err := c.do(ctx, http.MethodGet, "/chat/rooms", nil)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	identity, err := c.Identity()
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	return normalizeRoomList(raw, identity.Role), nil
}

func (c *Client) ListMessages(ctx context.Context, roomId int) ([]types.Message, error) {
	raw, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/chat/rooms/%d/messages", roomId), nil)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	return normalizeMessageList(raw, roomId), nil
}

type sendMessageRequest struct {
	RoomId  int    `json:"roomId"`
	Content string `json:"content"`
}

func (c *Client) SendMessage(ctx context.Context, roomId int, content string) (types.Message, error) {
	raw, err := c.do(ctx, http.MethodPost, "/chat/messages", sendMessageRequest{
		RoomId:  roomId,
		Content: content,
	})
	if err != nil {
		return types.Message{}, fmt.Errorf("send message: %w", err)
	}

	msg, ok := normalizeSentMessage(raw, roomId)
	if !ok {
		return types.Message{}, NewDecodeError(fmt.Errorf("unrecognized message payload"))
	}

	return msg, nil
}

type markReadRequest struct {
	MessageId int `json:"messageId"`
}

// MarkRead reports a message as read. Best effort: callers are expected to
// ignore the returned error beyond logging it.
func (c *Client) MarkRead(ctx context.Context, messageId int) error {
	_, err := c.do(ctx, http.MethodPost, "/chat/messages/read", markReadRequest{MessageId: messageId})
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}

	return nil
}
