package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/nibblemarket/go-chatclient/internal/api"
	"github.com/nibblemarket/go-chatclient/internal/stats"
	"github.com/nibblemarket/go-chatclient/internal/types"
)

// Session is the single source of truth for which conversation is open. It
// coordinates the room directory, the message timeline, and the socket:
// room switches clear the timeline and re-join the socket channel, deep-linked
// room ids are held pending until the directory first loads, and in-flight
// message fetches for a superseded room are discarded.
type Session struct {
	api       api.MarketClient
	log       *log.Logger
	stats     stats.StatsProvider
	directory *RoomDirectory
	timeline  *Timeline

	mu           sync.Mutex
	sock         Socket
	activeRoom   int
	pendingRoom  int
	roomNotFound bool
	fetchSeq     uint64
	nextLocalId  int
	socketErr    string
}

func NewSession(client api.MarketClient, su stats.StatsProvider, logger *log.Logger) *Session {
	su.RegisterMetric(stats.MessagesSent)
	su.RegisterMetric(stats.MessagesReceived)
	su.RegisterMetric(stats.SendFailures)
	su.RegisterMetric(stats.SocketConnects)

	return &Session{
		api:         client,
		log:         logger,
		stats:       su,
		directory:   NewRoomDirectory(),
		timeline:    NewTimeline(),
		nextLocalId: -1,
	}
}

// SetSocket attaches the socket used for joins and send echoes. The session
// works without one; it just degrades to REST-only behavior.
func (s *Session) SetSocket(sock Socket) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sock = sock
}

func (s *Session) socket() Socket {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sock
}

func (s *Session) socketConnected() bool {
	sock := s.socket()
	return sock != nil && sock.Connected()
}

// FetchRooms refreshes the room directory. Without a token this is a silent
// no-op: during page load "no token yet" is a normal transient state, not an
// error. On completion a pending deep-linked room is promoted to active.
func (s *Session) FetchRooms(ctx context.Context) error {
	if !s.api.HasToken() {
		return nil
	}

	rooms, err := s.api.ListRooms(ctx)
	if err != nil {
		// Keep whatever was cached before.
		s.directory.SetError(fmt.Sprintf("failed to load conversations: %v", err))
		return fmt.Errorf("fetch rooms: %w", err)
	}

	s.directory.Replace(rooms)

	s.mu.Lock()
	pending := s.pendingRoom
	s.pendingRoom = 0
	s.mu.Unlock()

	if pending != 0 {
		if _, ok := s.directory.Get(pending); !ok {
			// Best effort: the room may exist server-side without appearing
			// in a stale list yet. Flag it so the caller can show a
			// "conversation not found" state if messages never load.
			s.setRoomNotFound(true)
		}
		s.SetActiveRoom(pending)
	}

	return nil
}

// CreateRoom starts (or resumes) a conversation with a seller and makes it
// visible immediately, without waiting for a refetch. The server returns the
// existing room when one already exists for the pair.
func (s *Session) CreateRoom(ctx context.Context, sellerId int) (types.Room, error) {
	if !s.api.HasToken() {
		return types.Room{}, api.ErrNoToken
	}

	room, err := s.api.CreateRoom(ctx, sellerId)
	if err != nil {
		s.directory.SetError(fmt.Sprintf("failed to start conversation: %v", err))
		return types.Room{}, fmt.Errorf("create room: %w", err)
	}

	s.directory.Upsert(room)
	return room, nil
}

// SetActiveRoom switches the open conversation. A no-op when the room is
// already active, to avoid redundant refetch and rejoin on repeated clicks.
func (s *Session) SetActiveRoom(roomId int) {
	s.mu.Lock()
	if roomId == s.activeRoom {
		s.mu.Unlock()
		return
	}
	s.activeRoom = roomId
	// Invalidate any in-flight message fetch for the previous room.
	s.fetchSeq++
	if _, ok := s.directory.Get(roomId); ok {
		s.roomNotFound = false
	}
	s.mu.Unlock()

	s.timeline.Clear()

	if s.socketConnected() {
		s.socket().JoinRoom(roomId)
	}
}

// SetPendingRoom records a deep-linked room id. If the directory has already
// loaded, the room is activated immediately; otherwise activation happens when
// FetchRooms completes.
func (s *Session) SetPendingRoom(roomId int) {
	if roomId <= 0 {
		return
	}

	if s.directory.Loaded() {
		if _, ok := s.directory.Get(roomId); !ok {
			s.setRoomNotFound(true)
		}
		s.SetActiveRoom(roomId)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingRoom = roomId
}

// FetchMessages loads the room's history and makes it the active room:
// fetching a room's messages means that room is now the one being looked at.
// Guarded: a non-positive room id or a missing token is a silent no-op.
func (s *Session) FetchMessages(ctx context.Context, roomId int) error {
	if roomId <= 0 {
		return nil
	}
	if !s.api.HasToken() {
		return nil
	}

	s.mu.Lock()
	if s.activeRoom != roomId {
		s.activeRoom = roomId
		s.timeline.Clear()
	}
	s.fetchSeq++
	seq := s.fetchSeq
	s.mu.Unlock()

	messages, err := s.api.ListMessages(ctx, roomId)

	s.mu.Lock()
	stale := seq != s.fetchSeq || s.activeRoom != roomId
	s.mu.Unlock()
	if stale {
		// The room was switched while this fetch was in flight; its result
		// must not overwrite the newer room's timeline.
		s.log.Printf("discarding stale message fetch for room %d", roomId)
		return nil
	}

	if err != nil {
		s.timeline.SetError(fmt.Sprintf("failed to load messages: %v", err))
		return fmt.Errorf("fetch messages: %w", err)
	}

	s.timeline.Replace(messages)
	s.setRoomNotFound(false)

	if s.socketConnected() {
		s.socket().JoinRoom(roomId)
	}

	return nil
}

// SendMessage performs an optimistic send: a placeholder with a negative id
// appears on the timeline immediately, then is replaced in place by the
// server-confirmed message, or removed entirely if the send fails. Returns an
// error for user display on failure; whitespace-only content is a silent
// no-op.
func (s *Session) SendMessage(ctx context.Context, roomId int, content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	if !s.api.HasToken() {
		// Unlike fetches, sending is an explicit user action; surface it.
		s.timeline.SetError("you must be logged in to send messages")
		return api.ErrNoToken
	}

	identity, err := s.api.Identity()
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	s.mu.Lock()
	localId := s.nextLocalId
	s.nextLocalId--
	s.mu.Unlock()

	placeholder := types.Message{
		MessageId:  localId,
		ChatroomId: roomId,
		SenderId:   identity.UserId,
		SenderType: identity.Role,
		Content:    content,
		CreatedAt:  time.Now(),
	}
	s.timeline.Add(placeholder)

	confirmed, err := s.api.SendMessage(ctx, roomId, content)
	if err != nil {
		// Roll back the optimistic bubble, nothing else.
		s.timeline.Remove(localId)
		s.timeline.SetError(fmt.Sprintf("failed to send message: %v", err))
		s.stats.Incr(stats.SendFailures)
		return fmt.Errorf("send message: %w", err)
	}

	if !s.timeline.Confirm(localId, confirmed) {
		// The room was switched mid-send; the confirmed message belongs to a
		// timeline that is no longer shown.
		s.log.Printf("placeholder %d gone, confirmed message %d not shown", localId, confirmed.MessageId)
	}

	if s.socketConnected() {
		s.socket().SendMessage(confirmed)
	}

	s.stats.Incr(stats.MessagesSent)
	return nil
}

// MarkRead reports a message as read. Best effort: failures are logged and
// swallowed.
func (s *Session) MarkRead(ctx context.Context, messageId int) {
	if messageId <= 0 || !s.api.HasToken() {
		return
	}

	if err := s.api.MarkRead(ctx, messageId); err != nil {
		s.log.Println("mark read:", err)
	}
}

// HandleConnected re-joins the active room after a connect or reconnect, so
// server-side routing of pushes resumes. The pointer is read now, not when
// the connection was created: the active room may have changed while the
// socket was down.
func (s *Session) HandleConnected() {
	s.stats.Incr(stats.SocketConnects)

	s.mu.Lock()
	room := s.activeRoom
	s.socketErr = ""
	s.mu.Unlock()

	if room > 0 && s.socketConnected() {
		s.socket().JoinRoom(room)
	}
}

func (s *Session) HandleDisconnected(err error) {
	if err != nil {
		s.log.Println("socket disconnected:", err)
	}
}

// HandleNewMessage merges a pushed message into the timeline, but only when
// it targets the active room. Messages for other rooms have no timeline to
// land in; the backend offers no unread-count contract to route them to.
func (s *Session) HandleNewMessage(msg types.Message) {
	s.mu.Lock()
	active := s.activeRoom
	s.mu.Unlock()

	if msg.ChatroomId != active {
		return
	}

	if s.timeline.Add(msg) {
		s.stats.Incr(stats.MessagesReceived)
	}
}

func (s *Session) HandleRoomUpdate(room types.Room) {
	s.directory.Upsert(room)
}

func (s *Session) HandleSocketError(msg string) {
	s.log.Println("socket error:", msg)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.socketErr = msg
}

// Run polls the REST API while the socket is down, so the page keeps showing
// fresh rooms and messages on a degraded transport. Blocks until ctx is done.
func (s *Session) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.socketConnected() {
				continue
			}

			if err := s.FetchRooms(ctx); err != nil {
				s.log.Println("poll rooms:", err)
			}

			s.mu.Lock()
			room := s.activeRoom
			s.mu.Unlock()
			if room > 0 {
				if err := s.FetchMessages(ctx, room); err != nil {
					s.log.Println("poll messages:", err)
				}
			}
		}
	}
}

func (s *Session) Rooms() []types.Room {
	return s.directory.Rooms()
}

func (s *Session) Messages() []types.Message {
	return s.timeline.Messages()
}

func (s *Session) ActiveRoom() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.activeRoom
}

// RoomNotFound reports whether the active room was deep-linked but absent
// from the loaded directory, and its messages have not loaded since.
func (s *Session) RoomNotFound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.roomNotFound
}

func (s *Session) setRoomNotFound(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.roomNotFound = v
}

func (s *Session) RoomsError() string {
	return s.directory.Err()
}

func (s *Session) MessagesError() string {
	return s.timeline.Err()
}

func (s *Session) SocketError() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.socketErr
}
