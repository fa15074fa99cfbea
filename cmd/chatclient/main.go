package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nibblemarket/go-chatclient/internal/api"
	"github.com/nibblemarket/go-chatclient/internal/chat"
	"github.com/nibblemarket/go-chatclient/internal/config"
	"github.com/nibblemarket/go-chatclient/internal/stats"
)

var (
	apiURL   string
	wsURL    string
	token    string
	deepLink int
)

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// .env is optional; flags and real env vars win over it.
	godotenv.Load()

	flag.StringVar(&apiURL, "api-url", envDefault("NIBBLE_API_URL", "http://localhost:8000/api"), "marketplace API base URL")
	flag.StringVar(&wsURL, "ws-url", envDefault("NIBBLE_WS_URL", "ws://localhost:8000/ws"), "chat socket URL")
	flag.StringVar(&token, "token", os.Getenv("NIBBLE_TOKEN"), "bearer token")
	flag.IntVar(&deepLink, "room", 0, "open this chatroom id on startup")
	flag.Parse()

	logger := log.New(os.Stderr, "[nibble-chat] ", log.LstdFlags)

	cfg, err := config.NewConfig(apiURL, wsURL, token)
	if err != nil {
		logger.Fatal("config:", err)
	}

	clientStats := stats.NewClientStats()
	clientStats.Publish("nibble-chat-stats")

	client := api.NewClient(cfg.ApiBaseURL, cfg.HTTPTimeout, api.StaticToken(cfg.Token), logger)
	session := chat.NewSession(client, clientStats, logger)

	conn := chat.NewConn(cfg.SocketURL, api.StaticToken(cfg.Token), session, cfg.ReconnectAttempts, cfg.ReconnectDelay, logger)
	session.SetSocket(conn)
	defer conn.Close()

	if deepLink > 0 {
		session.SetPendingRoom(deepLink)
	}

	if err := conn.Connect(); err != nil {
		// Not fatal: cached data still works and the poller takes over.
		logger.Println("socket connect:", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go session.Run(ctx, cfg.PollInterval)

	if err := session.FetchRooms(ctx); err != nil {
		logger.Println("fetch rooms:", err)
	}

	quit := make(chan struct{})
	go readCommands(ctx, session, logger, quit)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case <-quit:
	}

	for name, value := range clientStats.Snapshot() {
		logger.Printf("%s: %d", name, value)
	}
}

func readCommands(ctx context.Context, session *chat.Session, logger *log.Logger, quit chan<- struct{}) {
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("commands: /rooms, /open <id>, /new <sellerId>, /quit, anything else sends")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "/quit":
			close(quit)
			return
		case line == "/rooms":
			printRooms(session)
		case strings.HasPrefix(line, "/open "):
			id, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "/open ")))
			if err != nil {
				fmt.Println("usage: /open <chatroom id>")
				continue
			}

			session.SetActiveRoom(id)
			if err := session.FetchMessages(ctx, id); err != nil {
				logger.Println("fetch messages:", err)
			}
			if session.RoomNotFound() {
				fmt.Println("conversation not found")
				continue
			}
			printMessages(session)

			// Opening a conversation means its newest message was seen.
			if messages := session.Messages(); len(messages) > 0 {
				session.MarkRead(ctx, messages[len(messages)-1].MessageId)
			}
		case strings.HasPrefix(line, "/new "):
			sellerId, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "/new ")))
			if err != nil {
				fmt.Println("usage: /new <seller id>")
				continue
			}

			room, err := session.CreateRoom(ctx, sellerId)
			if err != nil {
				logger.Println("create room:", err)
				continue
			}
			fmt.Printf("conversation #%d ready\n", room.ChatroomId)
		case line != "":
			room := session.ActiveRoom()
			if room <= 0 {
				fmt.Println("no conversation open, use /open <id>")
				continue
			}

			if err := session.SendMessage(ctx, room, line); err != nil {
				fmt.Println("message not sent, try again")
			}
		}
	}

	// stdin closed
	close(quit)
}

func printRooms(session *chat.Session) {
	rooms := session.Rooms()
	if len(rooms) == 0 {
		fmt.Println("no conversations")
		if msg := session.RoomsError(); msg != "" {
			fmt.Println(msg)
		}
		return
	}

	for _, room := range rooms {
		name := fmt.Sprintf("customer %d / seller %d", room.CustomerId, room.SellerId)
		if room.Seller != nil {
			name = room.Seller.BusinessName
		} else if room.Customer != nil {
			name = room.Customer.Name
		}
		fmt.Printf("#%d  %s\n", room.ChatroomId, name)
	}
}

func printMessages(session *chat.Session) {
	for _, msg := range session.Messages() {
		marker := ""
		if msg.Pending() {
			marker = " (sending)"
		}
		fmt.Printf("[%s %d]%s %s\n", msg.SenderType, msg.SenderId, marker, msg.Content)
	}
	if msg := session.MessagesError(); msg != "" {
		fmt.Println(msg)
	}
}
