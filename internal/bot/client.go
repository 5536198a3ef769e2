package bot

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/padoru233/trans-progress/internal/config"
	"github.com/padoru233/trans-progress/pkg/logger"
)

// rawEvent is the subset of an OneBot v11 event we care about: group
// messages arriving over the forward WebSocket connection.
type rawEvent struct {
	PostType    string `json:"post_type"`
	MessageType string `json:"message_type"`
	GroupID     int64  `json:"group_id"`
	UserID      int64  `json:"user_id"`
	RawMessage  string `json:"raw_message"`
	SelfID      int64  `json:"self_id"`
	Sender      struct {
		Role     string `json:"role"`
		Card     string `json:"card"`
		Nickname string `json:"nickname"`
	} `json:"sender"`
}

// GroupMessage is a normalized inbound group message.
type GroupMessage struct {
	GroupID    string
	UserID     string
	SenderRole string // owner, admin, member
	RawMessage string
}

// Client maintains the event connection to the chat platform and feeds
// group messages to the command handler. It reconnects forever until
// Stop is called.
type Client struct {
	wsURL       string
	accessToken string
	handler     *CommandHandler
	done        chan struct{}
}

func NewClient(cfg *config.BotConfig, handler *CommandHandler) *Client {
	return &Client{
		wsURL:       cfg.WSURL,
		accessToken: cfg.AccessToken,
		handler:     handler,
		done:        make(chan struct{}),
	}
}

// Run blocks, maintaining the connection. Call in a goroutine.
func (c *Client) Run() {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		if err := c.runOnce(); err != nil {
			logger.Warn().Err(err).Str("url", c.wsURL).Msg("bot event connection lost")
		}

		select {
		case <-c.done:
			return
		case <-time.After(5 * time.Second):
		}
	}
}

func (c *Client) Stop() {
	close(c.done)
}

func (c *Client) runOnce() error {
	header := http.Header{}
	if c.accessToken != "" {
		header.Set("Authorization", "Bearer "+c.accessToken)
	}

	conn, _, err := websocket.DefaultDialer.Dial(c.wsURL, header)
	if err != nil {
		return err
	}
	defer conn.Close()

	logger.Info().Str("url", c.wsURL).Msg("bot event connection established")

	for {
		select {
		case <-c.done:
			return nil
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var ev rawEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			continue // heartbeats and malformed frames are not our problem
		}
		if ev.PostType != "message" || ev.MessageType != "group" {
			continue
		}

		msg := &GroupMessage{
			GroupID:    strconv.FormatInt(ev.GroupID, 10),
			UserID:     strconv.FormatInt(ev.UserID, 10),
			SenderRole: ev.Sender.Role,
			RawMessage: ev.RawMessage,
		}
		go c.handler.Handle(msg)
	}
}
