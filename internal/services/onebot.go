package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/padoru233/trans-progress/internal/config"
)

// Sender delivers a composed payload to a chat group. Implementations
// may fail per attempt; callers treat failures as best-effort losses.
type Sender interface {
	SendGroupMessage(ctx context.Context, groupID string, payload Payload) error
}

// OneBotClient talks to a OneBot v11 HTTP API (go-cqhttp and
// compatibles): message delivery plus the member/group lookups used by
// membership sync.
type OneBotClient struct {
	apiURL      string
	accessToken string
	client      *http.Client
}

func NewOneBotClient(cfg *config.BotConfig) *OneBotClient {
	return &OneBotClient{
		apiURL:      strings.TrimSuffix(cfg.APIURL, "/"),
		accessToken: cfg.AccessToken,
		client: &http.Client{
			Timeout: time.Duration(cfg.SendTimeoutSec) * time.Second,
		},
	}
}

type onebotResponse struct {
	Status  string          `json:"status"`
	Retcode int             `json:"retcode"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (c *OneBotClient) callAPI(ctx context.Context, action string, params interface{}, out interface{}) error {
	body, err := json.Marshal(params)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/"+action, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %v: %w", action, err, ErrDelivery)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: %v: %w", action, err, ErrDelivery)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: http %d: %w", action, resp.StatusCode, ErrDelivery)
	}

	var obResp onebotResponse
	if err := json.Unmarshal(data, &obResp); err != nil {
		return fmt.Errorf("%s: bad response: %w", action, ErrDelivery)
	}
	if obResp.Retcode != 0 {
		return fmt.Errorf("%s: retcode %d %s: %w", action, obResp.Retcode, obResp.Message, ErrDelivery)
	}

	if out != nil && len(obResp.Data) > 0 {
		return json.Unmarshal(obResp.Data, out)
	}
	return nil
}

// SendGroupMessage serializes the payload to a CQ-code string and posts
// it to send_group_msg.
func (c *OneBotClient) SendGroupMessage(ctx context.Context, groupID string, payload Payload) error {
	gid, err := strconv.ParseInt(groupID, 10, 64)
	if err != nil {
		return validationf("无效的群号 %s", groupID)
	}

	params := map[string]interface{}{
		"group_id": gid,
		"message":  EncodeCQ(payload),
	}
	return c.callAPI(ctx, "send_group_msg", params, nil)
}

// GroupMemberInfo is one row of get_group_member_list.
type GroupMemberInfo struct {
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
	Card     string `json:"card"`
	Role     string `json:"role"` // owner, admin, member
}

// DisplayName prefers the in-group card over the account nickname.
func (m *GroupMemberInfo) DisplayName() string {
	if m.Card != "" {
		return m.Card
	}
	if m.Nickname != "" {
		return m.Nickname
	}
	return "用户" + strconv.FormatInt(m.UserID, 10)
}

func (c *OneBotClient) GetGroupMemberList(ctx context.Context, groupID string) ([]GroupMemberInfo, error) {
	gid, err := strconv.ParseInt(groupID, 10, 64)
	if err != nil {
		return nil, validationf("无效的群号 %s", groupID)
	}

	var members []GroupMemberInfo
	if err := c.callAPI(ctx, "get_group_member_list", map[string]interface{}{"group_id": gid}, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// GroupInfo is the result of get_group_info.
type GroupInfo struct {
	GroupID   int64  `json:"group_id"`
	GroupName string `json:"group_name"`
}

func (c *OneBotClient) GetGroupInfo(ctx context.Context, groupID string) (*GroupInfo, error) {
	gid, err := strconv.ParseInt(groupID, 10, 64)
	if err != nil {
		return nil, validationf("无效的群号 %s", groupID)
	}

	var info GroupInfo
	if err := c.callAPI(ctx, "get_group_info", map[string]interface{}{"group_id": gid}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

var cqEscaper = strings.NewReplacer("&", "&amp;", "[", "&#91;", "]", "&#93;")

// EncodeCQ renders a payload as a OneBot v11 CQ-code message string.
func EncodeCQ(payload Payload) string {
	var b strings.Builder
	for _, seg := range payload {
		if seg.At != "" {
			b.WriteString("[CQ:at,qq=" + seg.At + "]")
		} else {
			b.WriteString(cqEscaper.Replace(seg.Text))
		}
	}
	return b.String()
}
