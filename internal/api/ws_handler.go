package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"portfolioParadise/internal/api/middleware"
	"portfolioParadise/internal/notify"
)

const (
	wsAuthTimeout  = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 5 * time.Second
)

type pubsubClient interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// WsHandler 推送新消息通知。客户端必须先发送 {"type":"auth","token":"..."}，
// 通过后收到 {"type":"ready"}，之后每条新 Message 以 notify.Notification 的 JSON 下发。
type WsHandler struct {
	redisClient pubsubClient
	validator   middleware.TokenValidator
	logger      *slog.Logger
	upgrader    websocket.Upgrader
}

// NewWsHandler 构造 WebSocket 处理器；allowedOrigins 为空时只接受同源连接。
func NewWsHandler(redisClient pubsubClient, validator middleware.TokenValidator, logger *slog.Logger, allowedOrigins []string) *WsHandler {
	return &WsHandler{
		redisClient: redisClient,
		validator:   validator,
		logger:      logger,
		upgrader:    websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if len(allowed) > 0 {
			return slices.Contains(allowed, origin)
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

type wsFrame struct {
	Type      string `json:"type"`
	Token     string `json:"token,omitempty"`
	AccountID string `json:"account_id,omitempty"`
}

// HandleConnection 升级连接、完成首帧鉴权并订阅账号的通知频道。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	log := h.logger.With(slog.String("client_ip", c.ClientIP()))

	accountID, err := h.authenticate(conn)
	if err != nil {
		log.Warn("websocket authentication failed", slog.Any("error", err))
		return
	}
	log = log.With(slog.String("account_id", accountID.String()))

	ready, _ := json.Marshal(wsFrame{Type: "ready", AccountID: accountID.String()})
	if err := writeFrame(conn, websocket.TextMessage, ready); err != nil {
		log.Warn("websocket ready frame failed", slog.Any("error", err))
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go discardInbound(conn, cancel)

	err = h.forward(ctx, conn, accountID, log)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Info("websocket connection closed", slog.Any("error", err))
		return
	}
	log.Info("websocket connection closed")
}

// authenticate 在 wsAuthTimeout 内读取首帧并校验令牌，失败时以 policy violation 关闭连接。
func (h *WsHandler) authenticate(conn *websocket.Conn) (uuid.UUID, error) {
	reject := func(reason string, err error) (uuid.UUID, error) {
		writeClose(conn, websocket.ClosePolicyViolation, reason)
		return uuid.Nil, err
	}

	_ = conn.SetReadDeadline(time.Now().Add(wsAuthTimeout))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return reject("auth timeout", fmt.Errorf("read auth frame: %w", err))
	}
	_ = conn.SetReadDeadline(time.Time{})

	var frame wsFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return reject("invalid auth payload", fmt.Errorf("decode auth frame: %w", err))
	}
	if frame.Type != "auth" || frame.Token == "" {
		return reject("auth required", errors.New("first frame is not an auth frame"))
	}
	claims, err := h.validator.ValidateToken(frame.Token)
	if err != nil {
		return reject("unauthorized", fmt.Errorf("validate token: %w", err))
	}
	return claims.AccountID, nil
}

// discardInbound 丢弃鉴权后的客户端消息，连接断开时取消转发。
func discardInbound(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *WsHandler) forward(ctx context.Context, conn *websocket.Conn, accountID uuid.UUID, log *slog.Logger) error {
	channel := notify.Channel(accountID)
	pubsub := h.redisClient.Subscribe(ctx, channel)
	defer pubsub.Close()

	messages := pubsub.Channel()
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return errors.New("notification channel closed")
			}
			log.Debug("forwarding message notification", slog.String("channel", channel))
			if err := writeFrame(conn, websocket.TextMessage, []byte(msg.Payload)); err != nil {
				return fmt.Errorf("write notification: %w", err)
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return fmt.Errorf("write ping: %w", err)
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, messageType int, data []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(messageType, data)
}

func writeClose(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(wsWriteTimeout))
}
