package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"WhaleTrail/internal/domain/models"
	"WhaleTrail/pkg/logger"
)

// LogStream is a TransactionSource backed by a logsSubscribe websocket.
// Every notification mentioning a watched program is resolved into a full
// transaction through the RPC client. One Run call owns one connection;
// the ingest monitor handles reconnects.
type LogStream struct {
	wsURL        string
	commitment   string
	programs     []string
	pingInterval time.Duration
	client       *Client
	log          *logger.Logger
}

func NewLogStream(wsURL, commitment string, programs []string, pingInterval time.Duration, client *Client, log *logger.Logger) *LogStream {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	if commitment == "" {
		commitment = "confirmed"
	}
	return &LogStream{
		wsURL:        wsURL,
		commitment:   commitment,
		programs:     programs,
		pingInterval: pingInterval,
		client:       client,
		log:          log,
	}
}

func (s *LogStream) Name() string { return "log-stream" }

type logsNotification struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Value struct {
				Signature string   `json:"signature"`
				Err       any      `json:"err"`
				Logs      []string `json:"logs"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

func (s *LogStream) Run(ctx context.Context, out chan<- *models.RawTransaction) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("log stream connect: %w", err)
	}
	defer conn.Close()

	for i, program := range s.programs {
		sub := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      i + 1,
			"method":  "logsSubscribe",
			"params": []interface{}{
				map[string]interface{}{"mentions": []string{program}},
				map[string]interface{}{"commitment": s.commitment},
			},
		}
		if err := conn.WriteJSON(sub); err != nil {
			return fmt.Errorf("logs subscribe %s: %w", program, err)
		}
	}
	s.log.Info("log stream subscribed",
		logger.Strings("programs", s.programs))

	// Close the connection when the context ends so the blocked read
	// returns.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go s.pingLoop(ctx, conn)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("log stream read: %w", err)
		}

		var n logsNotification
		if err := json.Unmarshal(msg, &n); err != nil || n.Method != "logsNotification" {
			continue
		}
		v := n.Params.Result.Value
		if v.Err != nil || v.Signature == "" {
			continue
		}

		tx, err := s.client.Transaction(ctx, v.Signature)
		if err != nil {
			s.log.Debug("transaction resolve failed",
				logger.String("signature", v.Signature),
				logger.Error(err))
			continue
		}
		if tx == nil {
			continue
		}

		select {
		case out <- tx:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *LogStream) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = conn.WriteMessage(websocket.PingMessage, nil)
		}
	}
}
