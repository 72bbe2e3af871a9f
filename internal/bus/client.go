package bus

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/loqalabs/dictate/internal/config"
	"github.com/loqalabs/dictate/internal/protocol"
	"github.com/nats-io/nats.go"
)

// Client wraps a NATS connection used to broadcast finished transcripts
// to other local tools.
type Client struct {
	conn *nats.Conn
	log  *slog.Logger
}

func Connect(cfg config.BusConfig, log *slog.Logger) (*Client, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("no NATS servers configured")
	}

	options := []nats.Option{
		nats.Name("dictated"),
		nats.Timeout(time.Duration(cfg.ConnectTimeout) * time.Millisecond),
	}

	if cfg.Username != "" || cfg.Password != "" {
		options = append(options, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		options = append(options, nats.Token(cfg.Token))
	}
	if cfg.TLSInsecure {
		options = append(options, nats.Secure(&tls.Config{InsecureSkipVerify: true}))
	}

	url := strings.Join(cfg.Servers, ",")
	conn, err := nats.Connect(url, options...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	log.Info("connected to NATS", slog.String("servers", url))

	return &Client{
		conn: conn,
		log:  log.With(slog.String("component", "bus")),
	}, nil
}

// PublishTranscript broadcasts a finished transcript on the final
// transcript subject.
func (c *Client) PublishTranscript(evt protocol.TranscriptEvent) error {
	if c == nil || c.conn == nil {
		return errors.New("bus client not connected")
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode transcript event: %w", err)
	}
	if err := c.conn.Publish(protocol.SubjectTranscriptFinal, payload); err != nil {
		return fmt.Errorf("publish transcript: %w", err)
	}
	return nil
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	c.log.Info("closing NATS connection")
	c.conn.Drain()
	c.conn.Close()
}

func (c *Client) Healthy() bool {
	return c != nil && c.conn != nil && c.conn.Status() == nats.CONNECTED
}
