package broadcast

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/lumenchat/stream-platform/internal/model"
	"github.com/lumenchat/stream-platform/pkg/logger"
)

// subjectPrefix is the NATS subject space for conversation side events:
// conv.events.<conversation-id>.
const subjectPrefix = "conv.events"

// BridgeConfig holds NATS connection configuration.
type BridgeConfig struct {
	URL      string
	CAFile   string
	CertFile string
	KeyFile  string
	Token    string
}

// Bridge connects the in-process registry to NATS so collaborators in
// other processes can publish side events into a streaming conversation.
type Bridge struct {
	conn     *nats.Conn
	sub      *nats.Subscription
	registry *Registry
	log      *logger.Logger
}

// wireEnvelope is the {type, data} pair carried on the bridge subjects.
type wireEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ConnectBridge establishes the NATS connection and starts forwarding
// bridge subjects into the registry.
func ConnectBridge(cfg BridgeConfig, registry *Registry, log *logger.Logger) (*Bridge, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error("NATS error", zap.Error(err))
		}),
	}

	if cfg.CAFile != "" && cfg.CertFile != "" && cfg.KeyFile != "" {
		tlsConfig, err := createTLSConfig(cfg.CAFile, cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		opts = append(opts, nats.Secure(tlsConfig))
	}

	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	b := &Bridge{conn: conn, registry: registry, log: log}

	sub, err := conn.Subscribe(subjectPrefix+".>", b.handle)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to subscribe to bridge subjects: %w", err)
	}
	b.sub = sub

	return b, nil
}

// handle forwards one bridge message into the local registry. Malformed
// payloads are logged and dropped.
func (b *Bridge) handle(msg *nats.Msg) {
	conversationID := strings.TrimPrefix(msg.Subject, subjectPrefix+".")
	if conversationID == "" || strings.Contains(conversationID, ".") {
		return
	}

	var env wireEnvelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		b.log.Warn("malformed bridge payload", zap.String("subject", msg.Subject), zap.Error(err))
		return
	}

	ev, err := model.UnmarshalWire(env.Type, env.Data)
	if err != nil {
		b.log.Warn("unknown bridge event", zap.String("subject", msg.Subject), zap.Error(err))
		return
	}

	b.registry.Publish(conversationID, ev)
}

// PublishRemote publishes an event onto the bridge subject for a
// conversation, reaching whichever process currently streams it.
func (b *Bridge) PublishRemote(conversationID string, ev model.StreamEvent) error {
	data, err := model.MarshalWire(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	payload, err := json.Marshal(wireEnvelope{Type: model.WireType(ev), Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return b.conn.Publish(subjectPrefix+"."+conversationID, payload)
}

// IsConnected reports the connection state, used by readiness checks.
func (b *Bridge) IsConnected() bool {
	return b.conn != nil && b.conn.IsConnected()
}

// Close drains the subscription and closes the connection.
func (b *Bridge) Close() {
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	if b.conn != nil {
		b.conn.Close()
	}
}

func createTLSConfig(caFile, certFile, keyFile string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client cert: %w", err)
	}

	return &tls.Config{
		RootCAs:      caCertPool,
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
