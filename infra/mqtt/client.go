package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	coremqtt "github.com/kilianp07/bussim/core/mqtt"
	"github.com/kilianp07/bussim/infra/logger"
)

// MaxRetries bounds Config.MaxRetries so the exponential backoff stays finite.
const MaxRetries = 16

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker              string      `json:"broker"`
	ClientID            string      `json:"client_id"`
	Username            string      `json:"username"`
	Password            string      `json:"password"`
	UseTLS              bool        `json:"use_tls"`
	ClientCert          string      `json:"client_cert"`
	ClientKey           string      `json:"client_key"`
	CABundle            string      `json:"ca_bundle"`
	QoS                 byte        `json:"qos"`
	Retain              bool        `json:"retain"`
	KeepAliveSeconds    int         `json:"keepalive_seconds"`
	ConnectTimeoutSec   int         `json:"connect_timeout_seconds"`
	MaxRetries          int         `json:"max_retries"`
	BackoffMS           int         `json:"backoff_ms"`
	DisconnectQuiesceMS int         `json:"disconnect_quiesce_ms"`
	TLSConfig           *tls.Config `json:"-"`
}

// SetDefaults fills unset fields with the values used by the reference simulator.
func (c *Config) SetDefaults() {
	if c.Broker == "" {
		c.Broker = "tcp://localhost:1883"
	}
	if c.KeepAliveSeconds == 0 {
		c.KeepAliveSeconds = 60
	}
	if c.ConnectTimeoutSec == 0 {
		c.ConnectTimeoutSec = 10
	}
	if c.BackoffMS == 0 {
		c.BackoffMS = 100
	}
	if c.DisconnectQuiesceMS == 0 {
		c.DisconnectQuiesceMS = 250
	}
}

// Validate checks the connection settings.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("broker is required")
	}
	if c.QoS > 2 {
		return fmt.Errorf("qos must be 0, 1 or 2, got %d", c.QoS)
	}
	if c.MaxRetries < 0 || c.MaxRetries > MaxRetries {
		return fmt.Errorf("max_retries must be between 0 and %d, got %d", MaxRetries, c.MaxRetries)
	}
	if c.BackoffMS < 0 {
		return fmt.Errorf("backoff_ms must be >= 0, got %d", c.BackoffMS)
	}
	if c.UseTLS && c.TLSConfig == nil && (c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "") {
		return fmt.Errorf("tls requires client_cert, client_key and ca_bundle")
	}
	return nil
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// PahoClient implements the core Publisher interface using Eclipse Paho.
// Each simulated bus owns one PahoClient.
type PahoClient struct {
	cfg    Config
	cli    pahoClient
	logger logger.Logger

	retries int
	backoff time.Duration
	sleep   func(time.Duration)
}

var _ coremqtt.Publisher = (*PahoClient)(nil)

// NewPahoClient prepares a client for cfg. The broker session is opened by Connect.
func NewPahoClient(cfg Config, log logger.Logger) *PahoClient {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &PahoClient{
		cfg:     cfg,
		logger:  log,
		retries: cfg.MaxRetries,
		backoff: time.Duration(cfg.BackoffMS) * time.Millisecond,
		sleep:   time.Sleep,
	}
}

// NewPublisherFactory returns a factory building one PahoClient per driver.
// The driver id is used as the MQTT client id unless cfg.ClientID is set, in
// which case it is used as a prefix.
func NewPublisherFactory(cfg Config, log logger.Logger) coremqtt.PublisherFactory {
	return func(driverID string) (coremqtt.Publisher, error) {
		c := cfg
		if c.ClientID != "" {
			c.ClientID = c.ClientID + "-" + driverID
		} else {
			c.ClientID = driverID
		}
		var l logger.Logger = logger.NopLogger{}
		if log != nil {
			l = log.With(map[string]any{"client_id": c.ClientID})
		}
		return NewPahoClient(c, l), nil
	}
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetCleanSession(true)
	if cfg.KeepAliveSeconds > 0 {
		opts.SetKeepAlive(time.Duration(cfg.KeepAliveSeconds) * time.Second)
	}
	if cfg.ConnectTimeoutSec > 0 {
		opts.SetConnectTimeout(time.Duration(cfg.ConnectTimeoutSec) * time.Second)
	}
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caBytes) {
		return nil, fmt.Errorf("ca bundle %s contains no certificates", c.CABundle)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// Connect opens the broker session. No reconnect is attempted on failure.
func (p *PahoClient) Connect() error {
	opts, err := NewClientOptions(p.cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", coremqtt.ErrConnect, err)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		p.logger.Errorf("connection lost: %v", err)
	}
	c := newMQTTClient(opts)
	token := c.Connect()
	if !waitToken(token, time.Duration(p.cfg.ConnectTimeoutSec)*time.Second) {
		// the handshake may still complete in the background
		c.Disconnect(uint(p.cfg.DisconnectQuiesceMS))
		return fmt.Errorf("%w: %s: timeout", coremqtt.ErrConnect, p.cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %v", coremqtt.ErrConnect, p.cfg.Broker, err)
	}
	p.cli = c
	p.logger.Infof("connected to %s", p.cfg.Broker)
	return nil
}

// Publish sends payload on topic. When MaxRetries is positive, failed attempts
// are retried with exponential backoff.
func (p *PahoClient) Publish(topic string, payload []byte) error {
	if p.cli == nil {
		return fmt.Errorf("%w: %w", coremqtt.ErrPublish, coremqtt.ErrNotConnected)
	}
	var publishErr error
	for attempt := 0; attempt <= p.retries; attempt++ {
		token := p.cli.Publish(topic, p.cfg.QoS, p.cfg.Retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			return nil
		}
		p.logger.Warnf("publish attempt %d to %s failed: %v", attempt+1, topic, publishErr)
		if attempt < p.retries {
			p.sleep(backoffDelay(p.backoff, attempt))
		}
	}
	return fmt.Errorf("%w: %s: %v", coremqtt.ErrPublish, topic, publishErr)
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli == nil {
		return
	}
	if p.cli.IsConnected() {
		p.cli.Disconnect(uint(p.cfg.DisconnectQuiesceMS))
		p.logger.Infof("disconnected from %s", p.cfg.Broker)
	}
	p.cli = nil
}

// backoffDelay returns base * 2^attempt with the exponent capped at MaxRetries.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt > MaxRetries {
		attempt = MaxRetries
	}
	return base * time.Duration(1<<attempt)
}

func waitToken(t paho.Token, timeout time.Duration) bool {
	if timeout <= 0 {
		return t.Wait()
	}
	return t.WaitTimeout(timeout)
}
