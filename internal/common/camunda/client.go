// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wizkid-search/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// Client owns the zeebe gateway connection shared by every search worker.
type Client struct {
	zb      zbc.Client
	gateway string
	probe   time.Duration
	backoff Backoff
}

// Backoff bounds the retries of a gateway command.
type Backoff struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

func (b Backoff) delay(attempt int) time.Duration {
	d := b.Base << attempt
	if d <= 0 || d > b.Max {
		return b.Max
	}
	return d
}

var defaultBackoff = Backoff{Attempts: 3, Base: time.Second, Max: 10 * time.Second}

// NewClient dials a plaintext gateway and waits for the topology to answer.
// probeTimeout bounds both that first probe and later health checks.
func NewClient(gateway string, probeTimeout time.Duration) (*Client, error) {
	if probeTimeout <= 0 {
		probeTimeout = 10 * time.Second
	}
	zb, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         gateway,
		UsePlaintextConnection: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{zb: zb, gateway: gateway, probe: probeTimeout, backoff: defaultBackoff}
	if _, err := c.Brokers(context.Background()); err != nil {
		zb.Close()
		return nil, fmt.Errorf("failed to connect to Zeebe broker at %s: %w", gateway, err)
	}
	return c, nil
}

// GetClient returns the raw zeebe client used to open job workers.
func (c *Client) GetClient() zbc.Client {
	return c.zb
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	return c.zb.Close()
}

// Brokers asks the gateway for its topology and returns the broker count.
func (c *Client) Brokers(ctx context.Context) (int, error) {
	var brokers int
	err := c.Do(ctx, "topology", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, c.probe)
		defer cancel()
		resp, err := c.zb.NewTopologyCommand().Send(ctx)
		if err != nil {
			return err
		}
		brokers = len(resp.GetBrokers())
		return nil
	})
	return brokers, err
}

// HealthCheck fails when the gateway is unreachable or reports no brokers.
func (c *Client) HealthCheck(ctx context.Context) error {
	n, err := c.Brokers(ctx)
	if err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("zeebe gateway %s reports no brokers", c.gateway)
	}
	return nil
}

// Do runs a gateway command, retrying transient failures with exponential
// backoff. The final error is mapped to a StandardError.
func (c *Client) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	attempts := c.backoff.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !transient(err) || attempt+1 >= attempts {
			return mapZeebeError(err, op, attempt+1)
		}
		select {
		case <-time.After(c.backoff.delay(attempt)):
		case <-ctx.Done():
			return fmt.Errorf("zeebe %s cancelled after %d attempts: %w", op, attempt+1, ctx.Err())
		}
	}
}

var transientPhrases = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"deadline exceeded",
	"unavailable",
	"unreachable",
	"broken pipe",
}

func transient(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, phrase := range transientPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

func mapZeebeError(err error, op string, attempts int) error {
	wrapped := fmt.Errorf("zeebe %s failed after %d attempts: %w", op, attempts, err)
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return errors.NewProviderTimeoutError("zeebe", wrapped)
	case strings.Contains(msg, "resource_exhausted"), strings.Contains(msg, "resource exhausted"):
		return errors.NewProviderRateLimitedError("zeebe", wrapped)
	case strings.Contains(msg, "not found"),
		strings.Contains(msg, "already exists"),
		strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "unauthorized"):
		return errors.NewInternalError(wrapped)
	default:
		return errors.NewProviderUnavailableError("zeebe", wrapped)
	}
}
