package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
)

// BaseClient wraps a JSON-RPC connection with a per-call timeout.
type BaseClient struct {
	url     string
	rpc     *rpc.Client
	timeout time.Duration
}

// NewBaseClient dials url (http, https, ws or wss) with the given extra headers.
func NewBaseClient(ctx context.Context, url string, headers http.Header) (*BaseClient, error) {
	opts := []rpc.ClientOption{}
	if len(headers) > 0 {
		opts = append(opts, rpc.WithHeaders(headers))
	}

	c, err := rpc.DialOptions(ctx, url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}

	return &BaseClient{
		url:     url,
		rpc:     c,
		timeout: 30 * time.Second,
	}, nil
}

// WrapRPCClient adopts an already connected client, for example an in-process one.
func WrapRPCClient(c *rpc.Client) *BaseClient {
	return &BaseClient{
		url:     "inproc",
		rpc:     c,
		timeout: 30 * time.Second,
	}
}

func (c *BaseClient) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

func (c *BaseClient) URL() string {
	return c.url
}

// Call invokes method and decodes the result into result.
func (c *BaseClient) Call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.rpc.CallContext(ctx, result, method, args...); err != nil {
		return fmt.Errorf("rpc %s failed: %w", method, err)
	}
	return nil
}

func (c *BaseClient) Close() {
	c.rpc.Close()
}
