// Package ntfy publishes push notifications to an ntfy.sh topic.
package ntfy

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const defaultServer = "https://ntfy.sh"

// Priority levels understood by ntfy.
const (
	PriorityDefault = "default"
	PriorityHigh    = "high"
)

// Client publishes messages to one topic.
type Client interface {
	Publish(ctx context.Context, msg Message) error
}

// Message is a single notification.
type Message struct {
	Title    string
	Body     string
	Priority string
	Tags     []string
}

// Option configures the client.
type Option func(*httpClient)

// WithServer overrides the default ntfy server.
func WithServer(server string) Option {
	return func(c *httpClient) {
		c.server = strings.TrimRight(server, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	server string
	topic  string
	http   *http.Client
}

// NewClient creates a publisher for the given topic.
func NewClient(topic string, opts ...Option) Client {
	c := &httpClient{
		server: defaultServer,
		topic:  topic,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Publish(ctx context.Context, msg Message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.server+"/"+c.topic, strings.NewReader(msg.Body))
	if err != nil {
		return eris.Wrap(err, "ntfy: create request")
	}
	if msg.Title != "" {
		req.Header.Set("Title", msg.Title)
	}
	if msg.Priority != "" {
		req.Header.Set("Priority", msg.Priority)
	}
	if len(msg.Tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.Tags, ","))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "ntfy: publish")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return eris.Errorf("ntfy: unexpected status %d", resp.StatusCode)
	}
	return nil
}
