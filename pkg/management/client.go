package management

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3/client"
	"github.com/moogar0880/problems"
)

// RemoteError is a failure reported by a management server.
type RemoteError struct {
	StatusCode int
	Type       string
	Detail     string
}

func (e *RemoteError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("management server returned %d (%s): %s", e.StatusCode, e.Type, e.Detail)
	}

	return fmt.Sprintf("management server returned %d", e.StatusCode)
}

// Client calls a remote management Server.
type Client struct {
	baseURL string
	http    *client.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	c := client.New()
	c.SetTimeout(timeout)

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    c,
	}
}

// Invoke runs operation on the remote instance. A name or operation that is
// not registered yields ErrInstanceNotFound or ErrOperationNotFound.
func (c *Client) Invoke(ctx context.Context, name, operation string) error {
	endpoint := c.baseURL + "/management/" + url.PathEscape(name) + "/" + url.PathEscape(operation)

	resp, err := c.http.Post(endpoint, client.Config{Ctx: ctx})
	if err != nil {
		return fmt.Errorf("failed to call management server: %w", err)
	}
	defer resp.Close()

	if resp.StatusCode() >= 300 {
		return remoteError(resp.StatusCode(), resp.Body())
	}

	return nil
}

func (c *Client) Instances(ctx context.Context) ([]Instance, error) {
	resp, err := c.http.Get(c.baseURL+"/management", client.Config{Ctx: ctx})
	if err != nil {
		return nil, fmt.Errorf("failed to call management server: %w", err)
	}
	defer resp.Close()

	if resp.StatusCode() >= 300 {
		return nil, remoteError(resp.StatusCode(), resp.Body())
	}

	var body struct {
		Instances []Instance `json:"instances"`
	}

	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("failed to decode instances: %w", err)
	}

	return body.Instances, nil
}

func remoteError(status int, body []byte) error {
	var problem problems.Problem
	if err := json.Unmarshal(body, &problem); err != nil {
		return &RemoteError{StatusCode: status, Detail: strings.TrimSpace(string(body))}
	}

	remote := &RemoteError{StatusCode: status, Type: problem.Type, Detail: problem.Detail}

	switch problem.Type {
	case ProblemInstanceNotFound:
		return fmt.Errorf("%w: %w", ErrInstanceNotFound, remote)
	case ProblemOperationNotFound:
		return fmt.Errorf("%w: %w", ErrOperationNotFound, remote)
	default:
		return remote
	}
}
