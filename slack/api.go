// Package slack is the chat surface of the monitor: it posts notifications
// with interactive buttons and decodes the commands and button clicks that
// come back.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultBaseURL = "https://slack.com/api"

// Client talks to the Slack Web API with a bot token.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

func NewClient(token string) *Client {
	return &Client{
		token:   token,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL points the client at another API root.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// PostMessage sends msg to msg.Channel.
func (c *Client) PostMessage(ctx context.Context, msg Message) error {
	b, err := json.Marshal(msg.payload())
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat.postMessage", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	b, err = io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chat.postMessage: unexpected status %d", resp.StatusCode)
	}

	var r apiResponse
	if err := json.Unmarshal(b, &r); err != nil {
		return fmt.Errorf("chat.postMessage: %w", err)
	}

	if !r.OK {
		return fmt.Errorf("chat.postMessage: %s", r.Error)
	}

	logrus.Debugf("Posted message to %s", msg.Channel)

	return nil
}

// Respond replies to an interaction through its response_url.
func (c *Client) Respond(ctx context.Context, responseURL string, msg Message) error {
	b, err := json.Marshal(msg.payload())
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, responseURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("response_url: unexpected status %d", resp.StatusCode)
	}

	return nil
}

// WriteResponse answers a slash command inline.
func WriteResponse(w http.ResponseWriter, msg Message) {
	b, err := json.Marshal(msg.payload())
	if err != nil {
		logrus.Errorf("Could not encode response: %s", err)

		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(b)
}
