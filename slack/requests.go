package slack

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Command is a slash command invocation.
type Command struct {
	ChannelID   string
	UserName    string
	Name        string
	Args        []string
	ResponseURL string
}

func ParseCommand(r *http.Request) (*Command, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("could not parse command: %w", err)
	}

	tokens := strings.Fields(r.PostForm.Get("text"))

	c := &Command{
		ChannelID:   r.PostForm.Get("channel_id"),
		UserName:    r.PostForm.Get("user_name"),
		ResponseURL: r.PostForm.Get("response_url"),
	}

	if len(tokens) > 0 {
		c.Name = strings.ToLower(tokens[0])
		c.Args = tokens[1:]
	}

	return c, nil
}

// Interaction is a block_actions payload sent when an operator clicks a
// button.
type Interaction struct {
	Type string `json:"type"`
	User struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
	Channel struct {
		ID string `json:"id"`
	} `json:"channel"`
	ResponseURL string `json:"response_url"`
	Actions     []struct {
		ActionID string `json:"action_id"`
		Value    string `json:"value"`
	} `json:"actions"`
}

func ParseInteraction(r *http.Request) (*Interaction, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("could not parse interaction: %w", err)
	}

	payload := r.PostForm.Get("payload")
	if payload == "" {
		return nil, fmt.Errorf("interaction without payload")
	}

	var i Interaction
	if err := json.Unmarshal([]byte(payload), &i); err != nil {
		return nil, fmt.Errorf("could not decode interaction: %w", err)
	}

	if len(i.Actions) == 0 {
		return nil, fmt.Errorf("interaction without actions")
	}

	return &i, nil
}

// Action returns the clicked button.
func (i *Interaction) Action() (actionID, value string) {
	return i.Actions[0].ActionID, i.Actions[0].Value
}
