package slack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/lagren/statusguard/monitor"
	"github.com/lagren/statusguard/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	path    string
	auth    string
	payload map[string]interface{}
}

func fakeSlack(t *testing.T, reply string) (*httptest.Server, *[]captured) {
	t.Helper()

	var calls []captured

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		c := captured{path: r.URL.Path, auth: r.Header.Get("Authorization")}
		require.NoError(t, json.Unmarshal(b, &c.payload))
		calls = append(calls, c)

		io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)

	return srv, &calls
}

func TestPublisher(t *testing.T) {
	ctx := context.Background()

	t.Run("service_down", func(t *testing.T) {
		srv, calls := fakeSlack(t, `{"ok": true}`)
		p := NewPublisher(NewClient("xoxb-1").WithBaseURL(srv.URL), "C123")

		err := p.Publish(ctx, monitor.Event{Kind: monitor.ServiceDown, Service: "api", Actions: monitor.DownActions})
		require.NoError(t, err)

		require.Len(t, *calls, 1)
		c := (*calls)[0]
		assert.Equal(t, "/chat.postMessage", c.path)
		assert.Equal(t, "Bearer xoxb-1", c.auth)
		assert.Equal(t, "C123", c.payload["channel"])
		assert.Equal(t, "*api is offline!*", c.payload["text"])

		attachments := c.payload["attachments"].([]interface{})
		att := attachments[0].(map[string]interface{})
		assert.Equal(t, ColorRed, att["color"])

		blocks := att["blocks"].([]interface{})
		require.Len(t, blocks, 2)
		actions := blocks[1].(map[string]interface{})["elements"].([]interface{})
		require.Len(t, actions, 3)

		ids := []string{}
		for _, a := range actions {
			button := a.(map[string]interface{})
			assert.Equal(t, "api", button["value"])
			ids = append(ids, button["action_id"].(string))
		}
		assert.Equal(t, []string{ActionAcknowledge, ActionAllGood, ActionPublish}, ids)
	})

	t.Run("slack_error", func(t *testing.T) {
		srv, _ := fakeSlack(t, `{"ok": false, "error": "channel_not_found"}`)
		p := NewPublisher(NewClient("xoxb-1").WithBaseURL(srv.URL), "C404")

		err := p.Publish(ctx, monitor.Event{Kind: monitor.AutoPublished, Service: "api"})
		assert.ErrorContains(t, err, "channel_not_found")
	})

	t.Run("unknown_kind", func(t *testing.T) {
		p := NewPublisher(NewClient("xoxb-1"), "C1")

		assert.Error(t, p.Publish(ctx, monitor.Event{Kind: "exploded", Service: "api"}))
	})
}

func TestEventMessage(t *testing.T) {
	at := time.Unix(1700000000, 0)

	msg, err := EventMessage(monitor.Event{Kind: monitor.ServiceRecovered, Service: "db", At: at, Downtime: 3 * time.Minute})
	require.NoError(t, err)
	assert.Equal(t, "*db is back online!*", msg.Text)
	assert.Equal(t, ColorGreen, msg.Color)
	require.Len(t, msg.Blocks, 1)
	assert.Equal(t, Text{Type: "mrkdwn", Text: "Offline for 3 minutes"}, msg.Blocks[0].Elements[0])

	msg, err = EventMessage(monitor.Event{Kind: monitor.AutoPublished, Service: "db", At: at})
	require.NoError(t, err)
	assert.Equal(t, "*Automatically published: db is potentially degraded*", msg.Text)
	assert.Equal(t, ColorOrange, msg.Color)
}

func TestRespond(t *testing.T) {
	srv, calls := fakeSlack(t, "ok")

	err := NewClient("xoxb-1").Respond(context.Background(), srv.URL+"/actions/T1/1/abc", StatusPicker("api"))
	require.NoError(t, err)

	c := (*calls)[0]
	assert.Equal(t, "ephemeral", c.payload["response_type"])
	assert.Equal(t, false, c.payload["replace_original"])
	assert.Empty(t, c.auth)

	blocks := c.payload["blocks"].([]interface{})
	buttons := blocks[1].(map[string]interface{})["elements"].([]interface{})
	assert.Len(t, buttons, len(persistence.PublishableStatuses))
}

func TestMenus(t *testing.T) {
	names := make([]string, 30)
	for i := range names {
		names[i] = "svc" + strings.Repeat("x", i)
	}

	msg := StatusMenu(names)
	require.Len(t, msg.Blocks, 2)
	assert.Len(t, msg.Blocks[0].Elements, 25)
	assert.Len(t, msg.Blocks[1].Elements, 5)

	service, status, err := ParseStatusValue(StatusValue("a|b", persistence.FullOutage))
	require.NoError(t, err)
	assert.Equal(t, "a|b", service)
	assert.Equal(t, persistence.FullOutage, status)

	_, _, err = ParseStatusValue("nope")
	assert.Error(t, err)

	toggle := MaintenanceToggle("api")
	assert.Equal(t, "Set maintenance status for api: on or off?", toggle.Text)
	assert.True(t, toggle.Ephemeral)
}

func TestParseRequests(t *testing.T) {
	t.Run("command", func(t *testing.T) {
		form := url.Values{"channel_id": {"C1"}, "text": {"  Cycle now "}, "user_name": {"roadrunner"}}
		r := httptest.NewRequest(http.MethodPost, "/slack/commands", strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		c, err := ParseCommand(r)
		require.NoError(t, err)
		assert.Equal(t, "C1", c.ChannelID)
		assert.Equal(t, "cycle", c.Name)
		assert.Equal(t, []string{"now"}, c.Args)
	})

	t.Run("interaction", func(t *testing.T) {
		payload := `{"type":"block_actions","user":{"id":"U1","username":"roadrunner"},"channel":{"id":"C1"},"response_url":"https://hooks.slack.com/actions/1","actions":[{"action_id":"ack","value":"api"}]}`
		form := url.Values{"payload": {payload}}
		r := httptest.NewRequest(http.MethodPost, "/slack/interactions", strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		i, err := ParseInteraction(r)
		require.NoError(t, err)
		assert.Equal(t, "C1", i.Channel.ID)
		assert.Equal(t, "roadrunner", i.User.Username)

		id, value := i.Action()
		assert.Equal(t, ActionAcknowledge, id)
		assert.Equal(t, "api", value)
	})

	t.Run("interaction_without_payload", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/slack/interactions", strings.NewReader(""))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		_, err := ParseInteraction(r)
		assert.Error(t, err)
	})
}
