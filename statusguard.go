package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"github.com/lagren/statusguard/monitor"
	"github.com/lagren/statusguard/persistence"
	"github.com/lagren/statusguard/slack"
	"github.com/sirupsen/logrus"
)

type responder interface {
	Respond(ctx context.Context, responseURL string, msg slack.Message) error
}

// statusBot maps slash commands and button clicks onto engine operations.
type statusBot struct {
	engine    *monitor.Engine
	responder responder
	channelID string

	pending sync.WaitGroup
}

// interactionTimeout bounds the work done for one button click, reply
// included.
const interactionTimeout = 30 * time.Second

func (b *statusBot) router(signingKey string) *mux.Router {
	r := mux.NewRouter()

	s := r.PathPrefix("/slack").Subrouter()
	s.Use(slack.AuthCheck(signingKey))
	s.HandleFunc("/commands", b.commandHandler).Methods(http.MethodPost)
	s.HandleFunc("/interactions", b.interactionHandler).Methods(http.MethodPost)

	return r
}

func (b *statusBot) commandHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cmd, err := slack.ParseCommand(r)
	if err != nil {
		logrus.Warnf("Could not parse command: %s", err)

		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if cmd.ChannelID != b.channelID {
		slack.WriteResponse(w, slack.Reply("This command can only be used in the specified channel."))
		return
	}

	logrus.WithField("user", cmd.UserName).Infof("Command %q", cmd.Name)

	switch cmd.Name {
	case "set":
		slack.WriteResponse(w, slack.StatusMenu(b.engine.Statuses().Names()))
	case "setm":
		slack.WriteResponse(w, slack.MaintenanceMenu(b.engine.Statuses().Names()))
	case "cycle":
		added, err := b.engine.Cycle(ctx)
		if err != nil {
			logrus.Errorf("Could not cycle statistics: %s", err)
			slack.WriteResponse(w, slack.Reply("Could not cycle statistics: %s", err))

			return
		}

		text := "All entries in config are already in statistics."
		if len(added) > 0 {
			text = "Added missing entries to statistics: " + strings.Join(added, ", ")
		}
		slack.WriteResponse(w, slack.Message{Text: text})
	case "status":
		stats, err := b.engine.Statistics(ctx)
		if err != nil {
			logrus.Errorf("Could not read statistics: %s", err)
			slack.WriteResponse(w, slack.Reply("Could not read statistics: %s", err))

			return
		}

		slack.WriteResponse(w, slack.Reply("%s", statusReport(b.engine.Statuses().Names(), stats, b.engine.Statuses())))
	default:
		slack.WriteResponse(w, slack.Reply("Usage: `set` | `setm` | `cycle` | `status`"))
	}
}

func (b *statusBot) interactionHandler(w http.ResponseWriter, r *http.Request) {
	interaction, err := slack.ParseInteraction(r)
	if err != nil {
		logrus.Warnf("Could not parse interaction: %s", err)

		w.WriteHeader(http.StatusBadRequest)
		return
	}

	actionID, value := interaction.Action()

	logrus.WithFields(logrus.Fields{
		"user":   interaction.User.Username,
		"action": actionID,
		"value":  value,
	}).Infof("Interaction")

	// Slack wants the acknowledgement within 3s; the answer goes to response_url
	w.WriteHeader(http.StatusOK)

	b.pending.Add(1)
	go func() {
		defer b.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
		defer cancel()

		reply, err := b.dispatch(ctx, actionID, value)
		if err != nil {
			logrus.Warnf("Could not execute %s for %s: %s", actionID, value, err)
			reply = slack.Reply("Could not process request: %s", err)
		}

		if err := b.responder.Respond(ctx, interaction.ResponseURL, reply); err != nil {
			logrus.Errorf("Could not respond to interaction: %s", err)
		}
	}()
}

// Wait blocks until every acknowledged interaction has been answered.
func (b *statusBot) Wait() {
	b.pending.Wait()
}

func (b *statusBot) dispatch(ctx context.Context, actionID, value string) (slack.Message, error) {
	switch actionID {
	case slack.ActionAcknowledge:
		if err := b.engine.Acknowledge(ctx, value); err != nil {
			return slack.Message{}, err
		}
		return slack.Reply("Acknowledged: %s", value), nil
	case slack.ActionAllGood:
		if err := b.engine.MarkAllGood(ctx, value); err != nil {
			return slack.Message{}, err
		}
		return slack.Reply("All good: %s", value), nil
	case slack.ActionPublish:
		return slack.StatusMenu(b.engine.Statuses().Names()), nil
	case slack.ActionPickService:
		return slack.StatusPicker(value), nil
	case slack.ActionSetStatus:
		service, status, err := slack.ParseStatusValue(value)
		if err != nil {
			return slack.Message{}, err
		}
		if err := b.engine.SetStatus(ctx, service, status); err != nil {
			return slack.Message{}, err
		}
		return slack.Reply("Status for %s set to %s", service, status), nil
	case slack.ActionPickMaintenance:
		return slack.MaintenanceToggle(value), nil
	case slack.ActionMaintenanceOn, slack.ActionMaintenanceOff:
		on := actionID == slack.ActionMaintenanceOn
		if err := b.engine.SetMaintenance(ctx, value, on); err != nil {
			return slack.Message{}, err
		}

		state := "OFF"
		if on {
			state = "ON"
		}
		return slack.Reply("Maintenance for %s is now %s.", value, state), nil
	default:
		return slack.Message{}, fmt.Errorf("unsupported action %q", actionID)
	}
}

// statusReport lists the persisted status of every service. live adds the
// current probe verdict and maintenance flag when the monitor is running.
func statusReport(names []string, stats persistence.Statistics, live *monitor.StatusStore) string {
	lines := make([]string, 0, len(names))

	for _, name := range names {
		line := fmt.Sprintf("• *%s*: ", name)

		if rec, ok := stats[name]; ok {
			line += fmt.Sprintf("%s (%s)", rec.Status, humanize.Time(rec.Timestamp))
		} else {
			line += "no status recorded"
		}

		if live != nil {
			if st, ok := live.Snapshot(name); ok {
				if st.Up {
					line += ", up"
				} else {
					line += ", down"
				}
				if st.Pending {
					line += ", pending resolution"
				}
				if st.Maintenance {
					line += ", in maintenance"
				}
			}
		}

		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}
