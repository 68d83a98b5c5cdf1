package slack

import (
	"fmt"
	"strings"

	"github.com/lagren/statusguard/monitor"
	"github.com/lagren/statusguard/persistence"
)

// Action IDs carried by the buttons this package renders.
const (
	ActionAcknowledge     = "ack"
	ActionAllGood         = "all_good"
	ActionPublish         = "publish"
	ActionPickService     = "pick_service"
	ActionSetStatus       = "set_status"
	ActionPickMaintenance = "pick_maintenance"
	ActionMaintenanceOn   = "maintenance_on"
	ActionMaintenanceOff  = "maintenance_off"
)

var downButtons = map[monitor.Action]struct {
	label, actionID, style string
}{
	monitor.ActionAcknowledge: {"Acknowledge", ActionAcknowledge, StylePrimary},
	monitor.ActionAllGood:     {"All good!", ActionAllGood, ""},
	monitor.ActionPublish:     {"Publish", ActionPublish, StyleDanger},
}

// RemediationButtons renders the actions offered with an outage.
func RemediationButtons(service string, actions []monitor.Action) []Block {
	buttons := make([]Button, 0, len(actions))
	for _, a := range actions {
		b, ok := downButtons[a]
		if !ok {
			continue
		}
		buttons = append(buttons, NewButton(b.label, b.actionID, service, b.style))
	}
	return Actions(buttons...)
}

// StatusMenu lets the operator pick a service to publish a status for.
func StatusMenu(services []string) Message {
	return serviceMenu("Choose a monitor and status:", ActionPickService, services)
}

// MaintenanceMenu lets the operator pick a service to toggle maintenance on.
func MaintenanceMenu(services []string) Message {
	return serviceMenu("Choose a monitor to set maintenance status:", ActionPickMaintenance, services)
}

func serviceMenu(prompt, actionID string, services []string) Message {
	buttons := make([]Button, 0, len(services))
	for _, name := range services {
		buttons = append(buttons, NewButton(name, actionID, name, ""))
	}

	return Message{Text: prompt, Blocks: Actions(buttons...), Ephemeral: true}
}

// StatusPicker offers every publishable status for service.
func StatusPicker(service string) Message {
	buttons := make([]Button, 0, len(persistence.PublishableStatuses))
	for _, status := range persistence.PublishableStatuses {
		buttons = append(buttons, NewButton(string(status), ActionSetStatus, StatusValue(service, status), ""))
	}

	return Message{
		Text:      fmt.Sprintf("Choose the status for %s:", service),
		Blocks:    Actions(buttons...),
		Ephemeral: true,
	}
}

func MaintenanceToggle(service string) Message {
	return Message{
		Text: fmt.Sprintf("Set maintenance status for %s: on or off?", service),
		Blocks: Actions(
			NewButton("On", ActionMaintenanceOn, service, StylePrimary),
			NewButton("Off", ActionMaintenanceOff, service, StyleDanger),
		),
		Ephemeral: true,
	}
}

// StatusValue packs a service and a status into one button value.
func StatusValue(service string, status persistence.Status) string {
	return service + "|" + string(status)
}

// ParseStatusValue reverses StatusValue.
func ParseStatusValue(v string) (string, persistence.Status, error) {
	i := strings.LastIndex(v, "|")
	if i < 0 {
		return "", "", fmt.Errorf("malformed status value %q", v)
	}
	return v[:i], persistence.Status(v[i+1:]), nil
}

// Reply is a short ephemeral answer to an operator.
func Reply(format string, args ...interface{}) Message {
	return Message{Text: fmt.Sprintf(format, args...), Ephemeral: true}
}
