package slack

// Button styles.
const (
	StylePrimary = "primary"
	StyleDanger  = "danger"
)

// Attachment colors of notifications.
const (
	ColorGreen  = "#2eb67d"
	ColorRed    = "#e01e5a"
	ColorOrange = "#ecb22e"
)

type Text struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type Button struct {
	Type     string `json:"type"`
	Text     Text   `json:"text"`
	ActionID string `json:"action_id"`
	Value    string `json:"value,omitempty"`
	Style    string `json:"style,omitempty"`
}

// Block is a Block Kit layout block. Elements holds buttons for actions
// blocks and texts for context blocks.
type Block struct {
	Type     string        `json:"type"`
	Text     *Text         `json:"text,omitempty"`
	Elements []interface{} `json:"elements,omitempty"`
}

// Message is what gets posted to a channel or sent back to an operator.
// Ephemeral messages are only visible to the operator who triggered them.
type Message struct {
	Channel   string
	Text      string
	Color     string
	Blocks    []Block
	Ephemeral bool
}

type attachment struct {
	Color  string  `json:"color"`
	Blocks []Block `json:"blocks"`
}

func (m Message) payload() map[string]interface{} {
	p := map[string]interface{}{
		"text": m.Text,
	}

	if m.Channel != "" {
		p["channel"] = m.Channel
	}

	blocks := append([]Block{Section(m.Text)}, m.Blocks...)

	if m.Color != "" {
		p["attachments"] = []attachment{{Color: m.Color, Blocks: blocks}}
	} else {
		p["blocks"] = blocks
	}

	if m.Ephemeral {
		p["response_type"] = "ephemeral"
		p["replace_original"] = false
	} else {
		p["response_type"] = "in_channel"
	}

	return p
}

func Section(text string) Block {
	return Block{Type: "section", Text: &Text{Type: "mrkdwn", Text: text}}
}

func Context(text string) Block {
	return Block{Type: "context", Elements: []interface{}{Text{Type: "mrkdwn", Text: text}}}
}

func NewButton(label, actionID, value, style string) Button {
	return Button{
		Type:     "button",
		Text:     Text{Type: "plain_text", Text: label, Emoji: true},
		ActionID: actionID,
		Value:    value,
		Style:    style,
	}
}

// Actions lays buttons out in one row. Slack allows at most 25 per block, so
// longer lists are split over several blocks.
func Actions(buttons ...Button) []Block {
	const perBlock = 25

	var blocks []Block
	for len(buttons) > 0 {
		n := len(buttons)
		if n > perBlock {
			n = perBlock
		}

		elements := make([]interface{}, 0, n)
		for _, b := range buttons[:n] {
			elements = append(elements, b)
		}

		blocks = append(blocks, Block{Type: "actions", Elements: elements})
		buttons = buttons[n:]
	}

	return blocks
}
