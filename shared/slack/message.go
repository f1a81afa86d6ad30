package slack

// SectionKind identifies what a section of the review message carries.
type SectionKind string

const (
	SectionHeader            SectionKind = "header"
	SectionDateRange         SectionKind = "date_range"
	SectionSummary           SectionKind = "summary"
	SectionStatusHistogram   SectionKind = "status_histogram"
	SectionOverdueAlert      SectionKind = "overdue_alert"
	SectionUpcomingDeadlines SectionKind = "upcoming_deadlines"
	SectionCommentary        SectionKind = "commentary"
)

// Section is one ordered part of a message. Text is mrkdwn except for the
// header, which is plain text.
type Section struct {
	Kind SectionKind
	Text string
}

// Message is the transport-agnostic form of a chat message: a plain-text
// fallback plus ordered sections.
type Message struct {
	Text     string
	Sections []Section
}

// Payload is the Slack incoming-webhook body.
type Payload struct {
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks"`
}

type Block struct {
	Type string      `json:"type"`
	Text *TextObject `json:"text,omitempty"`
}

type TextObject struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// Payload renders the message as Slack blocks.
func (m Message) Payload() Payload {
	blocks := make([]Block, 0, len(m.Sections))
	for _, s := range m.Sections {
		if s.Kind == SectionHeader {
			blocks = append(blocks, Block{
				Type: "header",
				Text: &TextObject{Type: "plain_text", Text: s.Text, Emoji: true},
			})
			continue
		}
		blocks = append(blocks, Block{
			Type: "section",
			Text: &TextObject{Type: "mrkdwn", Text: s.Text},
		})
	}
	return Payload{Text: m.Text, Blocks: blocks}
}
