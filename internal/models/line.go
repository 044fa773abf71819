package models

const (
	EventTypeMessage   = "message"
	MessageTypeText    = "text"
	ActionTypeMessage  = "message"
	QuickReplyItemType = "action"
)

// WebhookPayload is the body the chat platform posts to the webhook.
type WebhookPayload struct {
	Events []WebhookEvent `json:"events"`
}

type WebhookEvent struct {
	Type       string `json:"type"`
	ReplyToken string `json:"replyToken"`
	Source     struct {
		UserID string `json:"userId"`
	} `json:"source"`
	Message struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"message"`
}

// Inbound flattens the event into the fields the bot acts on.
func (e WebhookEvent) Inbound() InboundEvent {
	return InboundEvent{
		EventType:    e.Type,
		MessageType:  e.Message.Type,
		SubscriberID: e.Source.UserID,
		Text:         e.Message.Text,
		ReplyToken:   e.ReplyToken,
	}
}

type InboundEvent struct {
	EventType    string
	MessageType  string
	SubscriberID string
	Text         string
	ReplyToken   string
}

// IsText reports whether the event is a text message, the only kind the bot answers.
func (e InboundEvent) IsText() bool {
	return e.EventType == EventTypeMessage && e.MessageType == MessageTypeText
}

type TextMessage struct {
	Type       string      `json:"type"`
	Text       string      `json:"text"`
	QuickReply *QuickReply `json:"quickReply,omitempty"`
}

func NewTextMessage(text string, qr *QuickReply) TextMessage {
	return TextMessage{Type: MessageTypeText, Text: text, QuickReply: qr}
}

type QuickReply struct {
	Items []QuickReplyItem `json:"items"`
}

type QuickReplyItem struct {
	Type   string           `json:"type"`
	Action QuickReplyAction `json:"action"`
}

type QuickReplyAction struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Add appends a message action button that sends text when tapped.
func (q *QuickReply) Add(label, text string) {
	q.Items = append(q.Items, QuickReplyItem{
		Type: QuickReplyItemType,
		Action: QuickReplyAction{
			Type:  ActionTypeMessage,
			Label: label,
			Text:  text,
		},
	})
}

type ReplyRequest struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []TextMessage `json:"messages"`
}

type PushRequest struct {
	To       string        `json:"to"`
	Messages []TextMessage `json:"messages"`
}
