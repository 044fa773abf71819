package messaging

// PushEvent asks the pusher to deliver Text to the chat user To. When Date
// (YYYY-MM-DD) is set, the subscription (To, Date) is removed after delivery.
type PushEvent struct {
	To   string `json:"to"`
	Text string `json:"text"`
	Date string `json:"date,omitempty"`
}
