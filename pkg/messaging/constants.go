package messaging

const (
	ExchangeName   = "notifications"
	PushRoutingKey = "push"
	PushQueueName  = "push_queue"
)
