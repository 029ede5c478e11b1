package push

// Kind identifies which of the two recognized push events a payload carries.
type Kind int

const (
	KindMessage Kind = iota + 1
	KindFollowerAdded
)

// Wire actions for the recognized kinds. Anything else is ignored.
const (
	ActionMessageReceived = "push.MESSAGE_RECEIVED"
	ActionFollowerAdded   = "push.FOLLOWER_ADDED"
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindFollowerAdded:
		return "follower_added"
	default:
		return "unknown"
	}
}

// KindForAction maps a wire action to its Kind.
func KindForAction(action string) (Kind, bool) {
	switch action {
	case ActionMessageReceived:
		return KindMessage, true
	case ActionFollowerAdded:
		return KindFollowerAdded, true
	default:
		return 0, false
	}
}

// RawEvent is a push delivery as handed over by the transport.
// Data is the serialized JSON payload; Channel names the intended recipient
// and is only meaningful for message events.
type RawEvent struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
	Data    string `json:"data"`
}

// MessageType is the chat message kind carried by a message event.
type MessageType int

const (
	MessageTypeText MessageType = iota
	MessageTypeLocation
	MessageTypeImage
)

// MessagePayload is a decoded message event.
type MessagePayload struct {
	EntityID       string
	ThreadEntityID string
	SenderEntityID string
	// Date is the message timestamp in epoch milliseconds.
	Date int64
	Type MessageType
	Body string
	// Content is the rendered alert text; it may be empty.
	Content string
}

// FollowerPayload is a decoded follower-added event.
type FollowerPayload struct {
	Content string
}

// Event is a decoded push event. Exactly one of Message and Follower is
// set, matching Kind.
type Event struct {
	Kind     Kind
	Channel  string
	Message  *MessagePayload
	Follower *FollowerPayload
}
