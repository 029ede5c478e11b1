package push

// Destination is the screen a notification leads to.
type Destination string

const (
	DestinationLogin          Destination = "login"
	DestinationMainWithThread Destination = "main_with_thread"
	DestinationMain           Destination = "main"
)

// Notification ids; a newer notification of the same kind replaces the older one.
const (
	MessageNotificationID  = 1001
	FollowerNotificationID = 1002
)

// SessionState is whether the device session is authenticated.
type SessionState int

const (
	Unauthenticated SessionState = iota
	Authenticated
)

// Navigator maps a destination to the host's screen identifier.
type Navigator interface {
	Target(d Destination) string
}

// StaticNavigator is a Navigator backed by a fixed table. Destinations
// missing from the table map to their own name.
type StaticNavigator map[Destination]string

// Target implements Navigator.
func (n StaticNavigator) Target(d Destination) string {
	if t, ok := n[d]; ok && t != "" {
		return t
	}
	return string(d)
}

// Texts are the notification titles and tickers per kind.
type Texts struct {
	MessageTitle   string
	MessageTicker  string
	FollowerTitle  string
	FollowerTicker string
}

// Notification is the user-facing alert to present.
type Notification struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Ticker string `json:"ticker"`
	Body   string `json:"body"`
}

// ThreadParams open a specific thread; only set for DestinationMainWithThread.
type ThreadParams struct {
	ThreadID       int64  `json:"thread_id"`
	ThreadEntityID string `json:"thread_entity_id"`
	FromPush       bool   `json:"from_push"`
	// Timestamp is the message date in epoch milliseconds.
	Timestamp int64 `json:"msg_timestamp"`
}

// RoutingDecision is where to send the user and what to show them.
type RoutingDecision struct {
	Kind         Kind          `json:"-"`
	Destination  Destination   `json:"destination"`
	Target       string        `json:"target"`
	Params       *ThreadParams `json:"params,omitempty"`
	Notification Notification  `json:"notification"`
}

// Router turns a decoded event and its materialization into a decision.
type Router struct {
	texts Texts
	nav   Navigator
}

// NewRouter creates a Router. A nil navigator maps destinations to their names.
func NewRouter(texts Texts, nav Navigator) *Router {
	if nav == nil {
		nav = StaticNavigator{}
	}
	return &Router{texts: texts, nav: nav}
}

// Route returns the decision for ev, or nil when nothing should be shown.
//
// Follower events always lead to the main screen. Message events that were
// duplicates produce nothing. Otherwise an unauthenticated session is sent to
// login, and an authenticated one to the thread when the message was stored
// or to the main screen when its references could not be resolved.
func (r *Router) Route(ev Event, m Materialization, state SessionState) *RoutingDecision {
	switch ev.Kind {
	case KindFollowerAdded:
		if ev.Follower == nil {
			return nil
		}
		return r.decide(ev.Kind, DestinationMain, nil, Notification{
			ID:     FollowerNotificationID,
			Title:  r.texts.FollowerTitle,
			Ticker: r.texts.FollowerTicker,
			Body:   ev.Follower.Content,
		})

	case KindMessage:
		if ev.Message == nil {
			return nil
		}
		if m.Outcome != OutcomeCreated && m.Outcome != OutcomeRejected {
			return nil
		}

		body := ev.Message.Content
		if body == "" {
			body = ev.Message.Body
		}
		n := Notification{
			ID:     MessageNotificationID,
			Title:  r.texts.MessageTitle,
			Ticker: r.texts.MessageTicker,
			Body:   body,
		}

		if state != Authenticated {
			return r.decide(ev.Kind, DestinationLogin, nil, n)
		}
		if m.Outcome == OutcomeRejected || m.Thread == nil || m.Message == nil {
			return r.decide(ev.Kind, DestinationMain, nil, n)
		}
		return r.decide(ev.Kind, DestinationMainWithThread, &ThreadParams{
			ThreadID:       m.Thread.ID,
			ThreadEntityID: m.Thread.EntityID,
			FromPush:       true,
			Timestamp:      m.Message.Date.UnixMilli(),
		}, n)
	}

	return nil
}

func (r *Router) decide(kind Kind, d Destination, params *ThreadParams, n Notification) *RoutingDecision {
	return &RoutingDecision{
		Kind:         kind,
		Destination:  d,
		Target:       r.nav.Target(d),
		Params:       params,
		Notification: n,
	}
}
