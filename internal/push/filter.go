package push

import "github.com/edgard/pushrouter/internal/session"

// ShouldProcess reports whether an event addressed to channel is meant for
// this process. Without a current identity every event passes, which keeps
// pre-login delivery working. An identity whose channel is not known yet
// accepts nothing; otherwise the channels must match exactly.
func ShouldProcess(channel string, current *session.Identity) bool {
	if current == nil {
		return true
	}
	if current.PushChannel == "" {
		return false
	}
	return current.PushChannel == channel
}
