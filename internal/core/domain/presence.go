package domain

import "fmt"

type ChannelKind string

const (
	ChannelStream       ChannelKind = "stream"
	ChannelTournament   ChannelKind = "tournament"
	ChannelNotification ChannelKind = "notification"
)

var ChannelKinds = []ChannelKind{ChannelStream, ChannelTournament, ChannelNotification}

func (k ChannelKind) Valid() bool {
	switch k {
	case ChannelStream, ChannelTournament, ChannelNotification:
		return true
	}
	return false
}

// ChannelKey names one presence room. Notification rooms are keyed by user id.
type ChannelKey struct {
	Kind ChannelKind
	ID   string
}

func (k ChannelKey) String() string {
	return fmt.Sprintf("%s:%s", k.Kind, k.ID)
}

// PresenceStats is a point-in-time view of the registry.
type PresenceStats struct {
	Channels    map[ChannelKind]int `json:"channels"`
	Connections map[ChannelKind]int `json:"connections"`
}
