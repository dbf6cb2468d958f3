package entity

import "time"

// Presence records the connection state of one client for the surrounding
// library application: which clients are online, in which group, from
// which address, and when they were last seen.
type Presence struct {
	ClientID    string    `bson:"_id" json:"clientId"`
	Group       string    `bson:"group,omitempty" json:"group,omitempty"`
	RemoteAddr  string    `bson:"remoteAddr" json:"remoteAddr"`
	Online      bool      `bson:"online" json:"online"`
	ConnectedAt time.Time `bson:"connectedAt" json:"connectedAt"`
	LastSeenAt  time.Time `bson:"lastSeenAt" json:"lastSeenAt"`
}
