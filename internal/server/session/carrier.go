// Package session moves the raw refresh secret between client and server.
// Carriers treat the secret as an opaque string; validating it is the
// services' job.
package session

import "github.com/dmitrijs2005/authkeeper/internal/server/tokens"

// Carrier is bound to a single request/response exchange.
type Carrier interface {
	// Set hands raw to the client.
	Set(raw tokens.RawSecret) error
	// Read returns the secret the client presented, if any.
	Read() (tokens.RawSecret, bool)
	// Clear tells the client to forget its secret.
	Clear() error
}
