package sdk

import "time"

// WebSocket identifiers understood by the realtime endpoint
const (
	WSPushChange = 2001 // Server push of a row change
)

const sdkTypeGo = "go"

// Realtime defaults
const (
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 30 * time.Second
	// DefaultPongWait must exceed the server ping period
	DefaultPongWait = 60 * time.Second
)
