package gateway

// WebSocket protocol constants
const (
	// Request identifiers
	WSSendMsg    = 1003 // Send message
	WSPullMsg    = 1005 // Pull a page of messages
	WSMarkRead   = 1006 // Advance read cursor
	WSListConvs  = 1007 // List conversations with read cursors
	WSListNotifs = 1008 // List notifications

	// Response identifiers
	WSPushChange = 2001 // Server push of a row change
	WSDataError  = 3001 // Data error
)

// Query parameter keys
const (
	QueryToken   = "token"
	QuerySDKType = "sdk_type"
)

// SDK types
const (
	SDKTypeGo = "go"
	SDKTypeJS = "js"
)
