package gateway

import "encoding/json"

// WSRequest represents a WebSocket request message
type WSRequest struct {
	ReqIdentifier int32           `json:"req_identifier"` // Request type
	MsgIncr       string          `json:"msg_incr"`       // Client message counter/trace Id
	OperationId   string          `json:"operation_id"`   // Operation Id
	SendId        string          `json:"send_id"`        // Sender user Id
	Data          json.RawMessage `json:"data"`           // Business data
}

// WSResponse represents a WebSocket response or push message
type WSResponse struct {
	ReqIdentifier int32           `json:"req_identifier"`         // Request type (echo back)
	MsgIncr       string          `json:"msg_incr,omitempty"`     // Message counter (echo back)
	OperationId   string          `json:"operation_id,omitempty"` // Operation Id (echo back)
	ErrCode       int             `json:"err_code"`               // Error code, 0 = success
	ErrMsg        string          `json:"err_msg,omitempty"`      // Error message
	Data          json.RawMessage `json:"data,omitempty"`         // Response data
}

// SendMsgReq represents send message request data
type SendMsgReq struct {
	ConversationId string `json:"conversation_id"`
	Content        string `json:"content"`
	ClientMsgId    string `json:"client_msg_id"`
}

// PullMsgReq represents pull messages request data
type PullMsgReq struct {
	ConversationId string `json:"conversation_id"`
	Before         int64  `json:"before"`
	Limit          int    `json:"limit"`
}

// MarkReadReq represents read cursor request data
type MarkReadReq struct {
	ConversationId string `json:"conversation_id"`
	ReadAt         int64  `json:"read_at"`
}

// ListNotifsReq represents list notifications request data
type ListNotifsReq struct {
	Limit int `json:"limit"`
}
