package entity

import "github.com/mbeoliero/inbox/pkg/chatsync"

// Message represents an immutable chat message
type Message struct {
	Id             string `json:"id" gorm:"column:id;primaryKey;size:64"`
	ConversationId string `json:"conversation_id" gorm:"column:conversation_id;size:64;index:idx_conv_created,priority:1"`
	SenderId       string `json:"sender_id" gorm:"column:sender_id;size:64;uniqueIndex:uk_sender_client_msg"`
	ClientMsgId    string `json:"client_msg_id" gorm:"column:client_msg_id;size:64;uniqueIndex:uk_sender_client_msg"`
	Content        string `json:"content" gorm:"column:content;type:text"`
	CreatedAt      int64  `json:"created_at" gorm:"column:created_at;index:idx_conv_created,priority:2"`
}

// TableName returns the table name for Message
func (Message) TableName() string {
	return "messages"
}

// ToMessageInfo converts to the wire row shared with sync clients
func (m *Message) ToMessageInfo() *chatsync.Message {
	return &chatsync.Message{
		Id:             m.Id,
		ConversationId: m.ConversationId,
		SenderId:       m.SenderId,
		Content:        m.Content,
		ClientMsgId:    m.ClientMsgId,
		CreatedAt:      m.CreatedAt,
	}
}
