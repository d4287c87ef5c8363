package entity

import "github.com/mbeoliero/inbox/pkg/chatsync"

// Conversation represents a conversation between a fixed set of participants.
// (participant_key, context_tag) is unique.
type Conversation struct {
	Id             string `json:"id" gorm:"column:id;primaryKey;size:64"`
	ParticipantKey string `json:"participant_key" gorm:"column:participant_key;size:512;uniqueIndex:uk_participants_context"`
	ContextTag     string `json:"context_tag" gorm:"column:context_tag;size:128;uniqueIndex:uk_participants_context"`
	CreatorId      string `json:"creator_id" gorm:"column:creator_id;size:64"`
	Title          string `json:"title" gorm:"column:title;size:255"`
	Preview        string `json:"preview" gorm:"column:preview;size:512"`
	LastActivity   int64  `json:"last_activity" gorm:"column:last_activity;index"`
	Archived       bool   `json:"archived" gorm:"column:archived"`
	CreatedAt      int64  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt      int64  `json:"updated_at" gorm:"column:updated_at"`
}

// TableName returns the table name for Conversation
func (Conversation) TableName() string {
	return "conversations"
}

// ConversationMember is a participant of a conversation with its read cursor
type ConversationMember struct {
	Id             int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	ConversationId string `json:"conversation_id" gorm:"column:conversation_id;size:64;uniqueIndex:uk_conv_user"`
	UserId         string `json:"user_id" gorm:"column:user_id;size:64;uniqueIndex:uk_conv_user;index:idx_user"`
	ReadAt         int64  `json:"read_at" gorm:"column:read_at"`
	CreatedAt      int64  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt      int64  `json:"updated_at" gorm:"column:updated_at"`
}

// TableName returns the table name for ConversationMember
func (ConversationMember) TableName() string {
	return "conversation_members"
}

// ToConversationInfo converts to the wire row shared with sync clients
func (c *Conversation) ToConversationInfo(members []*ConversationMember) *chatsync.Conversation {
	info := &chatsync.Conversation{
		Id:           c.Id,
		Participants: make([]string, 0, len(members)),
		ContextTag:   c.ContextTag,
		Title:        c.Title,
		Preview:      c.Preview,
		LastActivity: c.LastActivity,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		ReadCursors:  make(map[string]int64, len(members)),
	}
	for _, m := range members {
		info.Participants = append(info.Participants, m.UserId)
		if m.ReadAt > 0 {
			info.ReadCursors[m.UserId] = m.ReadAt
		}
	}
	info.Participants = chatsync.NormalizeParticipants(info.Participants)
	return info
}
