package entity

import (
	"encoding/json"

	"github.com/mbeoliero/inbox/pkg/chatsync"
)

// Notification types
const (
	NotificationTypeOrderStatus = "order_status"
	NotificationTypeInquiry     = "inquiry"
	NotificationTypeSystem      = "system"
)

// Notification represents a system notification owned by one user
type Notification struct {
	Id        string  `json:"id" gorm:"column:id;primaryKey;size:64"`
	OwnerId   string  `json:"owner_id" gorm:"column:owner_id;size:64;index:idx_owner_created,priority:1"`
	Type      string  `json:"type" gorm:"column:type;size:32"`
	Title     string  `json:"title" gorm:"column:title;size:255"`
	Body      string  `json:"body" gorm:"column:body;type:text"`
	IsRead    bool    `json:"is_read" gorm:"column:is_read"`
	Link      *string `json:"link" gorm:"column:link;type:json"`
	CreatedAt int64   `json:"created_at" gorm:"column:created_at;index:idx_owner_created,priority:2"`
	UpdatedAt int64   `json:"updated_at" gorm:"column:updated_at"`
}

// TableName returns the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}

// SetLink stores a deep-link payload as JSON
func (n *Notification) SetLink(link map[string]string) error {
	if len(link) == 0 {
		n.Link = nil
		return nil
	}
	b, err := json.Marshal(link)
	if err != nil {
		return err
	}
	s := string(b)
	n.Link = &s
	return nil
}

// ToNotificationInfo converts to the wire row shared with sync clients.
// An unparsable link is dropped.
func (n *Notification) ToNotificationInfo() *chatsync.Notification {
	info := &chatsync.Notification{
		Id:        n.Id,
		OwnerId:   n.OwnerId,
		Type:      n.Type,
		Title:     n.Title,
		Body:      n.Body,
		Read:      n.IsRead,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
	if n.Link != nil && *n.Link != "" {
		var link map[string]string
		if err := json.Unmarshal([]byte(*n.Link), &link); err == nil {
			info.Link = link
		}
	}
	return info
}
