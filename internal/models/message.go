package models

import (
	"time"
)

// MessageStatus represents the status of a message
type MessageStatus string

const (
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
)

// Message represents a message between users
type Message struct {
	BaseModel
	SenderID   string        `gorm:"size:36;index" json:"senderId"`
	ReceiverID string        `gorm:"size:36;index:idx_receiver_status" json:"receiverId"`
	ParentID   string        `gorm:"size:36;index" json:"parentId,omitempty"`
	Content    string        `gorm:"type:text" json:"content"`
	Subject    string        `gorm:"type:text" json:"subject"`
	Status     MessageStatus `gorm:"size:20;default:'sent';index:idx_receiver_status" json:"status"`
	ReadAt     *time.Time    `json:"readAt,omitempty"`

	Sender   *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Receiver *User `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
}

// IsUnread reports whether the receiver has not opened the message yet.
func (m *Message) IsUnread() bool {
	return m.Status != MessageStatusRead
}
