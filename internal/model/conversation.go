package model

import (
	"time"
)

type Conversation struct {
	ID              string          `db:"id" json:"id"`
	ContactName     string          `db:"contact_name" json:"contactName"`
	LastMessage     string          `db:"last_message" json:"lastMessage"`
	Timestamp       time.Time       `db:"timestamp" json:"timestamp"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	LeadStatus      LeadStatus      `db:"lead_status" json:"leadStatus"`
	LeadTemperature LeadTemperature `db:"lead_temperature" json:"leadTemperature"`
	UnreadCount     int             `db:"unread_count" json:"unreadCount"`
}

type CreateConversationParams struct {
	ContactName     string
	LastMessage     string
	LeadStatus      LeadStatus
	LeadTemperature LeadTemperature
	UnreadCount     int
}
