// Package transport holds the chat-agnostic event shapes exchanged with the
// messaging gateway and the senders that deliver outbound messages.
package transport

import "shopbot/internal/domain"

// Kind of inbound event
type Kind string

const (
	KindText     Kind = "text"
	KindAction   Kind = "action"
	KindMedia    Kind = "media"
	KindContact  Kind = "contact"
	KindLocation Kind = "location"
)

// Inbound event from a chat user
type Inbound struct {
	SenderID int64            `json:"sender_id" binding:"required"`
	Kind     Kind             `json:"kind" binding:"required"`
	Text     string           `json:"text,omitempty"`
	Action   string           `json:"action,omitempty"`
	MediaRef string           `json:"media_ref,omitempty"`
	Phone    string           `json:"phone,omitempty"`
	Location *domain.GeoPoint `json:"location,omitempty"`
}

// Button labeled trigger; Data is sent back as Inbound.Action when pressed.
type Button struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// Outbound message to a chat user
type Outbound struct {
	RecipientID int64      `json:"recipient_id"`
	Text        string     `json:"text"`
	Actions     [][]Button `json:"actions,omitempty"`
	Media       string     `json:"media,omitempty"`
}

func (k Kind) Valid() bool {
	switch k {
	case KindText, KindAction, KindMedia, KindContact, KindLocation:
		return true
	}
	return false
}
