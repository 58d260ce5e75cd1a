package domain

import "time"

// Rating is a thumbs up/down on an assistant reply
type Rating string

const (
	RatingUp   Rating = "up"
	RatingDown Rating = "down"
)

// Feedback is one user's rating of one assistant reply.
type Feedback struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	MessageID      string    `json:"message_id,omitempty"`
	Rating         Rating    `json:"rating"`
	Comment        string    `json:"comment,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// FeedbackSummary aggregates a user's ratings.
type FeedbackSummary struct {
	Up     int         `json:"up"`
	Down   int         `json:"down"`
	Recent []*Feedback `json:"recent,omitempty"`
}
