package database

import "time"

// HandledMessage records an inbound message id so redelivered webhook calls
// are processed once.
type HandledMessage struct {
	MessageID string    `db:"message_id"`
	GroupID   string    `db:"group_id"`
	SenderID  string    `db:"sender_id"`
	HandledAt time.Time `db:"handled_at"`
}

// Award is a post that won a scheduled meme award.
type Award struct {
	ID         int64     `db:"id"`
	Window     string    `db:"time_window"`
	MessageID  string    `db:"message_id"`
	AuthorName string    `db:"author_name"`
	Text       string    `db:"text"`
	Likes      int       `db:"likes"`
	AwardedAt  time.Time `db:"awarded_at"`
}
