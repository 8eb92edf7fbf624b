// Package domain contains the answer collection entities.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// AnswerSession groups the answers of one respondent to one form. It is
// anonymous: the session id travels in a cookie, not a user account.
type AnswerSession struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	FormID      snowflake.ID  `gorm:"column:form_id;not null;index" json:"form_id"`
	Submitted   bool          `gorm:"not null;default:false" json:"submitted"`
	SubmittedAt *time.Time    `gorm:"column:submitted_at" json:"submitted_at"`
	Answers     []FieldAnswer `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"answers"`
	CreatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (AnswerSession) TableName() string {
	return "answer_sessions"
}

// FieldAnswer holds one value for one field within a session. A session
// carries at most one answer per field.
type FieldAnswer struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	SessionID snowflake.ID `gorm:"column:session_id;not null;uniqueIndex:idx_answer_session_field" json:"session_id"`
	FieldID   snowflake.ID `gorm:"column:field_id;not null;uniqueIndex:idx_answer_session_field" json:"field_id"`
	Value     *string      `json:"value"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (FieldAnswer) TableName() string {
	return "field_answers"
}
