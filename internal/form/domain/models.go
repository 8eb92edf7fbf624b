// Package domain contains the form builder entities.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// FieldType enumerates the supported answer kinds.
type FieldType string

const (
	FieldBoolean     FieldType = "Boolean"
	FieldNumerical   FieldType = "Numerical"
	FieldText        FieldType = "Text"
	FieldLongText    FieldType = "LongText"
	FieldSelect      FieldType = "Select"
	FieldMultiselect FieldType = "Multiselect"
	FieldEmail       FieldType = "Email"
	FieldPhone       FieldType = "Phone"
	FieldCurrency    FieldType = "Currency"
	FieldDate        FieldType = "Date"
	FieldURL         FieldType = "URL"
	FieldAlpha       FieldType = "Alpha"
	FieldAlphanum    FieldType = "Alphanum"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case FieldBoolean, FieldNumerical, FieldText, FieldLongText,
		FieldSelect, FieldMultiselect, FieldEmail, FieldPhone,
		FieldCurrency, FieldDate, FieldURL, FieldAlpha, FieldAlphanum:
		return true
	}
	return false
}

// Choice reports whether the type requires a possible-answers list.
func (t FieldType) Choice() bool {
	return t == FieldSelect || t == FieldMultiselect
}

type Form struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID           snowflake.ID `gorm:"column:user_id;not null;index" json:"user_id"`
	Label            string       `gorm:"not null" json:"label"`
	Description      *string      `json:"description"`
	Open             bool         `gorm:"not null;default:true" json:"open"`
	SubmissionsLimit *int         `gorm:"column:submissions_limit" json:"submissions_limit"`
	Submissions      int          `gorm:"not null;default:0" json:"submissions"`
	Deadline         *time.Time   `json:"deadline"`
	Fields           []FormField  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// AcceptingResponses applies the open flag, deadline and submission cap.
func (f Form) AcceptingResponses(now time.Time) bool {
	if !f.Open {
		return false
	}
	if f.Deadline != nil && !now.Before(*f.Deadline) {
		return false
	}
	if f.SubmissionsLimit != nil && f.Submissions >= *f.SubmissionsLimit {
		return false
	}
	return true
}

// Bounds strings use the min:max form, e.g. "1:5".
type FormField struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	FormID          snowflake.ID `gorm:"column:form_id;not null;index" json:"form_id"`
	Label           string       `gorm:"not null" json:"label"`
	Description     string       `json:"description"`
	Position        int          `gorm:"not null;default:0" json:"position"`
	FieldType       FieldType    `gorm:"column:field_type;not null" json:"field_type"`
	Required        bool         `gorm:"not null;default:true" json:"required"`
	PossibleAnswers *string      `gorm:"column:possible_answers" json:"possible_answers"`
	NumberBounds    *string      `gorm:"column:number_bounds" json:"number_bounds"`
	TextBounds      *string      `gorm:"column:text_bounds" json:"text_bounds"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}
