// Package validator applies the per-field answer rules.
package validator

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	formdomain "github.com/quillform/quillform/internal/form/domain"
	"github.com/nyaruka/phonenumbers"
	"github.com/quillform/quillform/internal/response/domain"
)

var (
	alphaRe    = regexp.MustCompile(`^[a-zA-Z ]+$`)
	alphanumRe = regexp.MustCompile(`^[a-zA-Z0-9 ]+$`)
	digitsRe   = regexp.MustCompile(`^[0-9]+$`)
)

const dateLayout = "2006-01-02"

type validator struct{}

func Provide() domain.Validator {
	return &validator{}
}

func (v *validator) Validate(field *formdomain.FormField, value *string) error {
	raw := ""
	if value != nil {
		raw = *value
	}

	if field.Required && raw == "" {
		return invalid(field)
	}

	switch field.FieldType {
	case formdomain.FieldBoolean:
		if raw != "0" && raw != "1" {
			return invalid(field)
		}
	case formdomain.FieldSelect:
		if !contains(choices(field), raw) {
			return invalid(field)
		}
	case formdomain.FieldMultiselect:
		opts := choices(field)
		for _, part := range strings.Split(raw, ",") {
			if !contains(opts, part) {
				return invalid(field)
			}
		}
	case formdomain.FieldNumerical:
		if field.NumberBounds == nil {
			break
		}
		min, max, err := parseBounds(*field.NumberBounds)
		if err != nil || !digitsRe.MatchString(raw) {
			return invalid(field)
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < min || n > max {
			return invalid(field)
		}
	case formdomain.FieldText, formdomain.FieldLongText:
		if field.TextBounds == nil {
			break
		}
		min, max, err := parseBounds(*field.TextBounds)
		if err != nil || len(raw) < min || len(raw) > max {
			return invalid(field)
		}
	case formdomain.FieldEmail:
		if _, err := mail.ParseAddress(raw); err != nil {
			return invalid(field)
		}
	case formdomain.FieldPhone:
		num, err := phonenumbers.Parse(raw, "")
		if err != nil || !phonenumbers.IsValidNumber(num) {
			return invalid(field)
		}
	case formdomain.FieldDate:
		if _, err := time.Parse(dateLayout, raw); err != nil {
			return invalid(field)
		}
	case formdomain.FieldURL:
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return invalid(field)
		}
	case formdomain.FieldAlpha:
		if !alphaRe.MatchString(raw) {
			return invalid(field)
		}
	case formdomain.FieldAlphanum:
		if !alphanumRe.MatchString(raw) {
			return invalid(field)
		}
	}
	return nil
}

func invalid(field *formdomain.FormField) error {
	return fmt.Errorf("field %q: %w", field.Label, domain.ErrInvalidAnswer)
}

// choices splits the stored possible-answers list on backslashes.
func choices(field *formdomain.FormField) []string {
	if field.PossibleAnswers == nil {
		return nil
	}
	parts := strings.Split(*field.PossibleAnswers, `\`)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func contains(opts []string, value string) bool {
	for _, opt := range opts {
		if opt == value {
			return true
		}
	}
	return false
}

// parseBounds reads a "min:max" pair.
func parseBounds(raw string) (int, int, error) {
	lo, hi, found := strings.Cut(raw, ":")
	if !found {
		return 0, 0, fmt.Errorf("malformed bounds %q", raw)
	}
	min, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, err
	}
	max, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return 0, 0, err
	}
	return min, max, nil
}
