package validator

import (
	"errors"
	"testing"

	formdomain "github.com/quillform/quillform/internal/form/domain"
	"github.com/quillform/quillform/internal/response/domain"
)

func strptr(s string) *string { return &s }

func TestValidate(t *testing.T) {
	v := Provide()

	cases := []struct {
		name  string
		field formdomain.FormField
		value *string
		ok    bool
	}{
		{"required missing", formdomain.FormField{Label: "a", FieldType: formdomain.FieldText, Required: true}, nil, false},
		{"required empty", formdomain.FormField{Label: "a", FieldType: formdomain.FieldText, Required: true}, strptr(""), false},
		{"optional text", formdomain.FormField{Label: "a", FieldType: formdomain.FieldText}, strptr("hello"), true},
		{"boolean yes", formdomain.FormField{Label: "a", FieldType: formdomain.FieldBoolean}, strptr("1"), true},
		{"boolean junk", formdomain.FormField{Label: "a", FieldType: formdomain.FieldBoolean}, strptr("yes"), false},
		{"select member", formdomain.FormField{Label: "a", FieldType: formdomain.FieldSelect, PossibleAnswers: strptr(`red\green\blue`)}, strptr("green"), true},
		{"select stranger", formdomain.FormField{Label: "a", FieldType: formdomain.FieldSelect, PossibleAnswers: strptr(`red\green\blue`)}, strptr("mauve"), false},
		{"multiselect members", formdomain.FormField{Label: "a", FieldType: formdomain.FieldMultiselect, PossibleAnswers: strptr(`red\green\blue`)}, strptr("red,blue"), true},
		{"multiselect stranger", formdomain.FormField{Label: "a", FieldType: formdomain.FieldMultiselect, PossibleAnswers: strptr(`red\green\blue`)}, strptr("red,mauve"), false},
		{"numerical in bounds", formdomain.FormField{Label: "a", FieldType: formdomain.FieldNumerical, NumberBounds: strptr("1:10")}, strptr("7"), true},
		{"numerical out of bounds", formdomain.FormField{Label: "a", FieldType: formdomain.FieldNumerical, NumberBounds: strptr("1:10")}, strptr("11"), false},
		{"numerical not digits", formdomain.FormField{Label: "a", FieldType: formdomain.FieldNumerical, NumberBounds: strptr("1:10")}, strptr("-3"), false},
		{"numerical no bounds", formdomain.FormField{Label: "a", FieldType: formdomain.FieldNumerical}, strptr("anything"), true},
		{"text bounds ok", formdomain.FormField{Label: "a", FieldType: formdomain.FieldText, TextBounds: strptr("2:5")}, strptr("four"), true},
		{"text too long", formdomain.FormField{Label: "a", FieldType: formdomain.FieldLongText, TextBounds: strptr("2:5")}, strptr("toolong"), false},
		{"email ok", formdomain.FormField{Label: "a", FieldType: formdomain.FieldEmail}, strptr("jo@example.com"), true},
		{"email bad", formdomain.FormField{Label: "a", FieldType: formdomain.FieldEmail}, strptr("not-an-email"), false},
		{"phone ok", formdomain.FormField{Label: "a", FieldType: formdomain.FieldPhone}, strptr("+14155552671"), true},
		{"phone bad", formdomain.FormField{Label: "a", FieldType: formdomain.FieldPhone}, strptr("12345"), false},
		{"date ok", formdomain.FormField{Label: "a", FieldType: formdomain.FieldDate}, strptr("2025-06-01"), true},
		{"date bad", formdomain.FormField{Label: "a", FieldType: formdomain.FieldDate}, strptr("01/06/2025"), false},
		{"url ok", formdomain.FormField{Label: "a", FieldType: formdomain.FieldURL}, strptr("https://example.com/x"), true},
		{"url bad", formdomain.FormField{Label: "a", FieldType: formdomain.FieldURL}, strptr("example"), false},
		{"alpha ok", formdomain.FormField{Label: "a", FieldType: formdomain.FieldAlpha}, strptr("only letters"), true},
		{"alpha bad", formdomain.FormField{Label: "a", FieldType: formdomain.FieldAlpha}, strptr("l3tters"), false},
		{"alphanum ok", formdomain.FormField{Label: "a", FieldType: formdomain.FieldAlphanum}, strptr("room 101"), true},
		{"alphanum bad", formdomain.FormField{Label: "a", FieldType: formdomain.FieldAlphanum}, strptr("room #101"), false},
		{"currency unchecked", formdomain.FormField{Label: "a", FieldType: formdomain.FieldCurrency}, strptr("whatever"), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(&tc.field, tc.value)
			if tc.ok && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.ok {
				if !errors.Is(err, domain.ErrInvalidAnswer) {
					t.Fatalf("expected ErrInvalidAnswer, got %v", err)
				}
			}
		})
	}
}
