// Package doctypes is the closed table of onboarding document types: which
// fields each type must yield and which extracted fields are sensitive.
package doctypes

import (
	"sort"
	"strings"
)

// Type identifies an onboarding document kind.
type Type string

const (
	Aadhaar     Type = "aadhaar"
	PAN         Type = "pan"
	Resume      Type = "resume"
	OfferLetter Type = "offer_letter"
	PFForm      Type = "pf_form"
	Photo       Type = "photo"
)

// All lists every supported type in display order.
var All = []Type{Aadhaar, PAN, Resume, OfferLetter, PFForm, Photo}

// MaskKind selects the redaction rule for a field.
type MaskKind int

const (
	MaskNone MaskKind = iota
	MaskAadhaar
	MaskPAN
	MaskEmail
	MaskPhone
)

// Canonical extracted field names.
const (
	FieldName          = "name"
	FieldDOB           = "dob"
	FieldAadhaarNumber = "aadhaar_number"
	FieldPANNumber     = "pan_number"
	FieldEmail         = "email"
	FieldPhone         = "phone"
)

// Rules describes how a document type is checked and displayed.
type Rules struct {
	Label          string
	RequiredFields []string
	Masks          map[string]MaskKind
}

// Parse normalizes a raw document type.
func Parse(raw string) (Type, bool) {
	t := Type(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := t.Rules(); !ok {
		return "", false
	}
	return t, true
}

// Rules returns the table entry for t.
func (t Type) Rules() (Rules, bool) {
	switch t {
	case Aadhaar:
		return Rules{
			Label:          "Aadhaar card",
			RequiredFields: []string{FieldName, FieldAadhaarNumber, FieldDOB},
			Masks:          map[string]MaskKind{FieldAadhaarNumber: MaskAadhaar, FieldPhone: MaskPhone},
		}, true
	case PAN:
		return Rules{
			Label:          "PAN card",
			RequiredFields: []string{FieldName, FieldPANNumber},
			Masks:          map[string]MaskKind{FieldPANNumber: MaskPAN},
		}, true
	case Resume:
		return Rules{
			Label:          "Resume",
			RequiredFields: []string{FieldName},
			Masks:          map[string]MaskKind{FieldEmail: MaskEmail, FieldPhone: MaskPhone},
		}, true
	case OfferLetter:
		return Rules{
			Label:          "Offer letter",
			RequiredFields: []string{FieldName},
			Masks:          map[string]MaskKind{FieldEmail: MaskEmail, FieldPhone: MaskPhone},
		}, true
	case PFForm:
		return Rules{
			Label:          "PF form",
			RequiredFields: []string{FieldName},
			Masks: map[string]MaskKind{
				FieldAadhaarNumber: MaskAadhaar,
				FieldPANNumber:     MaskPAN,
				FieldEmail:         MaskEmail,
				FieldPhone:         MaskPhone,
			},
		}, true
	case Photo:
		return Rules{Label: "Photo"}, true
	default:
		return Rules{}, false
	}
}

// Valid reports whether t is a supported type.
func (t Type) Valid() bool {
	_, ok := t.Rules()
	return ok
}

// Required returns a copy of the required field names for t.
func (t Type) Required() []string {
	rules, _ := t.Rules()
	out := make([]string, len(rules.RequiredFields))
	copy(out, rules.RequiredFields)
	return out
}

// Mask returns the redaction rule for field on documents of type t.
func (t Type) Mask(field string) MaskKind {
	rules, ok := t.Rules()
	if !ok {
		return MaskNone
	}
	return rules.Masks[field]
}

// MissingFields returns the required fields absent or blank in fields, sorted.
func (t Type) MissingFields(fields map[string]string) []string {
	missing := []string{}
	for _, name := range t.Required() {
		if strings.TrimSpace(fields[name]) == "" {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// RequiredTypeCount is the number of document types an employee must complete.
func RequiredTypeCount() int {
	return len(All)
}
