package extraction

import (
	"fmt"
	"sort"
	"strings"

	"onboarding-backend/internal/doctypes"
)

// Prompt returns the instruction text LLM providers send with a document.
func Prompt(t doctypes.Type) string {
	rules, _ := t.Rules()
	fields := append([]string(nil), rules.RequiredFields...)
	for name := range rules.Masks {
		if !contains(fields, name) {
			fields = append(fields, name)
		}
	}
	sort.Strings(fields[len(rules.RequiredFields):])

	var b strings.Builder
	fmt.Fprintf(&b, "You read an employee onboarding document of type %q (%s).\n", string(t), rules.Label)
	b.WriteString("Return only a JSON object with keys: fields, confidence, issues, rejected, reason.\n")
	b.WriteString("- fields: object of snake_case field name to string value as printed on the document.\n")
	if len(fields) > 0 {
		fmt.Fprintf(&b, "  Extract at least: %s. Omit a field you cannot read; never guess.\n", strings.Join(fields, ", "))
	} else {
		b.WriteString("  No fields are required for this type; return an empty object unless a name is visible.\n")
	}
	b.WriteString("  Dates as YYYY-MM-DD.\n")
	b.WriteString("- confidence: number between 0 and 1 for the whole extraction.\n")
	b.WriteString("- issues: short human readable problems, e.g. \"blurry image\", \"number invalid\".\n")
	b.WriteString("- rejected: true only if the document is unreadable or not this document type; set reason.\n")
	return b.String()
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
