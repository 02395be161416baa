package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ResponseSchema is the JSON document every provider must produce.
const ResponseSchema = `{
  "type": "object",
  "required": ["fields"],
  "properties": {
    "fields": {
      "type": "object",
      "additionalProperties": {"type": ["string", "number", "boolean", "null"]}
    },
    "confidence": {"type": ["number", "null"]},
    "issues": {"type": "array", "items": {"type": "string"}},
    "rejected": {"type": "boolean"},
    "reason": {"type": "string"}
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func responseSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("extraction.json", strings.NewReader(ResponseSchema)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("extraction.json")
	})
	return compiledSchema, schemaErr
}

type wireResult struct {
	Fields     map[string]any `json:"fields"`
	Confidence *float64       `json:"confidence"`
	Issues     []string       `json:"issues"`
	Rejected   bool           `json:"rejected"`
	Reason     string         `json:"reason"`
}

// Parse validates raw provider output and converts it to a Result. Schema
// violations are transient; an explicit rejection flag becomes ErrRejected.
func Parse(raw []byte) (Result, error) {
	raw = bytes.TrimSpace(stripCodeFence(raw))
	schema, err := responseSchema()
	if err != nil {
		return Result{}, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Result{}, fmt.Errorf("%w: invalid json: %v", ErrUnavailable, err)
	}
	if err := schema.Validate(doc); err != nil {
		return Result{}, fmt.Errorf("%w: response does not match schema: %v", ErrUnavailable, err)
	}

	var wire wireResult
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Result{}, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if wire.Rejected {
		reason := strings.TrimSpace(wire.Reason)
		if reason == "" {
			reason = "document unreadable"
		}
		return Result{}, Reject(reason)
	}
	return normalize(wire), nil
}

func normalize(wire wireResult) Result {
	out := Result{Fields: make(map[string]string, len(wire.Fields))}

	keys := make([]string, 0, len(wire.Fields))
	for key := range wire.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	// Canonical names win over aliases that map onto them.
	var aliased []string
	for _, key := range keys {
		base := snakeCase(key)
		if _, ok := keyAliases[base]; ok {
			aliased = append(aliased, key)
			continue
		}
		if text := stringify(wire.Fields[key]); base != "" && text != "" {
			out.Fields[base] = text
		}
	}
	for _, key := range aliased {
		name := keyAliases[snakeCase(key)]
		if _, exists := out.Fields[name]; exists {
			continue
		}
		if text := stringify(wire.Fields[key]); text != "" {
			out.Fields[name] = text
		}
	}

	if wire.Confidence != nil {
		out.Confidence = clamp01(*wire.Confidence)
	}

	seen := make(map[string]struct{}, len(wire.Issues))
	out.Issues = []string{}
	for _, issue := range wire.Issues {
		issue = strings.TrimSpace(issue)
		if issue == "" {
			continue
		}
		if _, dup := seen[issue]; dup {
			continue
		}
		seen[issue] = struct{}{}
		out.Issues = append(out.Issues, issue)
	}
	return out
}

var keyAliases = map[string]string{
	"full_name":      "name",
	"date_of_birth":  "dob",
	"birth_date":     "dob",
	"aadhaar":        "aadhaar_number",
	"aadhaar_no":     "aadhaar_number",
	"aadhar_number":  "aadhaar_number",
	"uid":            "aadhaar_number",
	"pan":            "pan_number",
	"pan_no":         "pan_number",
	"email_address":  "email",
	"phone_number":   "phone",
	"mobile":         "phone",
	"mobile_number":  "phone",
	"contact_number": "phone",
}

// NormalizeKey lower-snake-cases a provider field name and maps known aliases.
func NormalizeKey(key string) string {
	name := snakeCase(key)
	if alias, ok := keyAliases[name]; ok {
		return alias
	}
	return name
}

func snakeCase(key string) string {
	key = strings.TrimSpace(key)
	var b strings.Builder
	prevUnderscore := true
	runes := []rune(key)
	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			if !prevUnderscore && i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
				b.WriteRune('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevUnderscore = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevUnderscore = false
		default:
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func stripCodeFence(raw []byte) []byte {
	trimmed := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(trimmed, []byte("```")) {
		return raw
	}
	trimmed = bytes.TrimPrefix(trimmed, []byte("```json"))
	trimmed = bytes.TrimPrefix(trimmed, []byte("```"))
	trimmed = bytes.TrimSuffix(bytes.TrimSpace(trimmed), []byte("```"))
	return trimmed
}
