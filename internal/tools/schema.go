package tools

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// PropType is the JSON type a schema property accepts.
type PropType string

const (
	TypeString PropType = "string"
	TypeNumber PropType = "number"
	TypeBool   PropType = "boolean"
)

// Format applies type-specific validation beyond the raw JSON type.
type Format string

const (
	FormatNone     Format = ""
	FormatURL      Format = "url"
	FormatSelector Format = "selector"
)

// Prop describes one schema property.
type Prop struct {
	Type        PropType
	Required    bool
	Description string
	MaxLen      int
	Min         *float64
	Max         *float64
	Enum        []string
	Format      Format
	// Sanitized string props additionally reject common injection
	// payloads. Off for free-form fields like scripts and typed text.
	Sanitized bool
}

// Schema validates tool parameters. Unknown properties are rejected
// outright rather than silently dropped.
type Schema struct {
	Props map[string]Prop
}

// FieldError locates one validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult collects every failure in a single pass so callers
// see the full list at once.
type ValidationResult struct {
	Valid  bool
	Errors []FieldError
}

func (v *ValidationResult) addError(field, message string) {
	v.Valid = false
	v.Errors = append(v.Errors, FieldError{Field: field, Message: message})
}

// suspiciousFragments are rejected in sanitized string properties. The
// list targets markup and traversal payloads that have no business in a
// selector or identifier.
var suspiciousFragments = []string{
	"<script",
	"</script",
	"javascript:",
	"data:text/html",
	"../",
	"..\\",
	"' or '",
	"\" or \"",
	"; drop table",
	"\x00",
}

// Validate checks params against the schema. A nil schema accepts only
// an empty parameter set.
func (s *Schema) Validate(params map[string]interface{}) ValidationResult {
	result := ValidationResult{Valid: true}

	var props map[string]Prop
	if s != nil {
		props = s.Props
	}

	for key := range params {
		if _, ok := props[key]; !ok {
			result.addError(key, "unknown property")
		}
	}
	for name, prop := range props {
		value, present := params[name]
		if !present || value == nil {
			if prop.Required {
				result.addError(name, "required property missing")
			}
			continue
		}
		s.validateValue(name, prop, value, &result)
	}
	return result
}

func (s *Schema) validateValue(name string, prop Prop, value interface{}, result *ValidationResult) {
	switch prop.Type {
	case TypeString:
		str, ok := value.(string)
		if !ok {
			result.addError(name, "expected string")
			return
		}
		s.validateString(name, prop, str, result)
	case TypeNumber:
		num, ok := value.(float64)
		if !ok {
			// encoding/json delivers all numbers as float64; ints come
			// from in-process callers.
			if n, isInt := value.(int); isInt {
				num, ok = float64(n), true
			}
		}
		if !ok {
			result.addError(name, "expected number")
			return
		}
		if prop.Min != nil && num < *prop.Min {
			result.addError(name, fmt.Sprintf("must be >= %v", *prop.Min))
		}
		if prop.Max != nil && num > *prop.Max {
			result.addError(name, fmt.Sprintf("must be <= %v", *prop.Max))
		}
	case TypeBool:
		if _, ok := value.(bool); !ok {
			result.addError(name, "expected boolean")
		}
	default:
		result.addError(name, "unsupported property type")
	}
}

func (s *Schema) validateString(name string, prop Prop, value string, result *ValidationResult) {
	if prop.Required && strings.TrimSpace(value) == "" {
		result.addError(name, "must not be empty")
		return
	}
	if prop.MaxLen > 0 && len(value) > prop.MaxLen {
		result.addError(name, fmt.Sprintf("exceeds maximum length %d", prop.MaxLen))
		return
	}
	if len(prop.Enum) > 0 {
		found := false
		for _, allowed := range prop.Enum {
			if value == allowed {
				found = true
				break
			}
		}
		if !found {
			result.addError(name, "not an allowed value")
			return
		}
	}
	switch prop.Format {
	case FormatURL:
		if err := validateURL(value); err != nil {
			result.addError(name, err.Error())
			return
		}
	case FormatSelector:
		if err := validateSelector(value); err != nil {
			result.addError(name, err.Error())
			return
		}
	}
	if prop.Sanitized && containsSuspiciousPayload(value) {
		result.addError(name, "contains disallowed content")
	}
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("not a valid url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("url missing host")
	}
	return nil
}

var selectorDisallowed = regexp.MustCompile("[<>`\x00]")

func validateSelector(sel string) error {
	if selectorDisallowed.MatchString(sel) {
		return fmt.Errorf("selector contains disallowed characters")
	}
	if containsSuspiciousPayload(sel) {
		return fmt.Errorf("selector contains disallowed content")
	}
	return nil
}

func containsSuspiciousPayload(value string) bool {
	lowered := strings.ToLower(value)
	for _, fragment := range suspiciousFragments {
		if strings.Contains(lowered, fragment) {
			return true
		}
	}
	return false
}

func floatPtr(f float64) *float64 {
	return &f
}
