package tools

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRejectsUnknownProperties(t *testing.T) {
	schema := &Schema{Props: map[string]Prop{
		"url": {Type: TypeString, Required: true, Format: FormatURL},
	}}

	result := schema.Validate(map[string]interface{}{
		"url":     "https://example.com",
		"extra":   "nope",
		"another": 1,
	})
	require.False(t, result.Valid)
	assert.Len(t, result.Errors, 2)
	for _, fe := range result.Errors {
		assert.Equal(t, "unknown property", fe.Message)
	}
}

func TestValidateRequiredAndTypes(t *testing.T) {
	schema := &Schema{Props: map[string]Prop{
		"selector": {Type: TypeString, Required: true, Format: FormatSelector},
		"timeout":  {Type: TypeNumber, Min: floatPtr(0), Max: floatPtr(60000)},
		"clear":    {Type: TypeBool},
	}}

	tests := []struct {
		name    string
		params  map[string]interface{}
		wantErr string
	}{
		{
			name:    "missing required",
			params:  map[string]interface{}{},
			wantErr: "required property missing",
		},
		{
			name:    "wrong type for string",
			params:  map[string]interface{}{"selector": 42},
			wantErr: "expected string",
		},
		{
			name:    "wrong type for bool",
			params:  map[string]interface{}{"selector": "#x", "clear": "yes"},
			wantErr: "expected boolean",
		},
		{
			name:    "number below minimum",
			params:  map[string]interface{}{"selector": "#x", "timeout": float64(-1)},
			wantErr: "must be >=",
		},
		{
			name:    "number above maximum",
			params:  map[string]interface{}{"selector": "#x", "timeout": float64(90000)},
			wantErr: "must be <=",
		},
		{
			name:    "empty required string",
			params:  map[string]interface{}{"selector": "   "},
			wantErr: "must not be empty",
		},
		{
			name:   "valid full set",
			params: map[string]interface{}{"selector": "#main .btn", "timeout": float64(5000), "clear": true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := schema.Validate(tt.params)
			if tt.wantErr == "" {
				assert.True(t, result.Valid, "errors: %v", result.Errors)
				return
			}
			require.False(t, result.Valid)
			found := false
			for _, fe := range result.Errors {
				if strings.Contains(fe.Message, tt.wantErr) {
					found = true
				}
			}
			assert.True(t, found, "expected %q in %v", tt.wantErr, result.Errors)
		})
	}
}

func TestValidateRejectsMaliciousPayloads(t *testing.T) {
	schema := &Schema{Props: map[string]Prop{
		"url":      {Type: TypeString, Format: FormatURL, MaxLen: 2048},
		"selector": {Type: TypeString, Format: FormatSelector, MaxLen: 1024},
		"name":     {Type: TypeString, Sanitized: true, MaxLen: 256},
	}}

	payloads := []map[string]interface{}{
		{"url": "javascript:alert(1)"},
		{"url": "file:///etc/passwd"},
		{"url": "data:text/html,<script>alert(1)</script>"},
		{"selector": "<script>alert(1)</script>"},
		{"selector": "div[onclick=`x`]"},
		{"selector": "../../etc/passwd"},
		{"name": "a'; DROP TABLE tools--"},
		{"name": "' OR '1'='1"},
		{"name": "<script src=x>"},
		{"name": "..\\..\\windows\\system32"},
		{"selector": strings.Repeat("a", 5000)},
	}
	for _, params := range payloads {
		result := schema.Validate(params)
		assert.False(t, result.Valid, "payload should be rejected: %v", params)
	}
}

func TestValidateEnum(t *testing.T) {
	schema := &Schema{Props: map[string]Prop{
		"level": {Type: TypeString, Enum: []string{"log", "warn", "error"}},
	}}

	assert.True(t, schema.Validate(map[string]interface{}{"level": "warn"}).Valid)
	assert.False(t, schema.Validate(map[string]interface{}{"level": "debug"}).Valid)
}

func TestNilSchemaAcceptsOnlyEmptyParams(t *testing.T) {
	var schema *Schema
	assert.True(t, schema.Validate(nil).Valid)
	assert.True(t, schema.Validate(map[string]interface{}{}).Valid)
	assert.False(t, schema.Validate(map[string]interface{}{"x": 1}).Valid)
}
