package errors

import (
	"testing"
)

func TestValidateDepotID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"numeric", "42", false},
		{"alnum", "IST-01", false},
		{"underscore", "depot_7", false},

		{"empty", "", true},
		{"blank", "   ", true},
		{"too long", string(make([]byte, 200)), true},
		{"slash", "a/b", true},
		{"traversal", "..", true},
		{"backslash", "a\\b", true},
		{"control char", "a\x01b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDepotID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDepotID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidDepot) {
				t.Errorf("ValidateDepotID(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidDepot)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"https", "https://api.example.com", false},
		{"http", "http://localhost:7071/api", false},
		{"empty", "", true},
		{"ftp", "ftp://example.com", true},
		{"no scheme", "example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRecordPath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantCode Code
	}{
		{"json", "layout.json", ""},
		{"yaml", "data/layout.yaml", ""},
		{"yml upper", "LAYOUT.YML", ""},
		{"empty", "", ErrCodeInvalidPath},
		{"null byte", "a\x00.json", ErrCodeInvalidPath},
		{"csv", "layout.csv", ErrCodeInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecordPath(tt.input)
			if got := GetCode(err); got != tt.wantCode {
				t.Errorf("ValidateRecordPath(%q) code = %q, want %q", tt.input, got, tt.wantCode)
			}
		})
	}
}
