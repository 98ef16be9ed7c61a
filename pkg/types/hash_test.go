package types

import (
	"strings"
	"testing"
)

func TestHash_String(t *testing.T) {
	var h Hash
	s := h.String()
	if len(s) != 64 {
		t.Errorf("String() length = %d, want 64", len(s))
	}
	if s != strings.Repeat("0", 64) {
		t.Errorf("zero hash String() = %s, want all zeros", s)
	}

	h[0] = 0xab
	h[31] = 0xcd
	s = h.String()
	if !strings.HasPrefix(s, "ab") {
		t.Errorf("String() should start with 'ab', got %s", s[:2])
	}
	if !strings.HasSuffix(s, "cd") {
		t.Errorf("String() should end with 'cd', got %s", s[62:])
	}
}

func TestHash_Bytes(t *testing.T) {
	h := Hash{0x01, 0x02, 0x03}
	b := h.Bytes()

	if len(b) != HashSize {
		t.Errorf("Bytes() length = %d, want %d", len(b), HashSize)
	}
	if b[0] != 0x01 || b[1] != 0x02 || b[2] != 0x03 {
		t.Errorf("Bytes() content mismatch")
	}

	// Ensure it's a copy, not a reference
	b[0] = 0xFF
	if h[0] == 0xFF {
		t.Error("Bytes() should return a copy, not a reference")
	}
}

func TestHexToHash(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:  "valid 64 hex chars",
			input: "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262",
		},
		{
			name:  "all zeros",
			input: strings.Repeat("0", 64),
		},
		{
			name:    "too short",
			input:   "abcd",
			wantErr: true,
		},
		{
			name:    "too long",
			input:   strings.Repeat("a", 66),
			wantErr: true,
		},
		{
			name:    "invalid hex character",
			input:   strings.Repeat("g", 64),
			wantErr: true,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := HexToHash(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("HexToHash(%q) should have returned error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("HexToHash(%q) unexpected error: %v", tt.input, err)
			}
			// Roundtrip check
			if h.String() != tt.input {
				t.Errorf("roundtrip: got %s, want %s", h.String(), tt.input)
			}
		})
	}
}

func TestHash_HasZeroPrefix(t *testing.T) {
	tests := []struct {
		name    string
		hash    Hash
		nibbles int
		want    bool
	}{
		{"zero hash any length", Hash{}, 64, true},
		{"no prefix required", Hash{0xff}, 0, true},
		{"two zero bytes, four nibbles", Hash{0x00, 0x00, 0x12}, 4, true},
		{"odd nibble count, high nibble zero", Hash{0x00, 0x0f}, 3, true},
		{"odd nibble count, high nibble set", Hash{0x00, 0x10}, 3, false},
		{"second byte non-zero", Hash{0x00, 0x01}, 4, false},
		{"negative", Hash{}, -1, false},
		{"too long", Hash{}, 65, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.hash.HasZeroPrefix(tt.nibbles); got != tt.want {
				t.Fatalf("HasZeroPrefix(%d) = %v, want %v", tt.nibbles, got, tt.want)
			}
			if tt.nibbles >= 0 && tt.nibbles <= 64 {
				hexPrefix := strings.HasPrefix(tt.hash.String(), strings.Repeat("0", tt.nibbles))
				if hexPrefix != tt.want {
					t.Fatalf("hex prefix check = %v, HasZeroPrefix = %v", hexPrefix, tt.want)
				}
			}
		})
	}
}
