package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

func hexToHash(t *testing.T, s string) types.Hash {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex: %v", err)
	}
	var h types.Hash
	copy(h[:], b)
	return h
}

func TestSHA256(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{
			name:  "empty input",
			input: []byte{},
			want:  "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name:  "hello",
			input: []byte("hello"),
			want:  "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		},
		{
			name:  "genesis proof followed by zero",
			input: []byte("1000"),
			want:  "40510175845988f13f6162ed8526f0b09f73384467fa855e1e79b44a56562a58",
		},
		{
			name:  "genesis proof followed by its first solution",
			input: []byte("10035293"),
			want:  "0000c415de5ceea33c02daa85a1c218ecca1b1c9e9864ed34d183597844de8e2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SHA256(tt.input)
			want := hexToHash(t, tt.want)
			if got != want {
				t.Errorf("SHA256(%q) = %x, want %x", tt.input, got, want)
			}
			if hexGot := SHA256Hex(tt.input); hexGot != tt.want {
				t.Errorf("SHA256Hex(%q) = %s, want %s", tt.input, hexGot, tt.want)
			}
		})
	}
}

func TestID(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{
			name:  "empty input",
			input: []byte{},
			want:  "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262",
		},
		{
			name:  "hello",
			input: []byte("hello"),
			want:  "ea8f163db38682925e4491c5e58d4bb3506ef8c14eb78a86e908c5624a67200f",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ID(tt.input)
			want := hexToHash(t, tt.want)
			if got != want {
				t.Errorf("ID(%q) = %x, want %x", tt.input, got, want)
			}
		})
	}
}

func TestSHA256_Deterministic(t *testing.T) {
	data := []byte("deterministic test input")
	if SHA256(data) != SHA256(data) {
		t.Error("SHA256 is not deterministic")
	}
}

func TestID_DiffersFromSHA256(t *testing.T) {
	data := []byte("same input")
	if ID(data) == SHA256(data) {
		t.Error("ID and SHA256 produced the same digest")
	}
}
