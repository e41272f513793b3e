package util

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestGenerateAnonymousTokenFormat(t *testing.T) {
	tok, err := GenerateAnonymousToken()
	if err != nil {
		t.Fatalf("GenerateAnonymousToken returned error: %v", err)
	}
	parsed, err := uuid.Parse(tok)
	if err != nil {
		t.Fatalf("token %q is not a valid UUID: %v", tok, err)
	}
	if parsed.Version() != 4 {
		t.Fatalf("token version = %d, want 4", parsed.Version())
	}
}

func TestGenerateAnonymousTokenUniqueness(t *testing.T) {
	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		tok, err := GenerateAnonymousToken()
		if err != nil {
			t.Fatalf("GenerateAnonymousToken returned error: %v", err)
		}
		if seen[tok] {
			t.Fatalf("duplicate token generated: %q", tok)
		}
		seen[tok] = true
	}
}

func TestGenerateAnonymousTokenEntropyFailure(t *testing.T) {
	uuid.SetRand(failingReader{})
	defer uuid.SetRand(nil)

	_, err := GenerateAnonymousToken()
	if !errors.Is(err, ErrEntropyUnavailable) {
		t.Fatalf("err = %v, want ErrEntropyUnavailable", err)
	}
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("entropy exhausted")
}
