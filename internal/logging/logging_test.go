package logging_test

import (
	"testing"

	"i4.energy/across/smscore/internal/logging"
)

func TestNewDefaultsToInfo(t *testing.T) {
	l, err := logging.New("")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if l == nil {
		t.Fatal("New() returned nil logger")
	}
}

func TestNewRejectsInvalidLevel(t *testing.T) {
	if _, err := logging.New("not-a-level"); err == nil {
		t.Fatal("New() error = nil, want error for invalid level")
	}
}
