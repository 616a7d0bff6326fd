package httpapi

import (
	"testing"
	"time"
)

func TestSetMaxBodyBytes_DefaultWhenNonPositive(t *testing.T) {
	SetMaxBodyBytes(-1)
	if maxBodyBytes != defaultMaxBodyBytes {
		t.Fatalf("expected default, got %d", maxBodyBytes)
	}
	SetMaxBodyBytes(1234)
	if maxBodyBytes != 1234 {
		t.Fatalf("expected 1234, got %d", maxBodyBytes)
	}
	SetMaxBodyBytes(0)
	if maxBodyBytes != defaultMaxBodyBytes {
		t.Fatalf("expected default on zero, got %d", maxBodyBytes)
	}
}

func TestSetCallTimeout_NormalizesNegativeToZero(t *testing.T) {
	SetCallTimeout(-time.Second)
	if callTimeout != 0 {
		t.Fatalf("expected 0, got %v", callTimeout)
	}
	SetCallTimeout(3 * time.Second)
	defer SetCallTimeout(0)
	if callTimeout != 3*time.Second {
		t.Fatalf("expected 3s, got %v", callTimeout)
	}
}
