package utils

import (
	"strings"
	"testing"
)

func TestCompressTextRoundTrip(t *testing.T) {
	long := strings.Repeat("chunk text with plenty of repetition ", 50)

	data, compressed, err := CompressText(long)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !compressed {
		t.Fatalf("text above the floor should be compressed")
	}
	if len(data) >= len(long) {
		t.Errorf("compressed size %d not smaller than input %d", len(data), len(long))
	}

	restored, err := DecompressText(data, compressed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if restored != long {
		t.Errorf("round trip mismatch")
	}
}

func TestCompressTextShortStaysRaw(t *testing.T) {
	short := "tiny chunk"

	data, compressed, err := CompressText(short)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if compressed {
		t.Errorf("short text should not be compressed")
	}

	restored, err := DecompressText(data, compressed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if restored != short {
		t.Errorf("round trip mismatch: %q", restored)
	}
}

func TestHashTextStable(t *testing.T) {
	a := HashText("same input")
	b := HashText("same input")
	c := HashText("different input")
	if a != b {
		t.Errorf("hash not deterministic")
	}
	if a == c {
		t.Errorf("different inputs should not collide")
	}
	if len(a) != 64 {
		t.Errorf("expected hex sha-256 digest, got length %d", len(a))
	}
}
