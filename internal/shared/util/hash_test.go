package util

import "testing"

func TestHashOwnerKey(t *testing.T) {
	id := "EMP-0042"
	got := HashOwnerKey(id)
	if got != HashOwnerKey(id) {
		t.Fatalf("expected stable hash, got %s", got)
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("hash contains non-hex character: %c", ch)
		}
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(got))
	}
	if got == HashOwnerKey("EMP-0043") {
		t.Fatalf("different ids must hash differently")
	}
}
