package repository

import "testing"

func TestNewBlobIDIsValidAndUnique(t *testing.T) {
	a, b := NewBlobID(), NewBlobID()
	if a == b {
		t.Fatalf("expected distinct ids, got %q twice", a)
	}
	for _, id := range []string{a, b} {
		if err := ValidateBlobID(id); err != nil {
			t.Fatalf("validate %q: %v", id, err)
		}
	}
}

func TestValidateBlobIDRejectsForeignIDs(t *testing.T) {
	for _, id := range []string{"", "bl-", "bl-abc123", "6f1c0a52-2b9c-4f0e-9d53-0d4fbd3a1c11", "xx-6f1c0a52-2b9c-4f0e-9d53-0d4fbd3a1c11"} {
		if err := ValidateBlobID(id); err == nil {
			t.Fatalf("expected %q to be rejected", id)
		}
	}
}
