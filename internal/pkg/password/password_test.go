package password

import (
	"strings"
	"testing"
)

func TestHashVerify_RoundTrip(t *testing.T) {
	digest, err := Hash("secretpw")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if digest == "secretpw" {
		t.Fatalf("digest must not equal plaintext")
	}
	if !Verify("secretpw", digest) {
		t.Fatalf("expected verify to succeed for matching password")
	}
}

func TestVerify_Mismatch(t *testing.T) {
	digest, err := Hash("secretpw")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if Verify("wrongpw", digest) {
		t.Fatalf("expected verify to fail for wrong password")
	}
	if Verify("", digest) {
		t.Fatalf("expected verify to fail for empty password")
	}
}

func TestVerify_InvalidDigest(t *testing.T) {
	if Verify("secretpw", "not-a-bcrypt-digest") {
		t.Fatalf("expected verify to fail for malformed digest")
	}
}

func TestHash_SaltedPerCall(t *testing.T) {
	first, err := Hash("secretpw")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := Hash("secretpw")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct digests for the same password")
	}
	if !strings.HasPrefix(first, "$2a$10$") {
		t.Fatalf("expected cost 10 digest, got %q", first)
	}
}
