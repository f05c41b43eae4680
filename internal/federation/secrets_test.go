package federation

import (
	"bytes"
	"testing"
)

func TestSecretBoxRoundTrip(t *testing.T) {
	box, err := NewSecretBox(bytes.Repeat([]byte{0x42}, 32))
	if err != nil {
		t.Fatalf("NewSecretBox: %v", err)
	}

	sealed, err := box.Seal("client-secret-value")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if sealed == "client-secret-value" {
		t.Fatalf("secret stored in the clear")
	}

	opened, err := box.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if opened != "client-secret-value" {
		t.Fatalf("round trip mismatch: %q", opened)
	}

	// Nonces differ, so sealing twice yields different blobs.
	again, _ := box.Seal("client-secret-value")
	if again == sealed {
		t.Fatalf("expected distinct ciphertexts")
	}
}

func TestSecretBoxRejectsBadInput(t *testing.T) {
	if _, err := NewSecretBox([]byte("short")); err == nil {
		t.Fatalf("expected error for short key")
	}

	box, err := NewSecretBox(bytes.Repeat([]byte{0x01}, 32))
	if err != nil {
		t.Fatalf("NewSecretBox: %v", err)
	}
	if _, err := box.Open("not-base64!!"); err == nil {
		t.Fatalf("expected error for malformed blob")
	}
	if _, err := box.Open("AAAA"); err == nil {
		t.Fatalf("expected error for truncated blob")
	}

	other, _ := NewSecretBox(bytes.Repeat([]byte{0x02}, 32))
	sealed, _ := box.Seal("secret")
	if _, err := other.Open(sealed); err == nil {
		t.Fatalf("expected error for wrong key")
	}
}

func TestMaskSecret(t *testing.T) {
	cases := map[string]string{
		"":             "",
		"abc":          "***",
		"abcd":         "****",
		"secret-value": "********alue",
	}
	for in, want := range cases {
		if got := MaskSecret(in); got != want {
			t.Fatalf("MaskSecret(%q) = %q, want %q", in, got, want)
		}
	}
}
