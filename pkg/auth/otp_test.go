package auth

import (
	"testing"
)

func TestGenerateOTP_Format(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := GenerateOTP()
		if err != nil {
			t.Fatalf("GenerateOTP: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q has length %d, want 6", code, len(code))
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Fatalf("code %q contains non-digit %q", code, c)
			}
		}
	}
}

func TestGenerateOTP_NotConstant(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := GenerateOTP()
		if err != nil {
			t.Fatalf("GenerateOTP: %v", err)
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Error("50 generated codes were all identical")
	}
}

func TestFingerprintOTP_Deterministic(t *testing.T) {
	a := FingerprintOTP("000042")
	b := FingerprintOTP("000042")
	if a != b {
		t.Error("fingerprint of the same code differs between calls")
	}
	if a == "000042" {
		t.Error("fingerprint equals the code")
	}
	if len(a) != 64 {
		t.Errorf("fingerprint length = %d, want 64 hex chars", len(a))
	}
	if FingerprintOTP("000043") == a {
		t.Error("different codes produced the same fingerprint")
	}
}

func TestFingerprintOTP_LeadingZerosMatter(t *testing.T) {
	// "000042" and "42" are different codes
	if FingerprintOTP("000042") == FingerprintOTP("42") {
		t.Error("zero-padded and unpadded codes fingerprint identically")
	}
}

func TestOTPEqual(t *testing.T) {
	fp := FingerprintOTP("123456")
	if !OTPEqual(fp, FingerprintOTP("123456")) {
		t.Error("equal fingerprints compare unequal")
	}
	if OTPEqual(fp, FingerprintOTP("654321")) {
		t.Error("different fingerprints compare equal")
	}
	if OTPEqual(fp, "") {
		t.Error("fingerprint equal to empty string")
	}
}
