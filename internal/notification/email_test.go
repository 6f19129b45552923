package notification

import (
	"strings"
	"testing"
)

func TestVerificationEmail(t *testing.T) {
	subject, body := VerificationEmail("amina", "123456")

	if subject != "Rishta Verification Code" {
		t.Errorf("subject = %q", subject)
	}
	if !strings.Contains(body, "amina") {
		t.Error("body does not address the handle")
	}
	if !strings.Contains(body, "123456") {
		t.Error("body does not contain the code")
	}
	if !strings.Contains(body, "1 hour") {
		t.Error("body does not state the expiry window")
	}
}
