package twilio

import (
	"net/url"
	"testing"
)

func TestComputeSignatureSortsParams(t *testing.T) {
	params := url.Values{}
	params.Set("From", "whatsapp:+13055550100")
	params.Set("Body", "hello")

	a := ComputeSignature("token", "https://example.com/api/webhook/twilio", params)

	// Insertion order must not matter.
	params2 := url.Values{}
	params2.Set("Body", "hello")
	params2.Set("From", "whatsapp:+13055550100")
	b := ComputeSignature("token", "https://example.com/api/webhook/twilio", params2)

	if a != b {
		t.Fatalf("signature depends on parameter order: %q vs %q", a, b)
	}
}

func TestValidateSignatureRoundTrip(t *testing.T) {
	params := url.Values{}
	params.Set("From", "whatsapp:+13055550100")
	params.Set("Body", "hi poppa")

	sig := ComputeSignature("secret-token", "https://example.com/api/webhook/twilio", params)

	if !ValidateSignature("secret-token", "https://example.com/api/webhook/twilio", params, sig) {
		t.Fatalf("valid signature rejected")
	}
	if ValidateSignature("secret-token", "https://example.com/api/webhook/twilio", params, sig+"x") {
		t.Fatalf("tampered signature accepted")
	}
	if ValidateSignature("other-token", "https://example.com/api/webhook/twilio", params, sig) {
		t.Fatalf("signature accepted with wrong token")
	}
	if ValidateSignature("secret-token", "https://example.com/other", params, sig) {
		t.Fatalf("signature accepted for wrong URL")
	}
}

func TestValidateSignatureRejectsEmpty(t *testing.T) {
	if ValidateSignature("", "https://example.com", url.Values{}, "sig") {
		t.Fatalf("empty token accepted")
	}
	if ValidateSignature("token", "https://example.com", url.Values{}, "") {
		t.Fatalf("empty signature accepted")
	}
}

func TestWhatsAppAddress(t *testing.T) {
	if got := WhatsAppAddress("+13055550100"); got != "whatsapp:+13055550100" {
		t.Fatalf("got %q", got)
	}
	if got := WhatsAppAddress("whatsapp:+13055550100"); got != "whatsapp:+13055550100" {
		t.Fatalf("double prefix: got %q", got)
	}
	if got := StripWhatsApp("whatsapp:+13055550100"); got != "+13055550100" {
		t.Fatalf("strip: got %q", got)
	}
}
