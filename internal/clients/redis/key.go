package redis

import (
	"strings"
)

const keyPrefix = "chat:"

// SessionKey is the identity bundle a conversation can be addressed by.
// All fields are optional; Derive picks the strongest one present.
type SessionKey struct {
	ThreadID   string
	Phone      string
	UserID     string
	WhatsAppID string
}

// Derive maps the bundle to the canonical cache key. Precedence, highest
// first: an already-canonical thread id is returned unchanged; then phone
// (digits only), so history keys to the stable externally-visible identifier
// even when an internal id is also present; then user id; then the
// WhatsApp-specific id; finally a generic session fallback.
func (k SessionKey) Derive() string {
	if strings.HasPrefix(k.ThreadID, keyPrefix) {
		return k.ThreadID
	}
	if digits := digitsOnly(k.Phone); digits != "" {
		return keyPrefix + "phone:" + digits
	}
	if k.UserID != "" {
		return keyPrefix + "user:" + k.UserID
	}
	if k.WhatsAppID != "" {
		return keyPrefix + "whatsapp:" + k.WhatsAppID
	}
	session := k.ThreadID
	if session == "" {
		session = "default"
	}
	return keyPrefix + "session:" + session
}

// PhoneKey is the common case: address a conversation by raw phone number.
func PhoneKey(phone string) string {
	return SessionKey{Phone: phone}.Derive()
}

func digitsOnly(v string) string {
	var b strings.Builder
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
