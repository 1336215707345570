// Package qrtoken issues and decodes the attendance payload shown as a QR code at the venue.
package qrtoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrDecode is returned when a token cannot be parsed.
	ErrDecode = errors.New("qrtoken: malformed token")
	// ErrSignature is returned when a signing secret is configured and the token signature does not verify.
	ErrSignature = errors.New("qrtoken: invalid signature")
	// ErrExpired is returned when a maximum age is configured and the token is older than it.
	ErrExpired = errors.New("qrtoken: token expired")
	// ErrNotYetValid is returned when a maximum age is configured and the token is dated in the future.
	ErrNotYetValid = errors.New("qrtoken: token not yet valid")
)

// clockSkew tolerates issuer clocks running slightly ahead of the verifier.
const clockSkew = time.Minute

// Payload is the structured content of an attendance token. The issue time is
// carried as Unix seconds plus nanoseconds so every time.Time round-trips.
type Payload struct {
	EventID    string `json:"event_id"`
	EventName  string `json:"event_name,omitempty"`
	IssuedUnix int64  `json:"iat"`
	IssuedNano int64  `json:"iat_ns,omitempty"`
	Signature  string `json:"sig,omitempty"`
}

// IssuedAt returns the issue time in UTC.
func (p Payload) IssuedAt() time.Time {
	return time.Unix(p.IssuedUnix, p.IssuedNano).UTC()
}

// Codec encodes and decodes attendance tokens.
// Without a secret tokens are plain structured payloads and only the embedded event identity is checked.
type Codec struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewCodec constructs a codec. An empty secret disables signing; a zero maxAge disables expiry.
func NewCodec(secret string, maxAge time.Duration) *Codec {
	return &Codec{secret: []byte(secret), maxAge: maxAge, now: time.Now}
}

// Signed reports whether issued tokens carry an HMAC signature.
func (c *Codec) Signed() bool {
	return len(c.secret) > 0
}

// Issue produces a token binding eventID and issuedAt.
func (c *Codec) Issue(eventID string, issuedAt time.Time) (string, error) {
	return c.IssueNamed(eventID, "", issuedAt)
}

// IssueNamed is Issue with a display name embedded for scanners that show it.
func (c *Codec) IssueNamed(eventID, eventName string, issuedAt time.Time) (string, error) {
	if strings.TrimSpace(eventID) == "" {
		return "", fmt.Errorf("qrtoken: event id required")
	}
	p := Payload{
		EventID:    eventID,
		EventName:  eventName,
		IssuedUnix: issuedAt.Unix(),
		IssuedNano: int64(issuedAt.Nanosecond()),
	}
	if c.Signed() {
		p.Signature = c.sign(p)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("qrtoken: encode payload: %w", err)
	}
	return string(raw), nil
}

// Decode parses and verifies a token.
func (c *Codec) Decode(token string) (*Payload, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrDecode
	}
	var p Payload
	if err := json.Unmarshal([]byte(token), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if strings.TrimSpace(p.EventID) == "" || p.IssuedNano < 0 || p.IssuedNano >= int64(time.Second) {
		return nil, ErrDecode
	}
	if c.Signed() {
		expected := c.sign(p)
		if !hmac.Equal([]byte(expected), []byte(p.Signature)) {
			return nil, ErrSignature
		}
	}
	if c.maxAge > 0 {
		now := c.now()
		issuedAt := p.IssuedAt()
		if issuedAt.After(now.Add(clockSkew)) {
			return nil, ErrNotYetValid
		}
		if now.Sub(issuedAt) > c.maxAge {
			return nil, ErrExpired
		}
	}
	return &p, nil
}

// ExtractEventID returns the event identity embedded in the token.
func (c *Codec) ExtractEventID(token string) (string, error) {
	p, err := c.Decode(token)
	if err != nil {
		return "", err
	}
	return p.EventID, nil
}

func (c *Codec) sign(p Payload) string {
	mac := hmac.New(sha256.New, c.secret)
	_, _ = fmt.Fprintf(mac, "%s|%d|%d", p.EventID, p.IssuedUnix, p.IssuedNano)
	return hex.EncodeToString(mac.Sum(nil))
}
