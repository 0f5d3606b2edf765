package envelope

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

var (
	ErrSignatureInvalid = errors.New("envelope signature is invalid")
	ErrPayloadMalformed = errors.New("envelope payload is malformed")
)

// Codec signs and verifies the JWS-style compact envelopes exchanged with the
// payment gateway: base64url(header).base64url(payload).base64url(hmac).
// The header shape is part of the gateway wire contract.
type Codec struct {
	key []byte
}

func NewCodec(signingKey string) *Codec {
	return &Codec{key: []byte(signingKey)}
}

type header struct {
	Alg      string `json:"alg"`
	ClientID string `json:"clientid"`
}

func (c *Codec) Sign(payload []byte, clientID string) string {
	headerJSON, _ := json.Marshal(header{Alg: "HS256", ClientID: clientID})
	signingInput := base64.RawURLEncoding.EncodeToString(headerJSON) + "." + base64.RawURLEncoding.EncodeToString(payload)

	mac := hmac.New(sha256.New, c.key)
	_, _ = mac.Write([]byte(signingInput))

	return signingInput + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyAndDecode checks the envelope signature in constant time before any
// interpretation of the payload. A verified payload that is not a JSON object
// is ErrPayloadMalformed, a caller bug rather than a security event.
func (c *Codec) VerifyAndDecode(envelope string) ([]byte, error) {
	parts := strings.Split(strings.TrimSpace(envelope), ".")
	if len(parts) != 3 {
		return nil, ErrSignatureInvalid
	}

	signature, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, ErrSignatureInvalid
	}

	mac := hmac.New(sha256.New, c.key)
	_, _ = mac.Write([]byte(parts[0] + "." + parts[1]))
	if !hmac.Equal(signature, mac.Sum(nil)) {
		return nil, ErrSignatureInvalid
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrPayloadMalformed
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(payload, &object); err != nil {
		return nil, ErrPayloadMalformed
	}

	return payload, nil
}
