package sasl

import "bytes"

// PlainCredentials is the parsed view over a SASL PLAIN client payload.
// It lives for the duration of one step and is never persisted.
type PlainCredentials struct {
	// AuthzID is the authorization identity. May be empty; the mechanisms
	// in this package parse it but do not enforce it.
	AuthzID string

	// AuthnID is the authentication identity. Never empty.
	AuthnID string

	// Password is the client secret. Never empty.
	Password string
}

// ParsePlainPayload parses a PLAIN payload packed as
//
//	authzid NUL authnid NUL password
//
// The first two NUL bytes are the field separators; no trailing NUL is
// required and NULs are not escaped, so a password containing the sequence
// is taken verbatim while identities cannot contain NUL. This is the wire
// format's constraint, not one this parser adds.
func ParsePlainPayload(payload []byte) (PlainCredentials, error) {
	first := bytes.IndexByte(payload, 0)
	if first < 0 {
		return PlainCredentials{}, newError(KindMalformedPayload,
			"payload has no NUL separator after the authorization identity")
	}
	rest := payload[first+1:]
	second := bytes.IndexByte(rest, 0)
	if second < 0 {
		return PlainCredentials{}, newError(KindMalformedPayload,
			"payload has no NUL separator after the authentication identity")
	}

	creds := PlainCredentials{
		AuthzID:  string(payload[:first]),
		AuthnID:  string(rest[:second]),
		Password: string(rest[second+1:]),
	}
	if creds.AuthnID == "" {
		return PlainCredentials{}, newError(KindMalformedPayload,
			"payload has an empty authentication identity")
	}
	if creds.Password == "" {
		return PlainCredentials{}, newError(KindMalformedPayload,
			"no password provided for %q", creds.AuthnID)
	}
	return creds, nil
}
