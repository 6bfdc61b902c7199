package sasl

import (
	"context"
	"fmt"
)

// directBindMechanism authenticates in a single step: parse the PLAIN
// payload, resolve the authentication identity to a DN, open a directory
// connection and bind with the client's password. The directory bind is one
// round trip, so this strategy deliberately supports exactly one step.
//
// The authorization identity is parsed but not enforced here; the layers
// above decide what an authzid differing from the authnid means.
type directBindMechanism struct {
	cfg       Config
	authDB    string
	mapper    IdentityMapper
	directory DirectoryClient
	audit     *SecurityLogger

	conn      DirectoryConn
	stepCount int
	principal string
	closed    bool
}

func (m *directBindMechanism) Step(ctx context.Context, input []byte) (StepResult, error) {
	step := m.stepCount
	m.stepCount++

	if step > 0 {
		return StepResult{}, newError(KindProtocolViolation,
			"an invalid second step was called against this mechanism")
	}

	m.audit.LogAuthentication(SubtypeAuthAttempt, OutcomeAttempt, SeverityInfo, "",
		map[string]any{"strategy": "direct-bind", "auth_db": m.authDB})

	creds, err := ParsePlainPayload(input)
	if err != nil {
		return StepResult{}, m.fail("", err)
	}

	dn, err := m.mapper.MapToDN(ctx, creds.AuthnID)
	if err != nil {
		return StepResult{}, m.fail(creds.AuthnID,
			&MechanismError{Kind: KindIdentityMapping, Message: err.Error(), Err: err})
	}

	conn, err := m.directory.Connect(ctx, m.cfg.DirectoryServers)
	if err != nil {
		return StepResult{}, m.fail(creds.AuthnID, wrapError(KindDirectoryConnect,
			fmt.Sprintf("cannot initialize directory connection to %v", m.cfg.DirectoryServers), err))
	}
	m.conn = conn

	if err := conn.Bind(ctx, dn, creds.Password); err != nil {
		return StepResult{}, m.fail(creds.AuthnID,
			wrapError(KindDirectoryBind, fmt.Sprintf("bind failed for %q", dn), err))
	}

	m.principal = creds.AuthnID
	m.audit.LogAuthentication(SubtypeAuthSuccess, OutcomeSuccess, SeverityInfo,
		m.principal, map[string]any{"dn": dn})
	return StepResult{Done: true}, nil
}

func (m *directBindMechanism) fail(user string, err error) error {
	m.audit.LogAuthentication(SubtypeAuthFailure, OutcomeFailure, SeverityWarning, user,
		map[string]any{"kind": KindOf(err).String()})
	return err
}

// PrincipalName returns the authenticated identity, set iff the bind
// succeeded.
func (m *directBindMechanism) PrincipalName() string {
	return m.principal
}

func (m *directBindMechanism) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	if m.conn != nil {
		return m.conn.Close()
	}
	return nil
}
