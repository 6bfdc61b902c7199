package sasl

import "context"

// delegatedMechanism drives the external authentication engine through the
// exchange. The engine session is created lazily on the first step and
// released exactly once in Close, no matter which state the session reached.
type delegatedMechanism struct {
	cfg     Config
	authDB  string
	engines EngineFactory
	audit   *SecurityLogger

	session   EngineSession
	stepCount int
	terminal  bool
	closed    bool
}

func (m *delegatedMechanism) Step(ctx context.Context, input []byte) (StepResult, error) {
	step := m.stepCount
	m.stepCount++

	if m.terminal {
		return StepResult{}, newError(KindProtocolViolation,
			"step %d called after the mechanism reached a terminal state", step)
	}

	if step == 0 {
		m.audit.LogAuthentication(SubtypeAuthAttempt, OutcomeAttempt, SeverityInfo, "",
			map[string]any{"strategy": "delegated", "auth_db": m.authDB})

		session, err := m.engines.NewServerSession(m.cfg.ServiceName, m.cfg.HostName)
		if err != nil {
			return StepResult{}, m.fail(wrapError(KindInitialization,
				"could not initialize server session", err))
		}
		m.session = session
		return m.exchange(m.session.StartExchange(ctx, MechanismPlain, input))
	}
	return m.exchange(m.session.StepExchange(ctx, input))
}

// exchange maps an engine result onto the step contract.
func (m *delegatedMechanism) exchange(out []byte, complete bool, err error) (StepResult, error) {
	if err != nil {
		return StepResult{}, m.fail(wrapError(KindProtocolEngine,
			"authentication step did not complete", err))
	}
	if complete {
		m.terminal = true
		m.audit.LogAuthentication(SubtypeAuthSuccess, OutcomeSuccess, SeverityInfo,
			m.PrincipalName(), nil)
	}
	return StepResult{Payload: out, Done: complete}, nil
}

func (m *delegatedMechanism) fail(err *MechanismError) error {
	m.terminal = true
	m.audit.LogAuthentication(SubtypeAuthFailure, OutcomeFailure, SeverityWarning, "",
		map[string]any{"kind": err.Kind.String()})
	return err
}

// PrincipalName returns the engine's negotiated identity, or "" while the
// exchange has not succeeded or the property cannot be read. Advisory only;
// never an error.
func (m *delegatedMechanism) PrincipalName() string {
	if m.session == nil {
		return ""
	}
	name, ok := m.session.NegotiatedProperty(PropertyUsername)
	if !ok {
		return ""
	}
	return name
}

func (m *delegatedMechanism) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	if m.session != nil {
		return m.session.Close()
	}
	return nil
}
