// Package sasl implements server-side SASL PLAIN authentication against an
// external identity source.
//
// A Mechanism is the per-connection authentication session: the calling
// framework creates one through a Factory, then repeatedly invokes Step until
// the result reports completion or an error is returned. Two concrete
// strategies exist behind the interface, selected once at creation time and
// never switched mid-session: a delegated strategy that drives an external
// authentication engine through its exchange, and a direct-bind strategy that
// parses the client's first payload itself and performs a single directory
// bind.
package sasl

import "context"

// MechanismPlain is the SASL mechanism name served by this package.
const MechanismPlain = "PLAIN"

// PropertyUsername is the negotiated-property key under which an engine
// session publishes the authenticated identity.
const PropertyUsername = "username"

// StepResult is the successful outcome of one authentication step.
type StepResult struct {
	// Payload is the server output to relay to the client. May be empty.
	Payload []byte

	// Done reports whether the exchange is complete and the client is
	// authenticated. False means the client is expected to send another
	// payload.
	Done bool
}

// Mechanism is one server-side authentication session.
//
// A Mechanism is NOT safe for concurrent use. Exactly one goroutine drives a
// session for the duration of its authentication attempt; independent
// sessions run concurrently without shared mutable state. Step may block on
// directory I/O or on the engine's own negotiation; cancellation and
// deadlines travel through ctx to the collaborators.
//
// Every failure is returned as a *MechanismError and is terminal: the
// calling framework starts a fresh Mechanism for a new attempt. Close must
// be called on every path, including after early failures, and releases any
// collaborator handle the session opened. Close is idempotent.
type Mechanism interface {
	// Step consumes one client payload and produces the next server output.
	Step(ctx context.Context, input []byte) (StepResult, error)

	// PrincipalName returns the authenticated identity, or "" while the
	// session has not succeeded. It never returns an error; failures to
	// read the identity degrade to "".
	PrincipalName() string

	// Close releases any collaborator handle held by the session.
	Close() error
}

// EngineFactory creates server sessions on an external authentication
// engine. The engine is a generic challenge/response implementation
// configured for directory-backed validation; this package drives it only
// through this boundary.
type EngineFactory interface {
	// NewServerSession initializes one engine session for the named
	// service on the given host. A non-nil error is fatal for the
	// authentication attempt.
	NewServerSession(serviceName, hostName string) (EngineSession, error)
}

// EngineSession is one engine-side exchange.
type EngineSession interface {
	// StartExchange feeds the client's initial payload for the named
	// mechanism. complete reports whether the exchange finished.
	StartExchange(ctx context.Context, mechanism string, payload []byte) (out []byte, complete bool, err error)

	// StepExchange feeds a subsequent client payload.
	StepExchange(ctx context.Context, payload []byte) (out []byte, complete bool, err error)

	// NegotiatedProperty returns the value of a property established
	// during the exchange, such as PropertyUsername.
	NegotiatedProperty(name string) (string, bool)

	// Close releases the engine session.
	Close() error
}

// IdentityMapper resolves an authentication identity to a directory
// distinguished name.
type IdentityMapper interface {
	MapToDN(ctx context.Context, authnID string) (string, error)
}

// DirectoryClient opens connections to a directory service.
type DirectoryClient interface {
	// Connect opens a connection using the configured server list.
	Connect(ctx context.Context, servers []string) (DirectoryConn, error)
}

// DirectoryConn is an open directory connection owned by one session.
type DirectoryConn interface {
	// Bind authenticates against the directory with a distinguished name
	// and password.
	Bind(ctx context.Context, dn, password string) error

	// Close releases the connection. Idempotent.
	Close() error
}
