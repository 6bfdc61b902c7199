package sasl

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// SecurityProperty is one property a mechanism guarantees.
type SecurityProperty uint

const (
	// PropertyNoAnonymous means the mechanism never authenticates an
	// anonymous client.
	PropertyNoAnonymous SecurityProperty = 1 << iota

	// PropertyMutualAuth means the mechanism authenticates the server to
	// the client as well. PLAIN does not provide this.
	PropertyMutualAuth

	// PropertyNoPlainText means the secret never crosses the wire in
	// clear text. PLAIN does not provide this; deployments rely on TLS.
	PropertyNoPlainText
)

// SecurityPropertySet is a set of security properties.
type SecurityPropertySet uint

// Has reports whether the set contains p.
func (s SecurityPropertySet) Has(p SecurityProperty) bool {
	return uint(s)&uint(p) != 0
}

// UserRecord is the stored user entry the registration framework consults
// when deciding which mechanisms may authenticate a given user.
type UserRecord struct {
	// Name is the user name.
	Name string

	// Database is the authentication database the user is defined in.
	Database string

	// Credentials describes the stored credential material.
	Credentials CredentialRecord
}

// CredentialRecord describes a user's stored credentials.
type CredentialRecord struct {
	// External marks the user as validated by an external identity
	// source rather than by locally stored secrets.
	External bool
}

var _ MechanismFactory = (*Factory)(nil)

// Factory creates PLAIN mechanisms and answers the registration framework's
// metadata queries. The strategy each mechanism uses is fixed by the
// configuration snapshot: a non-empty directory server list selects direct
// bind, an empty one selects the delegated engine.
type Factory struct {
	cfg       Config
	engines   EngineFactory
	mapper    IdentityMapper
	directory DirectoryClient
	logger    *slog.Logger
}

// Option customizes a Factory.
type Option func(*Factory)

// WithEngineFactory supplies the external authentication engine used by the
// delegated strategy.
func WithEngineFactory(e EngineFactory) Option {
	return func(f *Factory) { f.engines = e }
}

// WithIdentityMapper supplies the identity mapper used by the direct-bind
// strategy.
func WithIdentityMapper(m IdentityMapper) Option {
	return func(f *Factory) { f.mapper = m }
}

// WithDirectoryClient supplies the directory client used by the direct-bind
// strategy.
func WithDirectoryClient(d DirectoryClient) Option {
	return func(f *Factory) { f.directory = d }
}

// WithLogger sets the logger used for session and audit events.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(f *Factory) { f.logger = l }
}

// NewFactory validates cfg, snapshots it and returns a Factory. The
// collaborators required by the selected strategy must be supplied:
// an identity mapper and a directory client when directory servers are
// configured, an engine factory otherwise.
func NewFactory(cfg Config, opts ...Option) (*Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	f := &Factory{cfg: cfg}
	// Snapshot the server list so later mutation by the caller cannot
	// change strategy selection or bind targets mid-flight.
	f.cfg.DirectoryServers = append([]string(nil), cfg.DirectoryServers...)

	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}

	if len(f.cfg.DirectoryServers) > 0 {
		if f.mapper == nil {
			return nil, errors.New("directory servers configured but no identity mapper supplied")
		}
		if f.directory == nil {
			return nil, errors.New("directory servers configured but no directory client supplied")
		}
	} else if f.engines == nil {
		return nil, errors.New("no directory servers configured and no engine factory supplied")
	}

	return f, nil
}

// CreateMechanism returns a fresh session for one authentication attempt
// against the given authentication database. Selection is deterministic for
// a configuration snapshot: non-empty directory server list means direct
// bind, empty means delegated.
func (f *Factory) CreateMechanism(authDatabase string) Mechanism {
	if len(f.cfg.DirectoryServers) > 0 {
		return &directBindMechanism{
			cfg:       f.cfg,
			authDB:    authDatabase,
			mapper:    f.mapper,
			directory: f.directory,
			audit:     NewSecurityLogger(f.logger, strings.Join(f.cfg.DirectoryServers, ",")),
		}
	}
	return &delegatedMechanism{
		cfg:     f.cfg,
		authDB:  authDatabase,
		engines: f.engines,
		audit:   NewSecurityLogger(f.logger, f.cfg.HostName),
	}
}

// Name returns the mechanism name.
func (f *Factory) Name() string {
	return MechanismPlain
}

// Properties returns the security properties PLAIN guarantees.
func (f *Factory) Properties() SecurityPropertySet {
	return SecurityPropertySet(PropertyNoAnonymous)
}

// SecurityLevel returns the mechanism's relative security level. PLAIN
// offers no transport protection of its own.
func (f *Factory) SecurityLevel() int {
	return 0
}

// IsInternalAuthMechanism reports whether the mechanism may be used for
// server-to-server authentication. Always false for external PLAIN.
func (f *Factory) IsInternalAuthMechanism() bool {
	return false
}

// CanMakeMechanismForUser reports whether this mechanism can authenticate
// the given user: only users whose credential record is marked external.
func (f *Factory) CanMakeMechanismForUser(user *UserRecord) bool {
	return user != nil && user.Credentials.External
}
