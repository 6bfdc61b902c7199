package directory

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/smnsjas/go-extauth/sasl"
)

// Engine is an external-authentication engine backed by the directory: the
// PLAIN exchange is validated by mapping the identity and binding with the
// client's password, all in a single leg. It implements sasl.EngineFactory
// and serves deployments where the calling server itself has no directory
// endpoints configured but the engine does.
type Engine struct {
	client  *Client
	mapper  sasl.IdentityMapper
	servers []string
}

var _ sasl.EngineFactory = (*Engine)(nil)

// NewEngine creates a directory-backed engine validating against the given
// servers.
func NewEngine(client *Client, mapper sasl.IdentityMapper, servers []string) (*Engine, error) {
	if client == nil {
		return nil, errors.New("engine requires a directory client")
	}
	if mapper == nil {
		return nil, errors.New("engine requires an identity mapper")
	}
	if len(servers) == 0 {
		return nil, errors.New("engine requires at least one directory server")
	}
	return &Engine{
		client:  client,
		mapper:  mapper,
		servers: append([]string(nil), servers...),
	}, nil
}

// NewServerSession initializes one engine session. An empty hostName falls
// back to the local hostname.
func (e *Engine) NewServerSession(serviceName, hostName string) (sasl.EngineSession, error) {
	if serviceName == "" {
		return nil, errors.New("service name is required")
	}
	if hostName == "" {
		name, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("resolve local hostname: %w", err)
		}
		hostName = name
	}
	return &engineSession{engine: e, hostName: hostName}, nil
}

// engineSession is one exchange. PLAIN completes in a single leg; the
// session stays usable for property queries until closed.
type engineSession struct {
	engine   *Engine
	hostName string

	complete bool
	username string
	closed   bool
}

var _ sasl.EngineSession = (*engineSession)(nil)

func (s *engineSession) StartExchange(ctx context.Context, mechanism string, payload []byte) ([]byte, bool, error) {
	if mechanism != sasl.MechanismPlain {
		return nil, false, fmt.Errorf("unsupported mechanism %q", mechanism)
	}
	return s.exchange(ctx, payload)
}

func (s *engineSession) StepExchange(ctx context.Context, payload []byte) ([]byte, bool, error) {
	if s.complete {
		return nil, false, errors.New("exchange already complete")
	}
	return s.exchange(ctx, payload)
}

func (s *engineSession) exchange(ctx context.Context, payload []byte) ([]byte, bool, error) {
	if s.closed {
		return nil, false, errors.New("engine session closed")
	}

	creds, err := sasl.ParsePlainPayload(payload)
	if err != nil {
		return nil, false, err
	}

	dn, err := s.engine.mapper.MapToDN(ctx, creds.AuthnID)
	if err != nil {
		return nil, false, err
	}

	conn, err := s.engine.client.dialFirst(ctx, s.engine.servers)
	if err != nil {
		return nil, false, fmt.Errorf("cannot initialize directory connection: %w", err)
	}
	defer conn.Close()

	if err := classifyBindError(conn.Bind(dn, creds.Password)); err != nil {
		return nil, false, err
	}

	s.complete = true
	s.username = creds.AuthnID
	return nil, true, nil
}

// NegotiatedProperty returns properties established by the exchange. Only
// sasl.PropertyUsername is published, and only after success.
func (s *engineSession) NegotiatedProperty(name string) (string, bool) {
	if name == sasl.PropertyUsername && s.username != "" {
		return s.username, true
	}
	return "", false
}

func (s *engineSession) Close() error {
	s.closed = true
	return nil
}
