package sasl

import (
	"context"
	"errors"
)

// fakeEngineFactory is a test implementation of EngineFactory.
type fakeEngineFactory struct {
	// Expectations
	NewServerSessionFunc func(serviceName, hostName string) (EngineSession, error)

	// State
	Sessions []*fakeEngineSession
}

func (f *fakeEngineFactory) NewServerSession(serviceName, hostName string) (EngineSession, error) {
	if f.NewServerSessionFunc != nil {
		return f.NewServerSessionFunc(serviceName, hostName)
	}
	s := &fakeEngineSession{}
	f.Sessions = append(f.Sessions, s)
	return s, nil
}

// fakeEngineSession is a test implementation of EngineSession.
type fakeEngineSession struct {
	// Expectations
	StartExchangeFunc func(ctx context.Context, mechanism string, payload []byte) ([]byte, bool, error)
	StepExchangeFunc  func(ctx context.Context, payload []byte) ([]byte, bool, error)
	PropertyFunc      func(name string) (string, bool)

	// State
	StartCalls int
	StepCalls  int
	CloseCalls int
}

func (f *fakeEngineSession) StartExchange(ctx context.Context, mechanism string, payload []byte) ([]byte, bool, error) {
	f.StartCalls++
	if f.StartExchangeFunc != nil {
		return f.StartExchangeFunc(ctx, mechanism, payload)
	}
	return nil, true, nil
}

func (f *fakeEngineSession) StepExchange(ctx context.Context, payload []byte) ([]byte, bool, error) {
	f.StepCalls++
	if f.StepExchangeFunc != nil {
		return f.StepExchangeFunc(ctx, payload)
	}
	return nil, true, nil
}

func (f *fakeEngineSession) NegotiatedProperty(name string) (string, bool) {
	if f.PropertyFunc != nil {
		return f.PropertyFunc(name)
	}
	return "", false
}

func (f *fakeEngineSession) Close() error {
	f.CloseCalls++
	return nil
}

// fakeMapper is a test implementation of IdentityMapper.
type fakeMapper struct {
	MapToDNFunc func(ctx context.Context, authnID string) (string, error)
}

func (f *fakeMapper) MapToDN(ctx context.Context, authnID string) (string, error) {
	if f.MapToDNFunc != nil {
		return f.MapToDNFunc(ctx, authnID)
	}
	return "cn=" + authnID + ",dc=example,dc=com", nil
}

// fakeDirectoryClient is a test implementation of DirectoryClient.
type fakeDirectoryClient struct {
	// Expectations
	ConnectFunc func(ctx context.Context, servers []string) (DirectoryConn, error)
	BindFunc    func(ctx context.Context, dn, password string) error

	// State
	Conns []*fakeDirectoryConn
}

func (f *fakeDirectoryClient) Connect(ctx context.Context, servers []string) (DirectoryConn, error) {
	if f.ConnectFunc != nil {
		return f.ConnectFunc(ctx, servers)
	}
	c := &fakeDirectoryConn{BindFunc: f.BindFunc}
	f.Conns = append(f.Conns, c)
	return c, nil
}

// fakeDirectoryConn is a test implementation of DirectoryConn.
type fakeDirectoryConn struct {
	BindFunc func(ctx context.Context, dn, password string) error

	BindCalls  int
	CloseCalls int
}

func (f *fakeDirectoryConn) Bind(ctx context.Context, dn, password string) error {
	f.BindCalls++
	if f.BindFunc != nil {
		return f.BindFunc(ctx, dn, password)
	}
	return nil
}

func (f *fakeDirectoryConn) Close() error {
	f.CloseCalls++
	return nil
}

var errBindRejected = errors.New("invalid credentials")
