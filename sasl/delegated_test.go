package sasl

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDelegated(t *testing.T, engines EngineFactory) *delegatedMechanism {
	t.Helper()
	f, err := NewFactory(Config{
		ServiceName: "extauth",
		HostName:    "auth.example.com",
	},
		WithEngineFactory(engines),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	mech := f.CreateMechanism("$external")
	dm, ok := mech.(*delegatedMechanism)
	require.True(t, ok, "expected delegated strategy, got %T", mech)
	return dm
}

func TestDelegated_InitFailureNeverStartsExchange(t *testing.T) {
	session := &fakeEngineSession{}
	engines := &fakeEngineFactory{
		NewServerSessionFunc: func(serviceName, hostName string) (EngineSession, error) {
			assert.Equal(t, "extauth", serviceName)
			assert.Equal(t, "auth.example.com", hostName)
			return nil, errors.New("engine unavailable")
		},
	}
	mech := newDelegated(t, engines)
	defer mech.Close()

	_, err := mech.Step(context.Background(), []byte("\x00alice\x00secret123"))
	require.Error(t, err)
	assert.Equal(t, KindInitialization, KindOf(err))
	assert.Equal(t, 0, session.StartCalls)
}

func TestDelegated_ContinueThenDone(t *testing.T) {
	session := &fakeEngineSession{
		StartExchangeFunc: func(_ context.Context, mechanism string, payload []byte) ([]byte, bool, error) {
			assert.Equal(t, MechanismPlain, mechanism)
			assert.Equal(t, []byte("leg-one"), payload)
			return []byte("challenge"), false, nil
		},
		StepExchangeFunc: func(_ context.Context, payload []byte) ([]byte, bool, error) {
			assert.Equal(t, []byte("leg-two"), payload)
			return nil, true, nil
		},
	}
	engines := &fakeEngineFactory{
		NewServerSessionFunc: func(string, string) (EngineSession, error) { return session, nil },
	}
	mech := newDelegated(t, engines)
	defer mech.Close()

	result, err := mech.Step(context.Background(), []byte("leg-one"))
	require.NoError(t, err)
	assert.False(t, result.Done)
	assert.Equal(t, []byte("challenge"), result.Payload)
	assert.Equal(t, "", mech.PrincipalName())

	session.PropertyFunc = func(name string) (string, bool) {
		assert.Equal(t, PropertyUsername, name)
		return "alice", true
	}

	result, err = mech.Step(context.Background(), []byte("leg-two"))
	require.NoError(t, err)
	assert.True(t, result.Done)
	assert.Equal(t, "alice", mech.PrincipalName())
	assert.Equal(t, 1, session.StartCalls)
	assert.Equal(t, 1, session.StepCalls)
}

func TestDelegated_EngineErrorMapped(t *testing.T) {
	engineErr := errors.New("step did not complete")
	session := &fakeEngineSession{
		StartExchangeFunc: func(context.Context, string, []byte) ([]byte, bool, error) {
			return nil, false, engineErr
		},
	}
	engines := &fakeEngineFactory{
		NewServerSessionFunc: func(string, string) (EngineSession, error) { return session, nil },
	}
	mech := newDelegated(t, engines)
	defer mech.Close()

	_, err := mech.Step(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, KindProtocolEngine, KindOf(err))
	assert.ErrorIs(t, err, engineErr)
}

func TestDelegated_PrincipalNameDegradesToEmpty(t *testing.T) {
	engines := &fakeEngineFactory{}
	mech := newDelegated(t, engines)
	defer mech.Close()

	// Before any step: no engine session exists.
	assert.Equal(t, "", mech.PrincipalName())

	_, err := mech.Step(context.Background(), []byte("\x00alice\x00secret123"))
	require.NoError(t, err)

	// Property query fails: still empty, never an error.
	require.Len(t, engines.Sessions, 1)
	engines.Sessions[0].PropertyFunc = func(string) (string, bool) { return "", false }
	assert.Equal(t, "", mech.PrincipalName())
}

func TestDelegated_StepAfterTerminalIsViolation(t *testing.T) {
	session := &fakeEngineSession{
		StartExchangeFunc: func(context.Context, string, []byte) ([]byte, bool, error) {
			return nil, false, errors.New("boom")
		},
	}
	engines := &fakeEngineFactory{
		NewServerSessionFunc: func(string, string) (EngineSession, error) { return session, nil },
	}
	mech := newDelegated(t, engines)
	defer mech.Close()

	_, err := mech.Step(context.Background(), nil)
	require.Error(t, err)

	_, err = mech.Step(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, IsProtocolViolation(err))
	// The dead engine session must not be driven again.
	assert.Equal(t, 0, session.StepCalls)
}

func TestDelegated_StepCountMonotonic(t *testing.T) {
	mech := newDelegated(t, &fakeEngineFactory{})
	defer mech.Close()

	assert.Equal(t, 0, mech.stepCount)
	for i := 1; i <= 3; i++ {
		_, _ = mech.Step(context.Background(), []byte("\x00alice\x00secret123"))
		assert.Equal(t, i, mech.stepCount)
	}
}

func TestDelegated_CloseReleasesSessionOnce(t *testing.T) {
	engines := &fakeEngineFactory{}
	mech := newDelegated(t, engines)

	_, err := mech.Step(context.Background(), []byte("\x00alice\x00secret123"))
	require.NoError(t, err)
	require.Len(t, engines.Sessions, 1)

	require.NoError(t, mech.Close())
	require.NoError(t, mech.Close())
	assert.Equal(t, 1, engines.Sessions[0].CloseCalls)
}

func TestDelegated_CloseBeforeInitReleasesNothing(t *testing.T) {
	engines := &fakeEngineFactory{}
	mech := newDelegated(t, engines)

	require.NoError(t, mech.Close())
	assert.Empty(t, engines.Sessions)
}
