package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smnsjas/go-extauth/sasl"
)

func testEngine(t *testing.T, conn *fakeConn) *Engine {
	t.Helper()
	e, err := NewEngine(
		searchClient(conn),
		NewTemplateMapper("uid={0},dc=example,dc=com"),
		[]string{"ldap://a"},
	)
	require.NoError(t, err)
	return e
}

func TestEngine_PlainExchange(t *testing.T) {
	var boundDN, boundPW string
	conn := &fakeConn{BindFunc: func(dn, pw string) error {
		boundDN, boundPW = dn, pw
		return nil
	}}
	e := testEngine(t, conn)

	session, err := e.NewServerSession("extauth", "auth.example.com")
	require.NoError(t, err)
	defer session.Close()

	out, complete, err := session.StartExchange(context.Background(), sasl.MechanismPlain, []byte("\x00alice\x00secret123"))
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Empty(t, out)
	assert.Equal(t, "uid=alice,dc=example,dc=com", boundDN)
	assert.Equal(t, "secret123", boundPW)

	// The bind connection is not held past the exchange.
	assert.Equal(t, 1, conn.CloseCalls)

	name, ok := session.NegotiatedProperty(sasl.PropertyUsername)
	require.True(t, ok)
	assert.Equal(t, "alice", name)
}

func TestEngine_RejectsUnknownMechanism(t *testing.T) {
	e := testEngine(t, &fakeConn{})
	session, err := e.NewServerSession("extauth", "auth.example.com")
	require.NoError(t, err)
	defer session.Close()

	_, _, err = session.StartExchange(context.Background(), "SCRAM-SHA-256", nil)
	assert.ErrorContains(t, err, `unsupported mechanism "SCRAM-SHA-256"`)
}

func TestEngine_BindRejected(t *testing.T) {
	conn := &fakeConn{BindFunc: func(string, string) error {
		return ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("nope"))
	}}
	e := testEngine(t, conn)
	session, err := e.NewServerSession("extauth", "auth.example.com")
	require.NoError(t, err)
	defer session.Close()

	_, complete, err := session.StartExchange(context.Background(), sasl.MechanismPlain, []byte("\x00alice\x00wrong"))
	require.Error(t, err)
	assert.False(t, complete)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, ok := session.NegotiatedProperty(sasl.PropertyUsername)
	assert.False(t, ok)
}

func TestEngine_StepAfterComplete(t *testing.T) {
	e := testEngine(t, &fakeConn{})
	session, err := e.NewServerSession("extauth", "auth.example.com")
	require.NoError(t, err)
	defer session.Close()

	_, complete, err := session.StartExchange(context.Background(), sasl.MechanismPlain, []byte("\x00alice\x00secret123"))
	require.NoError(t, err)
	require.True(t, complete)

	_, _, err = session.StepExchange(context.Background(), nil)
	assert.ErrorContains(t, err, "exchange already complete")
}

func TestEngine_SessionRequiresServiceName(t *testing.T) {
	e := testEngine(t, &fakeConn{})
	_, err := e.NewServerSession("", "auth.example.com")
	assert.ErrorContains(t, err, "service name is required")
}

func TestEngine_EmptyHostFallsBackToLocalHostname(t *testing.T) {
	e := testEngine(t, &fakeConn{})
	session, err := e.NewServerSession("extauth", "")
	require.NoError(t, err)
	defer session.Close()
	assert.NotEmpty(t, session.(*engineSession).hostName)
}

func TestNewEngine_Validation(t *testing.T) {
	client := searchClient(&fakeConn{})
	mapper := NewTemplateMapper("uid={0},dc=x")

	_, err := NewEngine(nil, mapper, []string{"ldap://a"})
	assert.ErrorContains(t, err, "directory client")

	_, err = NewEngine(client, nil, []string{"ldap://a"})
	assert.ErrorContains(t, err, "identity mapper")

	_, err = NewEngine(client, mapper, nil)
	assert.ErrorContains(t, err, "at least one directory server")
}

func TestEngine_EndToEndWithDelegatedMechanism(t *testing.T) {
	conn := &fakeConn{}
	e := testEngine(t, conn)

	f, err := sasl.NewFactory(sasl.Config{
		ServiceName: "extauth",
		HostName:    "auth.example.com",
	}, sasl.WithEngineFactory(e))
	require.NoError(t, err)

	mech := f.CreateMechanism("$external")
	defer mech.Close()

	result, err := mech.Step(context.Background(), []byte("\x00alice\x00secret123"))
	require.NoError(t, err)
	assert.True(t, result.Done)
	assert.Equal(t, "alice", mech.PrincipalName())
}
