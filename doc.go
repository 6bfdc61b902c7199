// Package extauth provides server-side SASL PLAIN authentication against an
// external identity source, usable from any server that speaks a
// challenge/response authentication step protocol.
//
// Two strategies are supported behind a single mechanism interface, selected
// once at session creation from the deployment configuration:
//   - Delegated: the full exchange is driven through a pluggable
//     external-authentication engine configured for directory-backed
//     validation.
//   - DirectBind: the client's first PLAIN payload is parsed locally and a
//     single bind is performed against an LDAP directory.
//
// # Architecture
//
// The library is organized into layers:
//
//	┌─────────────────────────────────────────────────────────┐
//	│  cmd/extauth-check/  Operator CLI for auth probing      │
//	├─────────────────────────────────────────────────────────┤
//	│  sasl/               Mechanism state machines, factory, │
//	│                      registry, payload parsing, errors  │
//	├─────────────────────────────────────────────────────────┤
//	│  ldap/               Directory client, identity mappers │
//	│                      and the directory-backed engine    │
//	│                      (go-ldap/v3)                       │
//	└─────────────────────────────────────────────────────────┘
//
// # Quick Start
//
//	cfg := sasl.Config{
//	    ServiceName:      "myservice",
//	    HostName:         "auth.example.com",
//	    DirectoryServers: []string{"ldaps://ldap.example.com"},
//	}
//	factory, err := sasl.NewFactory(cfg,
//	    sasl.WithIdentityMapper(ldap.NewTemplateMapper("cn={0},dc=example,dc=com")),
//	    sasl.WithDirectoryClient(ldap.NewClient(nil)))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	mech := factory.CreateMechanism("$external")
//	defer mech.Close()
//
//	result, err := mech.Step(ctx, clientPayload)
package extauth
