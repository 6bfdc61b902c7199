// Command extauth-check runs one external authentication attempt against a
// configured directory and reports the outcome. It is an operator probe for
// validating directory configuration before wiring it into a server.
//
// Password can be provided via:
//   - -pass flag (least secure, visible in process list)
//   - EXTAUTH_PASSWORD environment variable (recommended)
//   - stdin prompt (if neither flag nor env var is set)
//
// Usage:
//
//	extauth-check -servers ldaps://ldap.example.com -dn-template 'uid={0},ou=people,dc=example,dc=com' -user alice
//
// Examples:
//
//	# Direct bind with a DN template
//	export EXTAUTH_PASSWORD='secret'
//	extauth-check -servers ldap://localhost:389 \
//	    -dn-template 'uid={0},ou=people,dc=example,dc=com' -user alice
//
//	# Search-based mapping with a query user
//	extauth-check -servers ldaps://ldap.example.com \
//	    -search-base 'dc=example,dc=com' \
//	    -search-filter '(&(objectClass=person)(uid={0}))' \
//	    -bind-dn 'cn=query,dc=example,dc=com' -bind-pass 'qsecret' \
//	    -user alice
//
//	# Exercise the delegated engine path instead of direct bind
//	extauth-check -servers ldap://localhost:389 -delegated \
//	    -dn-template 'uid={0},ou=people,dc=example,dc=com' -user alice
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/smnsjas/go-extauth/directory"
	intlog "github.com/smnsjas/go-extauth/internal/log"
	"github.com/smnsjas/go-extauth/sasl"
)

func main() {
	servers := flag.String("servers", "", "Comma-separated directory server URLs (ldap:// or ldaps://)")
	service := flag.String("service", "extauth", "Service name passed to the authentication engine")
	host := flag.String("host", "", "FQDN of this host (default: local hostname)")
	user := flag.String("user", "", "Authentication identity to check")
	password := flag.String("pass", "", "Password (use EXTAUTH_PASSWORD env var instead)")
	dnTemplate := flag.String("dn-template", "", "User DN template with a {0} placeholder")
	searchBase := flag.String("search-base", "", "Base DN for search-based identity mapping")
	searchFilter := flag.String("search-filter", "(uid={0})", "Search filter with a {0} placeholder")
	bindDN := flag.String("bind-dn", "", "Query user DN for search-based mapping")
	bindPass := flag.String("bind-pass", "", "Query user password for search-based mapping")
	delegated := flag.Bool("delegated", false, "Authenticate through the delegated engine instead of direct bind")
	insecure := flag.Bool("insecure", false, "Skip TLS certificate verification")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall attempt timeout")
	logFile := flag.String("log", "", "Write logs to this file (rotated) instead of stderr")
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.Parse()

	if *servers == "" || *user == "" {
		fmt.Fprintln(os.Stderr, "Error: -servers and -user are required")
		flag.Usage()
		os.Exit(2)
	}

	logger, cleanup, err := buildLogger(*logFile, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	pass, err := resolvePassword(*password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	serverList := splitServers(*servers)

	var tlsConfig *tls.Config
	if *insecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true} // -insecure is testing-only
	}
	client := directory.NewClient(tlsConfig)

	mapper, err := buildMapper(client, serverList, *dnTemplate, *searchBase, *searchFilter, *bindDN, *bindPass)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	cfg := sasl.DefaultConfig()
	cfg.ServiceName = *service
	cfg.HostName = *host

	opts := []sasl.Option{sasl.WithLogger(logger)}
	if *delegated {
		engine, err := directory.NewEngine(client, mapper, serverList)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		opts = append(opts, sasl.WithEngineFactory(engine))
	} else {
		cfg.DirectoryServers = serverList
		opts = append(opts,
			sasl.WithIdentityMapper(mapper),
			sasl.WithDirectoryClient(client))
	}

	factory, err := sasl.NewFactory(cfg, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	principal, err := authenticate(ctx, factory, *user, pass)
	if err != nil {
		logger.Error("authentication failed", "user", *user, "error", err)
		fmt.Fprintf(os.Stderr, "FAILED: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OK: authenticated as %q\n", principal)
}

// authenticate drives one mechanism session to completion.
func authenticate(ctx context.Context, factory *sasl.Factory, user, pass string) (string, error) {
	mech := factory.CreateMechanism("$external")
	defer mech.Close()

	// authzid \0 authnid \0 password, with an empty authzid.
	payload := []byte("\x00" + user + "\x00" + pass)

	result, err := mech.Step(ctx, payload)
	if err != nil {
		return "", err
	}
	if !result.Done {
		// PLAIN completes in one leg; a continue here means the engine
		// wants a payload this probe cannot produce.
		return "", fmt.Errorf("engine requested another exchange step; cannot continue")
	}
	return mech.PrincipalName(), nil
}

func buildMapper(client *directory.Client, servers []string, dnTemplate, searchBase, searchFilter, bindDN, bindPass string) (sasl.IdentityMapper, error) {
	if searchBase != "" {
		return directory.NewSearchMapper(client, directory.SearchConfig{
			Servers:      servers,
			BindDN:       bindDN,
			BindPassword: bindPass,
			BaseDN:       searchBase,
			Filter:       searchFilter,
		})
	}
	if dnTemplate == "" {
		return nil, fmt.Errorf("either -dn-template or -search-base is required")
	}
	return directory.NewTemplateMapper(dnTemplate), nil
}

func buildLogger(path string, verbose bool) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	cleanup := func() {}
	if path != "" {
		rf, err := intlog.NewRotatingFile(path, 10<<20, 3)
		if err != nil {
			return nil, nil, err
		}
		w = rf
		cleanup = func() { _ = rf.Close() }
	}

	handler := intlog.NewRedactingHandler(
		slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return slog.New(handler), cleanup, nil
}

// resolvePassword returns the password from the flag, the environment, or a
// terminal prompt, in that order.
func resolvePassword(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv("EXTAUTH_PASSWORD"); env != "" {
		return env, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("no password: set -pass, EXTAUTH_PASSWORD, or run interactively")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}

func splitServers(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
