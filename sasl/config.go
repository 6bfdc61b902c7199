package sasl

import "errors"

// Config holds the deployment configuration consumed by a Factory.
//
// A Factory snapshots its Config at construction; later changes to the
// caller's copy do not affect sessions already created or still to be
// created from that Factory. Reconfiguration means building a new Factory.
type Config struct {
	// ServiceName is the registered service name passed to the external
	// authentication engine.
	ServiceName string

	// HostName is the fully qualified domain name of this server, passed
	// to the engine. Empty lets the engine fall back to the local
	// hostname.
	HostName string

	// DirectoryServers is the list of directory server URLs
	// (e.g. "ldaps://ldap.example.com:636"). A non-empty list selects the
	// direct-bind strategy; an empty list selects the delegated strategy.
	DirectoryServers []string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ServiceName: "extauth",
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return errors.New("service name is required")
	}
	for _, s := range c.DirectoryServers {
		if s == "" {
			return errors.New("directory server URL must not be empty")
		}
	}
	return nil
}
