package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"

	"github.com/smnsjas/go-extauth/sasl"
)

// placeholder is the substitution token in DN templates and search filters,
// replaced with the (escaped) authentication identity.
const placeholder = "{0}"

// TemplateMapper resolves identities by substituting the DN-escaped identity
// into a fixed template, e.g. "uid={0},ou=people,dc=example,dc=com".
// No directory round trip is performed.
type TemplateMapper struct {
	template string
}

var _ sasl.IdentityMapper = (*TemplateMapper)(nil)

// NewTemplateMapper creates a template mapper. The template must contain
// the {0} placeholder.
func NewTemplateMapper(template string) *TemplateMapper {
	return &TemplateMapper{template: template}
}

// MapToDN substitutes the escaped identity into the template.
func (m *TemplateMapper) MapToDN(_ context.Context, authnID string) (string, error) {
	if authnID == "" {
		return "", errors.New("empty authentication identity")
	}
	if !strings.Contains(m.template, placeholder) {
		return "", fmt.Errorf("user DN template %q has no %s placeholder", m.template, placeholder)
	}
	return strings.ReplaceAll(m.template, placeholder, ldap.EscapeDN(authnID)), nil
}

// SearchConfig configures a SearchMapper.
type SearchConfig struct {
	// Servers is the list of directory server URLs to search against.
	Servers []string

	// BindDN and BindPassword are the query user's credentials. Empty
	// BindDN searches anonymously.
	BindDN       string
	BindPassword string

	// BaseDN is the subtree the search starts from.
	BaseDN string

	// Filter is the search filter with a {0} placeholder for the
	// filter-escaped identity, e.g. "(&(objectClass=person)(uid={0}))".
	Filter string
}

// Validate checks the search configuration.
func (c *SearchConfig) Validate() error {
	if len(c.Servers) == 0 {
		return errors.New("search mapper requires at least one directory server")
	}
	if c.BaseDN == "" {
		return errors.New("search mapper requires a base DN")
	}
	if !strings.Contains(c.Filter, placeholder) {
		return fmt.Errorf("search filter %q has no %s placeholder", c.Filter, placeholder)
	}
	return nil
}

// SearchMapper resolves identities by searching the directory as a query
// user and returning the DN of the single matching entry.
type SearchMapper struct {
	client *Client
	cfg    SearchConfig
}

var _ sasl.IdentityMapper = (*SearchMapper)(nil)

// NewSearchMapper creates a search-based identity mapper.
func NewSearchMapper(client *Client, cfg SearchConfig) (*SearchMapper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Servers = append([]string(nil), cfg.Servers...)
	return &SearchMapper{client: client, cfg: cfg}, nil
}

// MapToDN searches for the identity and demands exactly one match.
func (m *SearchMapper) MapToDN(ctx context.Context, authnID string) (string, error) {
	if authnID == "" {
		return "", errors.New("empty authentication identity")
	}

	conn, err := m.client.dialFirst(ctx, m.cfg.Servers)
	if err != nil {
		return "", fmt.Errorf("identity search: %w", err)
	}
	defer conn.Close()

	if m.cfg.BindDN != "" {
		if err := conn.Bind(m.cfg.BindDN, m.cfg.BindPassword); err != nil {
			return "", fmt.Errorf("identity search: bind as query user %q: %w", m.cfg.BindDN, err)
		}
	}

	filter := strings.ReplaceAll(m.cfg.Filter, placeholder, ldap.EscapeFilter(authnID))
	req := ldap.NewSearchRequest(
		m.cfg.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases,
		2, // enough to detect ambiguity
		0, false,
		filter,
		[]string{"dn"},
		nil,
	)
	res, err := conn.Search(req)
	if err != nil {
		return "", fmt.Errorf("identity search for %q: %w", authnID, err)
	}

	switch len(res.Entries) {
	case 0:
		return "", fmt.Errorf("no directory entry matches %q", authnID)
	case 1:
		return res.Entries[0].DN, nil
	default:
		return "", fmt.Errorf("ambiguous identity %q: multiple directory entries match", authnID)
	}
}
