// Package ldapcmd holds the connection flags shared by the cmd/ tools:
// host/port/URI, TLS options, and simple-bind credentials.
package ldapcmd

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/howeyc/gopass"
	"github.com/spf13/pflag"

	"github.com/nylanfs/go-ldap-async/ldap"
)

// Config is the set of connection options every cmd/ tool accepts.
type Config struct {
	Host       string
	Port       int
	URI        string
	Insecure   bool
	StartTLS   bool
	BindDN     string
	BindPass   string
	PromptPass bool
	SimpleAuth bool
}

// RegisterFlags binds Config's fields to fs, matching ldapsearch(1)'s
// single-letter conventions (-h, -p, -D, -w, -W, -x, -Z, -H).
func RegisterFlags(fs *pflag.FlagSet) *Config {
	cfg := &Config{}
	fs.StringVarP(&cfg.Host, "host", "h", "127.0.0.1", "LDAP server")
	fs.IntVarP(&cfg.Port, "port", "p", 389, "port on LDAP server")
	fs.StringVarP(&cfg.URI, "uri", "H", "", "LDAP Uniform Resource Identifier(s)")
	fs.BoolVar(&cfg.Insecure, "insecure", false, "don't validate server certificate")
	fs.BoolVarP(&cfg.StartTLS, "starttls", "Z", false, "StartTLS request")
	fs.StringVarP(&cfg.BindDN, "bind-dn", "D", "", "bind DN")
	fs.StringVarP(&cfg.BindPass, "bind-password", "w", "", "bind password (for simple authentication)")
	fs.BoolVarP(&cfg.PromptPass, "prompt-password", "W", false, "prompt for bind password")
	fs.BoolVarP(&cfg.SimpleAuth, "simple", "x", false, "simple authentication")
	return cfg
}

// addrAndTLS resolves the host:port to dial and the TLS transport to use,
// folding the -H URI override (if given) into the host/port flags.
func (c *Config) addrAndTLS() (host string, port int, opts ldap.TlsOptions, err error) {
	host, port = c.Host, c.Port
	kindTLS := false
	if c.URI != "" {
		u, err := url.Parse(c.URI)
		if err != nil {
			return "", 0, ldap.TlsOptions{}, fmt.Errorf("parsing URI %s: %w", c.URI, err)
		}
		switch u.Scheme {
		case "ldaps":
			kindTLS = true
			if port == 389 {
				port = 636
			}
		case "ldap":
		default:
			return "", 0, ldap.TlsOptions{}, fmt.Errorf("URI scheme must be ldap or ldaps: %s", c.URI)
		}
		host = u.Hostname()
		if p := u.Port(); p != "" {
			port, err = strconv.Atoi(p)
			if err != nil {
				return "", 0, ldap.TlsOptions{}, fmt.Errorf("invalid port in URI %s: %w", c.URI, err)
			}
		}
	}

	switch {
	case kindTLS:
		opts = ldap.Implicit().VerifyCerts(!c.Insecure)
	case c.StartTLS:
		opts = ldap.StartTLS().VerifyCerts(!c.Insecure)
	default:
		opts = ldap.Plain()
	}
	return host, port, opts, nil
}

// TLSConfig exposes the resolved *tls.Config a caller would need to hand
// to some other consumer of the same connection options (e.g. a health
// check reusing the same cert trust settings outside of this package's
// own Connect path).
func (c *Config) TLSConfig() *tls.Config {
	return &tls.Config{InsecureSkipVerify: c.Insecure}
}

// Connect dials and, if configured, binds according to c.
func Connect(ctx context.Context, c *Config) (*ldap.Client, error) {
	host, port, opts, err := c.addrAndTLS()
	if err != nil {
		return nil, err
	}
	if host == "" && strings.TrimSpace(c.Host) == "" {
		host = "127.0.0.1"
	}

	cli, err := ldap.Connect(ctx, host, port, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}

	if c.SimpleAuth {
		pass := []byte(c.BindPass)
		if c.PromptPass {
			fmt.Printf("Enter LDAP Password: ")
			pass, err = gopass.GetPasswd()
			if err != nil {
				return nil, fmt.Errorf("getpasswd failed: %w", err)
			}
		}
		if err := cli.Bind(ctx, c.BindDN, pass); err != nil {
			return nil, fmt.Errorf("bind failed: %w", err)
		}
	}

	return cli, nil
}
