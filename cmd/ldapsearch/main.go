package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/nylanfs/go-ldap-async/cmd/internal/ldapcmd"
	"github.com/nylanfs/go-ldap-async/ldap"
)

var (
	flagBaseDN = pflag.StringP("base-dn", "b", "", "base dn for search")
	flagScope  = pflag.StringP("scope", "s", "sub", "one of base, one or sub (search scope)")
)

var scopes = map[string]ldap.Scope{
	"base": ldap.ScopeBaseObject,
	"one":  ldap.ScopeSingleLevel,
	"sub":  ldap.ScopeWholeSubtree,
}

func main() {
	cfg := ldapcmd.RegisterFlags(pflag.CommandLine)
	pflag.Parse()

	scope, ok := scopes[*flagScope]
	if !ok {
		logrus.Fatalf("unknown scope %s", *flagScope)
	}

	b := ldap.NewSearchRequest(*flagBaseDN).Scope(scope)

	// Positional args: "filter attribute,attribute,..." or either by
	// itself. A filter string always starts with '('.
	args := pflag.Args()
	n := 0
	if len(args) > n && len(args[n]) > 0 && args[n][0] == '(' {
		b = b.FilterString(args[n])
		n++
	}
	if len(args) > n {
		b = b.Attributes(strings.Split(args[n], ",")...)
	}

	req, err := b.Build()
	if err != nil {
		logrus.Fatalf("failed to build search request: %s", err)
	}

	ctx := context.Background()
	cli, err := ldapcmd.Connect(ctx, cfg)
	if err != nil {
		logrus.Fatal(err)
	}
	defer cli.Close()

	stream, err := cli.Search(ctx, req)
	if err != nil {
		logrus.Fatalf("search failed: %s", err)
	}
	defer stream.Close()

	first := true
	for {
		entry, err := stream.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			logrus.Fatalf("search failed: %s", err)
		}
		if !first {
			fmt.Println()
		}
		first = false
		_ = entry.WriteLDIF(os.Stdout)
	}
}
