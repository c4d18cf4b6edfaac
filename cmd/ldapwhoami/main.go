package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/nylanfs/go-ldap-async/cmd/internal/ldapcmd"
)

func main() {
	cfg := ldapcmd.RegisterFlags(pflag.CommandLine)
	pflag.Parse()

	ctx := context.Background()
	cli, err := ldapcmd.Connect(ctx, cfg)
	if err != nil {
		logrus.Fatal(err)
	}
	defer cli.Close()

	id, err := cli.WhoAmI(ctx)
	if err != nil {
		logrus.Fatal(err)
	}
	fmt.Println(id)
}
