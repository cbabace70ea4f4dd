package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/common-nighthawk/go-figure"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/scothinks/bioverify/authapi"
	"github.com/scothinks/bioverify/client"
	"github.com/scothinks/bioverify/internal/config"
	"github.com/scothinks/bioverify/session"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "bioverify: %s\n", err)
		os.Exit(1)
	}
}

func run(args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			debug.PrintStack()
			returnError = errors.Errorf("panic recovered: %v", r)
		}
	}()

	if len(args) == 0 {
		usage()
		return errors.New("a command is required")
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	c, err := client.New(config.Env{},
		client.WithLogger(log),
		client.WithNavigator(session.NavigatorFunc(func(route string) {
			fmt.Printf("-> %s\n", route)
		})),
	)
	if err != nil {
		return errors.Wrap(err, "building client")
	}

	ctx := context.Background()

	switch args[0] {
	case "login":
		return login(ctx, c, args[1:])
	case "logout":
		c.Session.Logout(ctx)
		return nil
	case "whoami":
		return whoami(c)
	case "record":
		return record(ctx, c)
	case "stats":
		return stats(ctx, c)
	default:
		usage()
		return errors.Errorf("unknown command %q", args[0])
	}
}

func login(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("login requires -email and -password")
	}

	if err := c.Session.Login(ctx, authapi.Credentials{Email: *email, Password: *password}); err != nil {
		return errors.Wrap(err, "login failed")
	}
	fmt.Println("logged in")
	return nil
}

func whoami(c *client.Client) error {
	if !c.Session.IsLoggedIn() {
		fmt.Println("not logged in")
		return nil
	}

	claimSet, err := c.Session.Claims()
	if err != nil {
		return errors.Wrap(err, "reading session")
	}
	fmt.Printf("subject: %s\nrole:    %s\ntenant:  %s\nstatus:  %s\n",
		claimSet.Subject, claimSet.Role, claimSet.TenantID, claimSet.Status)
	return nil
}

func record(ctx context.Context, c *client.Client) error {
	r, err := c.Records.CurrentUserRecord(ctx)
	if err != nil {
		return errors.Wrap(err, "fetching record")
	}
	fmt.Printf("%s  %s  %s  %s\n", r.ID, r.FullName, r.BusinessUnit, r.Status)
	return nil
}

func stats(ctx context.Context, c *client.Client) error {
	s, err := c.Records.DashboardStats(ctx)
	if err != nil {
		return errors.Wrap(err, "fetching stats")
	}
	fmt.Printf("records: %d  verified: %d  validated: %d  pending: %d\n",
		s.TotalUniqueRecords, s.TotalVerified, s.TotalValidated, s.TotalPendingApproval)
	return nil
}

func usage() {
	figure.NewFigure("BioVerify", "cybermedium", true).Print()
	fmt.Println()
	fmt.Println("usage: bioverify <command>")
	fmt.Println()
	fmt.Println("commands:")
	fmt.Println("  login -email <email> -password <password>")
	fmt.Println("  logout")
	fmt.Println("  whoami")
	fmt.Println("  record")
	fmt.Println("  stats")
}
