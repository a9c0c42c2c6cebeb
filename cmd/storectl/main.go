// Command storectl inspects and clears the storefront's key-value storage and
// mints development session tokens.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"Storefront/internal/auth"
	"Storefront/internal/kv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "storectl:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "storectl",
		Usage: "maintain storefront history and checkout storage",
		Before: func(c *cli.Context) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}
			return nil
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "memory:, sqlite:<dsn> or postgres://...",
				EnvVars: []string{"DATABASE_URL"},
				Value:   "sqlite:file:storefront.db?_pragma=busy_timeout(5000)",
			},
			&cli.StringFlag{
				Name:    "namespace",
				Usage:   "base storage namespace",
				EnvVars: []string{"STORAGE_NAMESPACE"},
				Value:   "storefront",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "keys",
				Usage: "list stored keys",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "prefix", Usage: "only keys starting with this"},
				},
				Action: keysCmd,
			},
			{
				Name:      "get",
				Usage:     "print the raw value of a key",
				ArgsUsage: "<key>",
				Action:    getCmd,
			},
			{
				Name:  "clear",
				Usage: "remove a user's view history, search history and checkout draft",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Usage: "user id", Required: true},
				},
				Action: clearCmd,
			},
			{
				Name:  "token",
				Usage: "mint a session token for local testing",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Usage: "user id (token subject)", Required: true},
					&cli.StringFlag{Name: "email", Usage: "email claim"},
					&cli.DurationFlag{Name: "ttl", Value: time.Hour},
					&cli.StringFlag{Name: "secret", EnvVars: []string{"JWT_SECRET"}, Required: true},
				},
				Action: tokenCmd,
			},
		},
	}
}

func withStorage(c *cli.Context, fn func(ctx context.Context, store kv.Store) error) error {
	backend, err := kv.Open(c.Context, c.String("database-url"))
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	return fn(c.Context, backend.Store)
}

func keysCmd(c *cli.Context) error {
	return withStorage(c, func(ctx context.Context, store kv.Store) error {
		lister, ok := store.(kv.KeyLister)
		if !ok {
			return errors.New("backend cannot list keys")
		}
		keys, err := lister.Keys(ctx, c.String("prefix"))
		if err != nil {
			return err
		}
		for _, k := range keys {
			fmt.Fprintln(c.App.Writer, k)
		}
		return nil
	})
}

func getCmd(c *cli.Context) error {
	key := c.Args().First()
	if key == "" {
		return cli.Exit("usage: storectl get <key>", 2)
	}

	return withStorage(c, func(ctx context.Context, store kv.Store) error {
		v, ok, err := store.GetItem(ctx, key)
		if err != nil {
			return err
		}
		if !ok {
			return cli.Exit("not found: "+key, 1)
		}
		fmt.Fprintln(c.App.Writer, v)
		return nil
	})
}

func clearCmd(c *cli.Context) error {
	ns := kv.Namespace(c.String("namespace")).Child(c.String("user"))

	return withStorage(c, func(ctx context.Context, store kv.Store) error {
		keys := ns.SessionKeys()
		if err := store.MultiRemove(ctx, keys); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "removed %d keys under %s\n", len(keys), ns)
		return nil
	})
}

func tokenCmd(c *cli.Context) error {
	tok, err := auth.NewTokenMaker(c.String("secret")).
		New(c.String("user"), c.String("email"), c.Duration("ttl"))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, tok)
	return nil
}
