// relayctl is a command-line client for the Gray Logic Relay.
//
// It speaks the relay's one-request-per-connection JSON protocol and derives
// the presented credential digest locally, so the plain password never
// leaves the machine.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/gray-logic-relay/internal/auth"
)

// defaultTimeout covers the relay's 15 s reply wait plus connection overhead.
const defaultTimeout = 20 * time.Second

var errUsage = errors.New("invalid usage")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// run dispatches to a subcommand and writes its result to stdout.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		printUsage(stderr)
		return errUsage
	}

	mode, args := args[0], args[1:]
	switch mode {
	case "salt":
		return runSalt(ctx, args, stdout, stderr)
	case "check":
		return runCheck(ctx, args, stdout, stderr)
	case "publish":
		return runPublish(ctx, args, stdout, stderr)
	case "hash":
		return runHash(args, stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", mode)
		printUsage(stderr)
		return errUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: relayctl <command> [options]

Commands:
  salt      Ask the relay for a user's salt
  check     Verify a username and password against the relay
  publish   Publish a message through the relay
  hash      Create a stored digest for users.json

Run 'relayctl <command> -h' for command-specific options.
`)
}

// connFlags registers the options shared by commands that talk to the relay.
func connFlags(fs *flag.FlagSet) *ClientOptions {
	opts := &ClientOptions{}
	fs.StringVar(&opts.Addr, "addr", "127.0.0.1:5000", "Relay address (host:port)")
	fs.BoolVar(&opts.TLS, "tls", false, "Connect using TLS")
	fs.StringVar(&opts.CAFile, "ca", "", "CA certificate for verifying the relay (with -tls)")
	fs.DurationVar(&opts.Timeout, "timeout", defaultTimeout, "Overall request timeout")
	return opts
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// parse parses args and checks that every named flag was given a value.
func parse(fs *flag.FlagSet, args []string, required map[string]*string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errUsage
		}
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	for name, v := range required {
		if *v == "" {
			fmt.Fprintf(fs.Output(), "-%s is required\n", name)
			fs.Usage()
			return errUsage
		}
	}
	return nil
}

func runSalt(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("salt", stderr)
	opts := connFlags(fs)
	user := fs.String("user", "", "Username")
	if err := parse(fs, args, map[string]*string{"user": user}); err != nil {
		return err
	}

	salt, err := NewClient(*opts).Salt(ctx, *user)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, salt)
	return nil
}

func runCheck(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("check", stderr)
	opts := connFlags(fs)
	user := fs.String("user", "", "Username")
	password := fs.String("password", "", "Password (or RELAYCTL_PASSWORD)")
	*password = os.Getenv("RELAYCTL_PASSWORD")
	if err := parse(fs, args, map[string]*string{"user": user, "password": password}); err != nil {
		return err
	}

	resp, err := NewClient(*opts).Check(ctx, *user, *password)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, resp)
	return nil
}

func runPublish(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("publish", stderr)
	opts := connFlags(fs)
	user := fs.String("user", "", "Username")
	password := fs.String("password", "", "Password (or RELAYCTL_PASSWORD)")
	*password = os.Getenv("RELAYCTL_PASSWORD")
	topic := fs.String("topic", "", "Topic to publish to")
	message := fs.String("message", "", "Message payload")
	if err := parse(fs, args, map[string]*string{"user": user, "password": password, "topic": topic}); err != nil {
		return err
	}

	resp, err := NewClient(*opts).Publish(ctx, *user, *password, *topic, *message)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, resp)
	return nil
}

func runHash(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("hash", stderr)
	password := fs.String("password", "", "Password to hash (or RELAYCTL_PASSWORD)")
	salt := fs.String("salt", "", "Existing salt to reuse (default: random)")
	*password = os.Getenv("RELAYCTL_PASSWORD")
	if err := parse(fs, args, map[string]*string{"password": password}); err != nil {
		return err
	}

	if *salt != "" {
		if len(*salt) != auth.SaltLength {
			return fmt.Errorf("salt must be %d characters, got %d", auth.SaltLength, len(*salt))
		}
		fmt.Fprintln(stdout, auth.DeriveDigest(*password, *salt))
		return nil
	}

	digest, err := auth.NewDigest(*password)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, digest)
	return nil
}
