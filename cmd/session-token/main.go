package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/nucleon/receipts/internal/infrastructure/auth"
	"github.com/nucleon/receipts/internal/infrastructure/config"
)

// session-token mints a bearer token for a front-desk operator using the
// configured session secret.
func main() {
	var (
		operator string
		ttl      time.Duration
	)
	flag.StringVar(&operator, "operator", "", "Operator name recorded in the token (required)")
	flag.DurationVar(&ttl, "ttl", 0, "Token lifetime (default: session.expiration from configuration)")
	flag.Parse()

	if operator == "" {
		fmt.Fprintln(os.Stderr, "usage: session-token -operator <name> [-ttl 12h]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	sessionCfg := cfg.Session
	if ttl > 0 {
		sessionCfg.Expiration = ttl
	}

	sessions, err := auth.NewSessionService(sessionCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create session service: %v\n", err)
		os.Exit(1)
	}
	token, expiresAt, err := sessions.Generate(operator)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate token: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "token for %q expires %s\n", operator, expiresAt.Format(time.RFC3339))
	fmt.Println(token)
}
