// Command tokengen mints a JWT for the galaxy editing endpoints, signed with
// the server's configured secret.
//
//	tokengen -subject alice -role editor -ttl 72h
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"starfield-server/internal/auth"
	"starfield-server/internal/shared/config"
)

func run(args []string, cfg config.AuthConfig, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("tokengen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	subject := fs.String("subject", "", "who the token is issued to")
	role := fs.String("role", auth.RoleEditor, "editor or admin")
	ttl := fs.Duration("ttl", cfg.TokenExpiration, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return fmt.Errorf("-subject is required")
	}

	token, err := auth.GenerateToken(cfg.JWTSecret, cfg.Issuer, *subject, *role, *ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, token)
	return err
}

func main() {
	if err := config.Init(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := run(os.Args[1:], config.GlobalConfig.Auth, os.Stdout, os.Stderr); err != nil {
		if err != flag.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(2)
	}
}
