// Command devtoken mints HS256 bearer tokens for AUTH_MODE=hmac. It reads
// the same environment as the API.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"feedback-hub/internal/auth"
	"feedback-hub/internal/config"
)

func main() {
	sub := flag.String("sub", "dev-user", "token subject")
	email := flag.String("email", "", "email claim (defaults to <sub>@example.com)")
	name := flag.String("name", "", "display name claim")
	groups := flag.String("groups", "", "comma separated groups, e.g. Feedback-Leaders")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.AuthMode != config.AuthModeHMAC {
		fmt.Fprintln(os.Stderr, "devtoken: AUTH_MODE must be hmac")
		os.Exit(1)
	}

	signer, err := auth.NewHMACVerifier(cfg.HMACSecret, cfg.HMACIssuer, cfg.HMACAudience)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	c := auth.Claims{Subject: *sub, Email: *email, Name: *name}
	if c.Email == "" {
		c.Email = *sub + "@example.com"
	}
	for _, g := range strings.Split(*groups, ",") {
		if g = strings.TrimSpace(g); g != "" {
			c.Groups = append(c.Groups, g)
		}
	}

	tok, err := signer.Sign(c, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
