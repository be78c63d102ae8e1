// Command admintoken mints an admin bearer token for the AirLens admin API
// using the server's JWT settings.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/airlens/airlens/internal/auth"
	"github.com/airlens/airlens/internal/config"
)

func main() {
	subject := flag.String("subject", "", "operator identity recorded in the token (required)")
	role := flag.String("role", auth.RoleAdmin, "role claim")
	ttl := flag.Duration("ttl", auth.AccessTokenExpiry, "token lifetime")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if *subject == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: cfg.JWT.SigningKey,
		Issuer:     cfg.JWT.Issuer,
		Audience:   cfg.JWT.Audience,
	})

	token, expiresAt, err := jwtService.GenerateAccessToken(*subject, *role, *ttl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to mint token")
	}

	log.Info().
		Str("subject", *subject).
		Str("role", *role).
		Str("expires_at", expiresAt.Format(time.RFC3339)).
		Msg("token minted")
	fmt.Println(token)
}
