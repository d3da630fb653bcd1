package config

import (
	"flag"
	"os"
	"time"

	"passkeyd/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":3000")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-r int      session validity, minutes
//	-i string   relying party ID (e.g., "example.com")
//	-n string   relying party display name
//	-o string   expected web origin (e.g., "https://example.com")
//	-l int      challenge time-to-live, minutes
//	-v          require user verification
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers in minutes and then converted
//     to time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-r", "-i", "-n", "-o", "-l", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	sessionValidityDuration := fs.Int("r", int(config.SessionValidityDuration.Minutes()), "session_validity_duration (in minutes)")

	fs.StringVar(&config.RPID, "i", config.RPID, "relying party ID")
	fs.StringVar(&config.RPName, "n", config.RPName, "relying party name")
	fs.StringVar(&config.Origin, "o", config.Origin, "expected web origin")

	challengeTTL := fs.Int("l", int(config.ChallengeTTL.Minutes()), "challenge_ttl (in minutes)")

	fs.BoolVar(&config.RequireUserVerification, "v", config.RequireUserVerification, "require user verification")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.SessionValidityDuration = time.Duration(*sessionValidityDuration) * time.Minute
	config.ChallengeTTL = time.Duration(*challengeTTL) * time.Minute
}
