package config

import (
	"encoding/json"
	"os"
	"time"

	"passkeyd/internal/flagx"
	"passkeyd/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "5m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. All fields are pointers so that a key absent from the file leaves
// the defaulted value alone. A blanked rp_id or origin would otherwise break
// every ceremony binding check.
type JsonConfig struct {
	EndpointAddr                *string         `json:"endpoint_addr"`
	DatabaseDSN                 *string         `json:"database_dsn"`
	SecretKey                   *string         `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	SessionValidityDuration     *timex.Duration `json:"session_validity_duration"`
	RPID                        *string         `json:"rp_id"`
	RPName                      *string         `json:"rp_name"`
	Origin                      *string         `json:"origin"`
	ChallengeTTL                *timex.Duration `json:"challenge_ttl"`
	RequireUserVerification     *bool           `json:"require_user_verification"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The JSON file path is taken from the -c or -config command-line flags.
// If neither is set, no JSON file is loaded. If the file cannot be read or
// contains invalid JSON, the function panics.
//
// The caller is expected to merge these values with defaults and
// command-line flags as part of the full configuration process.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	if c.EndpointAddr != nil {
		config.EndpointAddr = *c.EndpointAddr
	}
	if c.DatabaseDSN != nil {
		config.DatabaseDSN = *c.DatabaseDSN
	}
	if c.SecretKey != nil {
		config.SecretKey = *c.SecretKey
	}
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityDuration.Duration)
	}
	if c.SessionValidityDuration != nil {
		config.SessionValidityDuration = time.Duration(c.SessionValidityDuration.Duration)
	}
	if c.RPID != nil {
		config.RPID = *c.RPID
	}
	if c.RPName != nil {
		config.RPName = *c.RPName
	}
	if c.Origin != nil {
		config.Origin = *c.Origin
	}
	if c.ChallengeTTL != nil {
		config.ChallengeTTL = time.Duration(c.ChallengeTTL.Duration)
	}
	if c.RequireUserVerification != nil {
		config.RequireUserVerification = *c.RequireUserVerification
	}
}
