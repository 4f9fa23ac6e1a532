// FILE: peerxlat/src/internal/config/auth.go
package config

import (
	"fmt"

	lconfig "github.com/lixenwraith/config"
)

type AuthConfig struct {
	// Authentication type: "none", "basic", "jwt"
	Type string `toml:"type"`

	// Basic auth
	Users []BasicAuthUser `toml:"users"`

	// Realm for WWW-Authenticate header
	Realm string `toml:"realm"`

	// HS256 key for bearer tokens
	JWTSigningKey string `toml:"jwt_signing_key"`

	// Expected issuer (empty = any)
	JWTIssuer string `toml:"jwt_issuer"`
}

type BasicAuthUser struct {
	Username string `toml:"username"`
	// Password hash (bcrypt)
	PasswordHash string `toml:"password_hash"`
}

func validateAuth(auth *AuthConfig) error {
	if auth == nil {
		return nil
	}

	switch auth.Type {
	case "", "none":
	case "basic":
		if len(auth.Users) == 0 {
			return fmt.Errorf("basic auth requires at least one user")
		}
		for i, u := range auth.Users {
			if err := lconfig.NonEmpty(u.Username); err != nil {
				return fmt.Errorf("user %d: missing username", i)
			}
			if err := lconfig.NonEmpty(u.PasswordHash); err != nil {
				return fmt.Errorf("user '%s': missing password_hash", u.Username)
			}
		}
	case "jwt":
		if len(auth.JWTSigningKey) < 32 {
			return fmt.Errorf("jwt_signing_key must be at least 32 bytes")
		}
	default:
		return fmt.Errorf("invalid auth type: %s", auth.Type)
	}

	return nil
}
