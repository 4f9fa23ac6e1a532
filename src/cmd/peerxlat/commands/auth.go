// FILE: peerxlat/src/cmd/peerxlat/commands/auth.go
package commands

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"peerxlat/src/internal/auth"

	"golang.org/x/term"
)

const defaultKeyLength = 32

// AuthCommand generates admin API credentials.
type AuthCommand struct {
	output io.Writer
	errOut io.Writer
	// readPassword reads one line without echo
	readPassword func() ([]byte, error)
}

func NewAuthCommand() *AuthCommand {
	return &AuthCommand{
		output: os.Stdout,
		errOut: os.Stderr,
		readPassword: func() ([]byte, error) {
			return term.ReadPassword(int(syscall.Stdin))
		},
	}
}

func (ac *AuthCommand) Execute(args []string) error {
	cmd := flag.NewFlagSet("auth", flag.ContinueOnError)
	cmd.SetOutput(ac.errOut)

	var (
		username     = cmd.String("u", "", "Username")
		usernameLong = cmd.String("user", "", "Username")
		password     = cmd.String("p", "", "Password (will prompt if not provided)")
		passwordLong = cmd.String("password", "", "Password (will prompt if not provided)")

		genToken     = cmd.Bool("t", false, "Issue a signed JWT")
		genTokenLong = cmd.Bool("token", false, "Issue a signed JWT")
		key          = cmd.String("key", "", "JWT signing key (generated if empty)")
		issuer       = cmd.String("issuer", "", "JWT issuer claim")
		ttl          = cmd.Duration("ttl", 24*time.Hour, "JWT lifetime")

		genKey     = cmd.Bool("k", false, "Generate a JWT signing key only")
		genKeyLong = cmd.Bool("gen-key", false, "Generate a JWT signing key only")
		keyLen     = cmd.Int("l", defaultKeyLength, "Signing key length in bytes")
		keyLenLong = cmd.Int("length", defaultKeyLength, "Signing key length in bytes")
	)

	cmd.Usage = func() {
		fmt.Fprint(ac.errOut, ac.Help())
	}

	if err := cmd.Parse(args); err != nil {
		return err
	}
	if cmd.NArg() > 0 {
		return fmt.Errorf("unexpected argument(s): %s", strings.Join(cmd.Args(), " "))
	}

	finalUsername := coalesceString(*username, *usernameLong)
	finalPassword := coalesceString(*password, *passwordLong)
	finalKeyLen := coalesceInt(*keyLen, *keyLenLong, defaultKeyLength)

	if coalesceBool(*genKey, *genKeyLong) {
		return ac.generateKey(finalKeyLen)
	}

	if finalUsername == "" {
		cmd.Usage()
		return fmt.Errorf("username required")
	}

	if coalesceBool(*genToken, *genTokenLong) {
		return ac.generateToken(finalUsername, *key, *issuer, *ttl, finalKeyLen)
	}

	return ac.generateBasicAuth(finalUsername, finalPassword)
}

func (ac *AuthCommand) Description() string {
	return "Generate admin API credentials (bcrypt hashes, JWTs)"
}

func (ac *AuthCommand) Help() string {
	return `Auth Command - Generate credentials for the peerxlat admin API

Usage:
  peerxlat auth [options]

Options:
  -u, --user <name>        Username (basic) or token subject (JWT)
  -p, --password <pass>    Password (will prompt if not provided)
  -t, --token              Issue a signed HS256 JWT instead of a password hash
      --key <key>          JWT signing key (a new one is generated if empty)
      --issuer <iss>       JWT issuer claim, must match admin.auth.jwt_issuer
      --ttl <duration>     JWT lifetime (default: 24h)
  -k, --gen-key            Print a new random signing key and exit
  -l, --length <bytes>     Signing key length in bytes (default: 32)

Examples:
  # bcrypt hash for [admin.auth] type = "basic"
  peerxlat auth -u ops

  # JWT for [admin.auth] type = "jwt"
  peerxlat auth -u deploy-bot -t --key "$PEERXLAT_ADMIN_AUTH_JWT_SIGNING_KEY" --ttl 1h

Output is a configuration snippet ready to paste into peerxlat.toml.
`
}

func (ac *AuthCommand) generateBasicAuth(username, password string) error {
	if password == "" {
		var err error
		password, err = ac.promptForPassword()
		if err != nil {
			return err
		}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	fmt.Fprintln(ac.output, "\n# Basic auth configuration for the admin API")
	fmt.Fprintln(ac.output, "[admin.auth]")
	fmt.Fprintln(ac.output, `type = "basic"`)
	fmt.Fprintln(ac.output, "")
	fmt.Fprintln(ac.output, "[[admin.auth.users]]")
	fmt.Fprintf(ac.output, "username = %q\n", username)
	fmt.Fprintf(ac.output, "password_hash = %q\n", hash)
	return nil
}

func (ac *AuthCommand) generateToken(subject, key, issuer string, ttl time.Duration, keyLen int) error {
	newKey := key == ""
	if newKey {
		var err error
		if key, err = auth.GenerateSigningKey(keyLen); err != nil {
			return err
		}
	}

	token, err := auth.IssueToken(key, issuer, subject, ttl)
	if err != nil {
		return err
	}

	if newKey {
		fmt.Fprintln(ac.output, "\n# JWT configuration for the admin API")
		fmt.Fprintln(ac.output, "[admin.auth]")
		fmt.Fprintln(ac.output, `type = "jwt"`)
		fmt.Fprintf(ac.output, "jwt_signing_key = %q\n", key)
		if issuer != "" {
			fmt.Fprintf(ac.output, "jwt_issuer = %q\n", issuer)
		}
		fmt.Fprintln(ac.output, "")
	}
	fmt.Fprintf(ac.output, "# Token for %s, expires %s\n", subject, time.Now().Add(ttl).UTC().Format(time.RFC3339))
	fmt.Fprintln(ac.output, token)
	return nil
}

func (ac *AuthCommand) generateKey(length int) error {
	if length < 32 {
		fmt.Fprintln(ac.errOut, "Warning: HS256 keys shorter than 32 bytes are rejected, using 32")
	}
	if length > 512 {
		return fmt.Errorf("key length exceeds maximum (512 bytes)")
	}

	key, err := auth.GenerateSigningKey(length)
	if err != nil {
		return err
	}
	fmt.Fprintln(ac.output, key)
	return nil
}

func (ac *AuthCommand) promptForPassword() (string, error) {
	pass1, err := ac.promptPassword("Enter password: ")
	if err != nil {
		return "", err
	}
	pass2, err := ac.promptPassword("Confirm password: ")
	if err != nil {
		return "", err
	}
	if pass1 != pass2 {
		return "", fmt.Errorf("passwords don't match")
	}
	return pass1, nil
}

func (ac *AuthCommand) promptPassword(prompt string) (string, error) {
	fmt.Fprint(ac.errOut, prompt)
	password, err := ac.readPassword()
	fmt.Fprintln(ac.errOut)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}
