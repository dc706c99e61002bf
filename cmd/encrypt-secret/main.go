// Command encrypt-secret encrypts the brokerage API secret for storage on
// disk. The output file is referenced by upstox.encrypted_secret_path and
// decrypted at startup with upstox.secret_password.
//
// Usage:
//
//	encrypt-secret -out secret.enc
//
// The secret and password are read from the ICTBOT_SECRET and
// ICTBOT_SECRET_PASSWORD environment variables so neither appears in the
// shell history or process list.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tradewire/ictbot/internal/crypto"
)

func main() {
	out := flag.String("out", "secret.enc", "path to write the encrypted secret")
	flag.Parse()

	secret := os.Getenv("ICTBOT_SECRET")
	password := os.Getenv("ICTBOT_SECRET_PASSWORD")
	if secret == "" || password == "" {
		fmt.Fprintln(os.Stderr, "ICTBOT_SECRET and ICTBOT_SECRET_PASSWORD must be set")
		os.Exit(2)
	}

	blob, err := crypto.EncryptSecret(secret, password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "encrypt: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, blob, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", *out, err)
		os.Exit(1)
	}
	fmt.Printf("encrypted secret written to %s\n", *out)
}
