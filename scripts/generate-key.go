// Package main is a development utility for generating the AES-256-GCM key that
// encrypts organization RADIUS tokens at rest. It prints the base64-encoded key
// together with the environment variable and YAML snippet to configure it, so an
// operator can bootstrap a deployment without reading the config reference.
// Generate one key per environment and keep it out of version control — losing
// the key makes every stored token cipher unreadable and forces a rotation of
// all organization tokens.
package main

import (
	"encoding/base64"
	"fmt"
	"log"

	"github.com/radius-gateway/radius-gateway/internal/crypto"
)

func main() {
	key, err := crypto.GenerateKey()
	if err != nil {
		log.Fatal(err)
	}

	encoded := base64.StdEncoding.EncodeToString(key)

	fmt.Println("==========================================================")
	fmt.Println("Token Cipher Key Generated (AES-256-GCM)")
	fmt.Println("==========================================================")
	fmt.Printf("\nKey (base64): %s\n", encoded)
	fmt.Println("\n==========================================================")
	fmt.Println("Environment variable:")
	fmt.Println("==========================================================")
	fmt.Printf("\nexport RGW_CRYPTO_TOKEN_CIPHER_KEY='%s'\n", encoded)
	fmt.Println("\n==========================================================")
	fmt.Println("config.yaml:")
	fmt.Println("==========================================================")
	fmt.Printf("\ncrypto:\n  token_cipher_key: \"%s\"\n", encoded)
	fmt.Println("\n==========================================================")
}
