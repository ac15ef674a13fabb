package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// gen-token mints HS256 bearer tokens for a server running with
// AUTH_TEST_MODE=1. The subject must match a seeded user id or the server
// rejects the credential.

func main() {
	var (
		subject = flag.String("sub", "", "subject id to mint the token for")
		ttl     = flag.Duration("ttl", time.Hour, "token lifetime")
	)
	flag.Parse()

	if *subject == "" {
		log.Fatal("-sub is required")
	}

	token, err := testToken(*subject, *ttl)
	if err != nil {
		log.Fatalf("generate token: %v", err)
	}
	fmt.Println(token)
}

func testToken(subject string, ttl time.Duration) (string, error) {
	secret := os.Getenv("TEST_JWT_SECRET")
	if secret == "" {
		return "", errors.New("TEST_JWT_SECRET must be set")
	}
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(ttl).Unix(),
		"iat": time.Now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
