package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"campuspark/pkg/auth"
	"campuspark/pkg/config"
	"campuspark/pkg/logger"

	"github.com/joho/godotenv"
)

// token mints a signed JWT for operators, e.g. to call the approve and
// reject routes. The secret comes from JWT_SECRET.
func main() {
	var subject, roles string
	var ttl time.Duration
	flag.StringVar(&subject, "subject", "", "token subject, usually the operator's email")
	flag.StringVar(&roles, "roles", auth.RoleAdmin, "comma-separated roles")
	flag.DurationVar(&ttl, "ttl", 8*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	log := logger.New(logger.Config{Level: logger.INFO, Format: logger.TEXT, Output: os.Stderr, Service: "campuspark-token"})

	secret := os.Getenv(config.EnvJWTSecret)
	if secret == "" {
		log.Fatal("JWT secret is not set", "env", config.EnvJWTSecret)
	}
	if subject == "" {
		log.Fatal("subject is required")
	}

	token, err := auth.NewService(secret).Issue(subject, splitRoles(roles), ttl)
	if err != nil {
		log.Fatal("Failed to issue token", "error", err)
	}
	fmt.Println(token)
}

func splitRoles(s string) []string {
	var roles []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}
