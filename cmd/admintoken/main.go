// Command admintoken mints an operator token for the /cleanup endpoints,
// signed with the server's JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"salonbook/config"
	"salonbook/utils"
)

func main() {
	subject := flag.String("subject", "", "Operator identity recorded in the token (required)")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "error: -subject is required")
		os.Exit(1)
	}
	if *ttl <= 0 {
		fmt.Fprintln(os.Stderr, "error: -ttl must be positive")
		os.Exit(1)
	}

	config.LoadConfig()
	token, err := utils.GenerateAdminToken(config.AppConfig.JWTSecret, *subject, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
