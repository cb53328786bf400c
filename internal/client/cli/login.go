package cli

import (
	"context"
	"fmt"
	"time"
)

func (c *Cli) RunLogin(ctx context.Context) error {
	fmt.Println("=== Login ===")
	fmt.Println()

	email, err := readInput("Email: ")
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	fmt.Println()
	fmt.Println("Authenticating...")

	auth, err := c.gateway.Login(ctx, email, password)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("✓ Login successful!")
	fmt.Printf("Username: %s\n", auth.User.Username)
	fmt.Printf("Access token expires at: %s\n", auth.ExpiresAt.Format(time.RFC3339))
	fmt.Println()
	fmt.Println("Your session has been saved.")

	return nil
}
