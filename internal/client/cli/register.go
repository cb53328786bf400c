package cli

import (
	"context"
	"fmt"

	"github.com/andsokolov/taskdeck/internal/validation"
)

func (c *Cli) RunRegister(ctx context.Context) error {
	fmt.Println("=== Register ===")
	fmt.Println()

	username, err := readInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}
	if err := validation.ValidateUsername(username); err != nil {
		return fmt.Errorf("invalid username: %w", err)
	}

	email, err := readInput("Email: ")
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}
	if err := validation.ValidateEmail(email); err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return fmt.Errorf("invalid password: %w", err)
	}

	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		return fmt.Errorf("failed to read password confirmation: %w", err)
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	fmt.Println()
	fmt.Println("Registering...")

	auth, err := c.gateway.Register(ctx, username, email, password)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("✓ Registration successful!")
	fmt.Printf("Username: %s\n", auth.User.Username)
	fmt.Printf("Email:    %s\n", auth.User.Email)
	fmt.Println()
	fmt.Println("Your session has been saved.")

	return nil
}
