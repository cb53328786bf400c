package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/andsokolov/taskdeck/internal/client/session"
)

func (c *Cli) RunLogout(ctx context.Context) error {
	if err := c.gateway.Resume(ctx); err != nil {
		if errors.Is(err, session.ErrNotAuthenticated) {
			fmt.Println("Not logged in.")
			return nil
		}
		return err
	}

	if err := c.gateway.Logout(ctx); err != nil {
		return err
	}

	fmt.Println("✓ Logged out.")
	return nil
}
