package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andsokolov/taskdeck/internal/client/session"
)

func (c *Cli) RunWhoami(ctx context.Context) error {
	if err := c.gateway.Resume(ctx); err != nil {
		if errors.Is(err, session.ErrNotAuthenticated) {
			return fmt.Errorf("not authenticated, please run 'taskdeck login' first")
		}
		return err
	}

	// Запрос идет через gateway: протухший access token обновится сам
	profile, err := c.gateway.Me(ctx)
	if err != nil {
		if errors.Is(err, session.ErrSessionExpired) {
			return fmt.Errorf("session expired, please run 'taskdeck login' again")
		}
		return err
	}

	fmt.Printf("ID:         %s\n", profile.ID)
	fmt.Printf("Username:   %s\n", profile.Username)
	fmt.Printf("Email:      %s\n", profile.Email)
	fmt.Printf("Registered: %s\n", profile.CreatedAt.Format(time.RFC3339))

	return nil
}
