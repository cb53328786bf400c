package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andsokolov/taskdeck/internal/client/session"
)

func (c *Cli) RunStatus(ctx context.Context) error {
	err := c.gateway.Resume(ctx)
	if errors.Is(err, session.ErrNotAuthenticated) {
		fmt.Println("Status: not authenticated")
		fmt.Println("Run 'taskdeck login' to start a session.")
		return nil
	}
	if err != nil {
		return err
	}

	auth, err := c.gateway.Session()
	if err != nil {
		return err
	}

	fmt.Println("Status: authenticated")
	fmt.Printf("Username: %s\n", auth.User.Username)
	fmt.Printf("Email:    %s\n", auth.User.Email)
	if time.Now().After(auth.ExpiresAt) {
		fmt.Println("Access token: expired (will be refreshed on next request)")
	} else {
		fmt.Printf("Access token expires at: %s\n", auth.ExpiresAt.Format(time.RFC3339))
	}

	return nil
}
