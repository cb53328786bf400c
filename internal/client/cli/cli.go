// Package cli implements the interactive TaskDeck client commands.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/andsokolov/taskdeck/internal/client/session"
)

// Cli wires the commands to the session gateway
type Cli struct {
	gateway *session.Gateway
}

func New(gateway *session.Gateway) *Cli {
	return &Cli{gateway: gateway}
}

func PrintUsage() {
	fmt.Println("TaskDeck Client")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  taskdeck [OPTIONS] COMMAND")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version      Show version information")
	fmt.Println("  --server URL   Server URL (default: http://localhost:8080)")
	fmt.Println("  --db PATH      Path to local database (default: taskdeck-client.db)")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  register       Register new user")
	fmt.Println("  login          Login to server")
	fmt.Println("  logout         Logout and revoke the session")
	fmt.Println("  status         Show authentication status")
	fmt.Println("  whoami         Show the current user's profile")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  taskdeck register")
	fmt.Println("  taskdeck login")
	fmt.Println("  taskdeck --server https://example.com whoami")
}

// readInput читает строку из stdin
func readInput(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// readPassword читает пароль без отображения на экране
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // Переход на новую строку после ввода пароля
	if err != nil {
		return "", err
	}
	return string(passwordBytes), nil
}
