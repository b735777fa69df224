// ABOUTME: Authentication CLI commands
// ABOUTME: Login, register, logout and whoami over the stored bearer token
package cli

import (
	"bufio"
	"errors"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/harperreed/telemsg/api"
)

// readPassword prompts on the terminal without echo. Piped input is read as a line.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pw), nil
}

// LoginCommand signs in and stores the token for later commands.
func LoginCommand(client *api.Client, args []string) error {
	fs := flag.NewFlagSet("auth login", flag.ExitOnError)
	username := fs.String("username", "", "Username (required)")
	password := fs.String("password", "", "Password (prompted when omitted)")
	_ = fs.Parse(args)

	if *password == "" && *username != "" {
		pw, err := readPassword("Password: ")
		if err != nil {
			return err
		}
		*password = pw
	}
	if msg := api.ValidateLogin(*username, *password); msg != "" {
		return errors.New(msg)
	}

	res, err := client.Login(context.Background(), *username, *password)
	if err != nil {
		return errors.New(api.DescribeLoginError(err))
	}

	fmt.Printf("✓ Signed in as %s (@%s)\n", res.User.Name, res.User.Username)
	if res.User.IsAdmin {
		fmt.Println("  Administrator")
	}
	return nil
}

// RegisterCommand creates an account and signs in.
func RegisterCommand(client *api.Client, args []string) error {
	fs := flag.NewFlagSet("auth register", flag.ExitOnError)
	name := fs.String("name", "", "Display name (required)")
	username := fs.String("username", "", "Username (required)")
	password := fs.String("password", "", "Password (prompted when omitted)")
	_ = fs.Parse(args)

	confirm := *password
	if *password == "" {
		pw, err := readPassword("Password: ")
		if err != nil {
			return err
		}
		again, err := readPassword("Confirm password: ")
		if err != nil {
			return err
		}
		*password, confirm = pw, again
	}
	if msg := api.ValidateRegistration(*name, *username, *password, confirm); msg != "" {
		return errors.New(msg)
	}

	res, err := client.Register(context.Background(), *name, *username, *password)
	if err != nil {
		return errors.New(api.DescribeRegisterError(err))
	}

	fmt.Printf("✓ Account created: %s (@%s)\n", res.User.Name, res.User.Username)
	return nil
}

// LogoutCommand ends the session. The local token is dropped even if the backend is unreachable.
func LogoutCommand(client *api.Client, _ []string) error {
	if client.Token() == "" {
		fmt.Println("Not signed in")
		return nil
	}
	tok := client.Token()
	if err := client.ClearToken(); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	if err := client.LogoutWithToken(context.Background(), tok); err != nil {
		fmt.Printf("warning: %v\n", err)
	}
	fmt.Println("✓ Signed out")
	return nil
}

// WhoamiCommand prints the signed-in user.
func WhoamiCommand(client *api.Client, _ []string) error {
	if client.Token() == "" {
		return fmt.Errorf("not signed in (run: telemsg auth login)")
	}
	u, err := client.CurrentUser(context.Background())
	if err != nil {
		return fmt.Errorf("failed to fetch current user: %w", err)
	}

	fmt.Printf("%s (@%s)\n", u.Name, u.Username)
	fmt.Printf("  ID: %s\n", u.ID)
	if u.Department != "" {
		fmt.Printf("  Department: %s\n", u.Department)
	}
	if u.Role != "" {
		fmt.Printf("  Role: %s\n", u.Role)
	}
	if u.IsAdmin {
		fmt.Println("  Administrator")
	}
	return nil
}
