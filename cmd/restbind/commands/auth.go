package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
	"golang.org/x/term"

	"github.com/restbind/restbind/internal/app"
)

// authCommand returns the 'auth' subcommand for managing provider authentication.
func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage provider authentication",
		Commands: []*cli.Command{
			authLoginCommand(),
			authLogoutCommand(),
		},
	}
}

// authLoginCommand returns the 'auth login' subcommand.
func authLoginCommand() *cli.Command {
	return &cli.Command{
		Name:   "login",
		Usage:  "Authorize against the configured provider and save credentials",
		Action: authLoginAction,
	}
}

// authLogoutCommand returns the 'auth logout' subcommand.
func authLogoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Clear saved credentials",
		Action: authLogoutAction,
	}
}

// authLoginAction implements the interactive authorization-code flow.
func authLoginAction(ctx context.Context, cmd *cli.Command) error {
	application, err := setup(cmd)
	if err != nil {
		return err
	}

	if application.Config.Auth.Storage == app.TokenStorageTypeEnv {
		return fmt.Errorf("cannot login with env storage (read-only). Configure file or keyring storage")
	}

	source, err := application.OAuthSource()
	if err != nil {
		return err
	}

	token, err := runAuthorizationFlow(ctx, application)
	if err != nil {
		return fmt.Errorf("oauth login failed: %w", err)
	}

	if err := source.SetToken(ctx, token); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}

	fmt.Println()
	fmt.Println("=== Login Successful ===")
	fmt.Println("Credential saved to configured storage")

	return nil
}

// authLogoutAction clears the saved credential.
func authLogoutAction(ctx context.Context, cmd *cli.Command) error {
	application, err := setup(cmd)
	if err != nil {
		return err
	}

	if application.Config.Auth.Storage == app.TokenStorageTypeEnv {
		return fmt.Errorf("cannot logout with env storage (read-only). Configure file or keyring storage")
	}

	source, err := application.OAuthSource()
	if err != nil {
		return err
	}

	if err := source.Logout(ctx); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}

	fmt.Println()
	fmt.Println("=== Logout Successful ===")
	fmt.Println("Credentials cleared from configured storage")

	return nil
}

// readSecureInput reads user input with hidden display and context cancellation support.
// Goroutine+select pattern required because term.ReadPassword has no native context support.
func readSecureInput(ctx context.Context, prompt string) (string, error) {
	fmt.Print(prompt)
	defer fmt.Println()

	type result struct {
		value string
		err   error
	}
	resultCh := make(chan result, 1)

	go func() {
		inputBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		resultCh <- result{value: string(inputBytes), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-resultCh:
		if res.err != nil {
			return "", fmt.Errorf("failed to read input: %w", res.err)
		}
		return res.value, nil
	}
}

// runAuthorizationFlow walks the user through the consent step and exchanges
// the pasted authorization code for a token.
func runAuthorizationFlow(ctx context.Context, application *app.App) (*oauth2.Token, error) {
	authorizer := application.Authorizer()

	verifier := oauth2.GenerateVerifier()
	authURL := authorizer.AuthCodeURL(verifier)

	fmt.Println("=== OAuth Login ===")
	fmt.Println()
	fmt.Printf("1. Visit this URL in your browser:\n   %s\n\n", authURL)
	fmt.Println("2. Authorize the application")
	fmt.Println("3. Paste the authorization code")

	code, err := readSecureInput(ctx, "\nEnter authorization code: ")
	if err != nil {
		return nil, err
	}

	if code == "" {
		return nil, fmt.Errorf("authorization code cannot be empty")
	}

	token, err := authorizer.Exchange(ctx, code, verifier)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	return token, nil
}
