package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/zalando/go-keyring"
)

const (
	tokenFileName  = "artifact_token"
	keyringService = "chefskiss"
	keyringUser    = "artifact_token"
	tokenFileMode  = 0600

	flagToken = "token"
	flagClear = "clear"
)

var (
	// token file location, swapped in tests
	tokenDir = getHomeDir
)

func newAuthCmd() *cli.Command {
	return &cli.Command{
		Name:            "auth",
		HideHelpCommand: true,
		Usage:           "Store the token used to download remote model and data artifacts",
		Action:          cmdAuth,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagToken,
				Usage: "Bearer token sent when downloading remote artifacts (prompted when omitted)",
			},
			&cli.BoolFlag{
				Name:  flagClear,
				Usage: "Remove the stored token",
			},
		},
	}
}

func cmdAuth(_ context.Context, cmd *cli.Command) error {
	if cmd.Bool(flagClear) {
		if err := clearArtifactToken(); err != nil {
			return fmt.Errorf("clearing token: %w", err)
		}
		fmt.Fprintln(stdout, "Token removed")
		return nil
	}

	token := cmd.String(flagToken)
	if token == "" {
		fmt.Fprint(stdout, "Paste the artifact token and hit enter:\n>")
		if _, err := fmt.Scanln(&token); err != nil {
			return fmt.Errorf("reading user input: %w", err)
		}
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token required")
	}

	if err := saveArtifactToken(token); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}

	fmt.Fprintln(stdout, "Token saved")
	return nil
}

func saveArtifactToken(token string) error {
	if err := keyring.Set(keyringService, keyringUser, token); err != nil {
		slog.Warn("keychain unavailable, falling back to file", "error", err)
		return saveArtifactTokenFile(token)
	}

	// Clean up legacy file if it exists
	os.Remove(tokenFilePath())

	return nil
}

// getArtifactToken returns the token from the environment, the keychain or
// the fallback file, in that order. Empty means anonymous download.
func getArtifactToken() string {
	if token := os.Getenv(envPrefix + "TOKEN"); token != "" {
		return token
	}

	token, err := keyring.Get(keyringService, keyringUser)
	if err == nil && token != "" {
		return token
	}

	token, err = getArtifactTokenFile()
	if err != nil {
		slog.Debug("no stored artifact token", "error", err)
		return ""
	}

	// Migrate to keychain
	if migrateErr := keyring.Set(keyringService, keyringUser, token); migrateErr == nil {
		slog.Info("migrated token from file to OS keychain")
		os.Remove(tokenFilePath())
	}

	return token
}

func clearArtifactToken() error {
	if err := keyring.Delete(keyringService, keyringUser); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		slog.Warn("keychain unavailable", "error", err)
	}
	if err := os.Remove(tokenFilePath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func tokenFilePath() string {
	return filepath.Join(tokenDir(), tokenFileName)
}

func saveArtifactTokenFile(token string) error {
	return os.WriteFile(tokenFilePath(), []byte(token), tokenFileMode)
}

func getArtifactTokenFile() (string, error) {
	p := tokenFilePath()
	b, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("reading token file %s: %w", p, err)
	}
	token := strings.TrimSpace(string(b))
	if token == "" {
		return "", fmt.Errorf("token file %s is empty", p)
	}
	return token, nil
}
