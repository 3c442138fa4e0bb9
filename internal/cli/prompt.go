package cli

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"
)

// promptSecretHuh asks for a secret with its input masked.
func promptSecretHuh(title, description string) (string, error) {
	var value string

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				Description(description).
				EchoMode(huh.EchoModePassword).
				Value(&value).
				Validate(validateRequired(title)),
		),
	).Run()
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(value), nil
}

// validateRequired returns a validator that rejects blank input.
func validateRequired(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(field + " is required")
		}
		return nil
	}
}
