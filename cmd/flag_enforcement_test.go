package cmd

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func TestCommandsRequireUser(t *testing.T) {
	commands := []*cobra.Command{addReportCmd, deleteReportCmd, logCmd, addTargetCmd}
	for _, c := range commands {
		viper.Reset()

		// Ensure user is empty
		viper.Set("user", "")

		err := c.PreRunE(c, []string{})
		if err == nil {
			t.Errorf("%s: Expected error when user is missing, got nil", c.Name())
		} else if err.Error() != "required flag(s) \"user\" not set" {
			t.Errorf("%s: Expected 'required flag(s) \"user\" not set', got %v", c.Name(), err)
		}

		// Set user and check success
		viper.Set("user", "testuser")
		if err := c.PreRunE(c, []string{}); err != nil {
			t.Errorf("%s: Expected nil when user is set, got %v", c.Name(), err)
		}
	}
}

func TestEmailCommandsRequireFrom(t *testing.T) {
	for _, c := range []*cobra.Command{emailCmd, sendReportsCmd} {
		viper.Reset()
		viper.Set("from", "")

		err := c.PreRunE(c, []string{"someone@example.com"})
		if err == nil {
			t.Errorf("%s: Expected error when from is missing, got nil", c.Name())
		} else if err.Error() != "required flag(s) \"from\" not set" {
			t.Errorf("%s: Expected 'required flag(s) \"from\" not set', got %v", c.Name(), err)
		}

		viper.Set("from", "me@example.com")
		if err := c.PreRunE(c, []string{"someone@example.com"}); err != nil {
			t.Errorf("%s: Expected nil when from is set, got %v", c.Name(), err)
		}
	}
}
