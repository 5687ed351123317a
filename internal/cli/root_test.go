package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "editcore", cmd.Use)
	assert.Contains(t, cmd.Long, "command log")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"log", "replay", "verify", "inspect", "test", "hydrate-rates"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestDatabaseFlagRequired(t *testing.T) {
	for _, name := range []string{"log", "replay", "verify", "inspect", "hydrate-rates"} {
		t.Run(name, func(t *testing.T) {
			cmd := NewRootCommand()
			subCmd, _, err := cmd.Find([]string{name})
			require.NoError(t, err)

			dbFlag := subCmd.Flags().Lookup("db")
			require.NotNil(t, dbFlag)
			assert.Equal(t, "", dbFlag.DefValue)
		})
	}
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	_, err := runCLI(t, "--format", "invalid", "log", "--db", "nope.db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestExitCodeExtraction(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "boom")))
	assert.Equal(t, ExitFailure, GetExitCode(WrapExitError(ExitFailure, "outer", assert.AnError)))
}
