package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestAuthCommandStructure(t *testing.T) {
	t.Run("auth command properties", func(t *testing.T) {
		if authCmd.Use != "auth" {
			t.Errorf("expected Use 'auth', got %q", authCmd.Use)
		}
		if authCmd.Short == "" {
			t.Error("expected Short description to be set")
		}
		if authCmd.Long == "" {
			t.Error("expected Long description to be set")
		}
	})

	t.Run("auth has subcommands", func(t *testing.T) {
		foundCommands := make(map[string]bool)
		for _, cmd := range authCmd.Commands() {
			foundCommands[cmd.Name()] = true
		}

		for _, expected := range []string{"login", "logout", "status", "refresh", "whoami"} {
			if !foundCommands[expected] {
				t.Errorf("expected subcommand %q to be registered", expected)
			}
		}
	})

	t.Run("quiet is persistent", func(t *testing.T) {
		flag := authCmd.PersistentFlags().Lookup("quiet")
		if flag == nil {
			t.Fatal("expected --quiet persistent flag")
		}
		if flag.Shorthand != "q" {
			t.Errorf("expected shorthand 'q', got %q", flag.Shorthand)
		}
	})
}

func TestAuthSubcommandFlags(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		flags []string
	}{
		{authLoginCmd, []string{"no-browser", "force"}},
		{authStatusCmd, []string{"verify", "output"}},
		{authLogoutCmd, nil},
		{authRefreshCmd, nil},
		{authWhoamiCmd, nil},
	}

	for _, tt := range tests {
		t.Run(tt.cmd.Name(), func(t *testing.T) {
			if tt.cmd.RunE == nil {
				t.Error("expected RunE to be set")
			}
			if tt.cmd.Args == nil {
				t.Error("expected Args validation to be set")
			}
			for _, name := range tt.flags {
				if tt.cmd.Flags().Lookup(name) == nil {
					t.Errorf("expected --%s flag", name)
				}
			}
		})
	}
}

func TestAuthStatusOutputDefault(t *testing.T) {
	flag := authStatusCmd.Flags().Lookup("output")
	if flag == nil {
		t.Fatal("expected --output flag")
	}
	if flag.Shorthand != "o" {
		t.Errorf("expected shorthand 'o', got %q", flag.Shorthand)
	}
	if flag.DefValue != "table" {
		t.Errorf("expected default 'table', got %q", flag.DefValue)
	}
}

func TestAuthCommandsRejectArgs(t *testing.T) {
	for _, name := range []string{"login", "logout", "status", "refresh", "whoami"} {
		t.Run(name, func(t *testing.T) {
			var stderr bytes.Buffer
			_, err := executeCommand(t, &stderr, t.TempDir(), "auth", name, "extra")
			if err == nil {
				t.Fatal("expected an error for unexpected arguments")
			}
			if !strings.Contains(err.Error(), "unknown command") && !strings.Contains(err.Error(), "accepts 0 arg") {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestAuthHelp(t *testing.T) {
	var stderr bytes.Buffer
	out, err := executeCommand(t, &stderr, t.TempDir(), "auth", "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"login", "logout", "status", "refresh", "whoami", "--quiet"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected help to mention %q", want)
		}
	}
}

func TestAuthPrint(t *testing.T) {
	defer func() { authQuiet = false }()

	var buf bytes.Buffer
	authQuiet = false
	authPrint(&buf, "hello %s\n", "alice")
	authPrintln(&buf, "bye")
	if got := buf.String(); got != "hello alice\nbye\n" {
		t.Errorf("unexpected output %q", got)
	}

	buf.Reset()
	authQuiet = true
	authPrint(&buf, "hidden\n")
	authPrintln(&buf, "hidden")
	if buf.Len() != 0 {
		t.Errorf("expected no output in quiet mode, got %q", buf.String())
	}
}
