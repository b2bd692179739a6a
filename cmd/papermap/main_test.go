package main

import (
	"testing"

	"github.com/spf13/cobra"

	"github.com/onnwee/citation-map/internal/config"
)

func TestFlagOverridesReachSubcommands(t *testing.T) {
	config.ResetForTest()
	t.Cleanup(config.ResetForTest)

	a := &app{}
	root := newRootCmd(a)
	var got *config.Config
	root.AddCommand(&cobra.Command{
		Use: "inspect",
		RunE: func(cmd *cobra.Command, args []string) error {
			got = a.cfg
			return nil
		},
	})
	root.SetArgs([]string{"--dim", "3", "--papers", "papers.json", "--log-level", "DEBUG", "inspect"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got == nil {
		t.Fatal("subcommand saw no config")
	}
	if got.Layout.Dim != 3 || got.Sources.PapersFile != "papers.json" || got.LogLevel != "debug" {
		t.Errorf("overrides not applied: dim=%d papers=%q log=%q", got.Layout.Dim, got.Sources.PapersFile, got.LogLevel)
	}

	cached, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cached == got || cached.Layout.Dim != config.Defaults().Layout.Dim {
		t.Errorf("flag overrides leaked into the cached config (dim %d)", cached.Layout.Dim)
	}
}

func TestInvalidFlagIsRejected(t *testing.T) {
	config.ResetForTest()
	t.Cleanup(config.ResetForTest)

	root := newRootCmd(&app{})
	root.AddCommand(&cobra.Command{Use: "inspect", RunE: func(*cobra.Command, []string) error { return nil }})
	root.SetArgs([]string{"--dim", "4", "inspect"})
	if err := root.Execute(); err == nil {
		t.Error("expected a validation error for --dim 4")
	}
}
