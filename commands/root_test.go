package commands

import "testing"

func TestNewRootWiring(t *testing.T) {
	root := NewRoot()

	for _, name := range []string{"generate", "batch", "watch", "status", "purge", "invalidate", "version"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil {
			t.Fatalf("find %s: %v", name, err)
		}
		if cmd == root {
			t.Errorf("subcommand %s not registered", name)
		}
	}
}

func TestRunFlagsRegistered(t *testing.T) {
	root := NewRoot()

	runFlagNames := []string{
		"force-api", "skip-image", "skip-intent", "intent-only",
		"min-score", "image-count", "no-auto-image",
	}

	// generate, batch, and watch all accept the per-run switches.
	for _, name := range []string{"generate", "batch", "watch"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil {
			t.Fatalf("find %s: %v", name, err)
		}
		for _, flag := range runFlagNames {
			if cmd.Flags().Lookup(flag) == nil {
				t.Errorf("%s missing --%s", name, flag)
			}
		}
	}
}

func TestPersistentFlags(t *testing.T) {
	root := NewRoot()

	for _, flag := range []string{"config", "output", "log-level", "models", "metrics-file"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing persistent --%s", flag)
		}
	}
}
