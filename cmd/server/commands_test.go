package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "migrate"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("subcommand %q not registered: %v", name, err)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Fatal("missing --config flag")
	}
}

func TestRootCommandServesByDefault(t *testing.T) {
	root := newRootCmd()
	cmd, args, err := root.Find([]string{})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if cmd != root || len(args) != 0 {
		t.Fatalf("no-arg invocation resolved to %q %v", cmd.Name(), args)
	}
	if root.RunE == nil {
		t.Fatal("root command has no RunE and would only print help")
	}
	if !root.Runnable() {
		t.Fatal("root command is not runnable")
	}
}

func TestMigrateWithSQLite(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	dbPath := filepath.Join(dir, "hub.db")
	content := "[app]\nlog_level = \"error\"\n\n[database]\ndriver = \"sqlite\"\n\n[database.sqlite]\npath = \"" + filepath.ToSlash(dbPath) + "\"\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"DB_DRIVER", "SQLITE_PATH", "JWT_SECRET", "UPLOAD_MAX_BYTES"} {
		if prev, ok := os.LookupEnv(key); ok {
			os.Unsetenv(key)
			t.Cleanup(func() { os.Setenv(key, prev) })
		}
	}

	root := newRootCmd()
	root.SetArgs([]string{"migrate", "--config", cfgPath, "--env-file", filepath.Join(dir, "absent.env")})
	var out bytes.Buffer
	root.SetOut(&out)
	if err := root.Execute(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("database file not created: %v", err)
	}
	if strings.Contains(out.String(), "Error") {
		t.Fatalf("unexpected output %q", out.String())
	}
}
