package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func executeCommand(root *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	require.Equal(t, "routeops", rootCmd.Use)

	names := make(map[string]bool)
	for _, sub := range rootCmd.Commands() {
		names[sub.Name()] = true
	}
	for _, expected := range []string{"serve", "worker", "migrate"} {
		require.Truef(t, names[expected], "missing subcommand %q", expected)
	}
}

func TestMigrateCreatesTablesOnSQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "routeops.db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", dsn)

	_, err := executeCommand(rootCmd, "migrate")
	require.NoError(t, err)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	for _, table := range []string{"route_leases", "route_lease_outbox", "deliveries", "route_memberships"} {
		require.Truef(t, db.Migrator().HasTable(table), "missing table %s", table)
	}
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.yaml")
	require.NoError(t, os.WriteFile(valid, []byte("http_port: \"9999\"\n"), 0o600))
	v := viper.New()
	require.NoError(t, readConfig(v, valid))
	require.Equal(t, "9999", v.GetString("http_port"))

	malformed := filepath.Join(dir, "malformed.yaml")
	require.NoError(t, os.WriteFile(malformed, []byte("http_port: [unclosed\n"), 0o600))
	require.Error(t, readConfig(viper.New(), malformed))

	require.Error(t, readConfig(viper.New(), filepath.Join(dir, "missing.yaml")))

	// No routeops.yaml next to the test binary: defaults and env still apply.
	require.NoError(t, readConfig(viper.New(), ""))
}
