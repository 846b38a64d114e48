package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/faucetdb/foliogate/internal/config"
)

var (
	cfgFile    string
	appVersion string
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	appVersion = version
	return newRootCmd(version, commit, date).Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "foliogate",
		Short: "Password gate and access requests for portfolio projects",
		Long: `Foliogate guards protected portfolio projects behind a shared password or a
time-limited access token.

It serves the password check and email notification endpoints, and acts as the
client: it opens protected projects, keeps the visitor's tokens and access
requests in local storage, and lets the administrator approve or reject
requests from the terminal or through MCP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./foliogate.yaml)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory for local storage (default: ~/.foliogate)")
	cmd.PersistentFlags().String("store", "", "token storage backend: sqlite, file or memory")
	cmd.PersistentFlags().String("server", "", "base URL of the foliogate HTTP service")
	cmd.PersistentFlags().String("site", "", "public site URL used in access links")
	cmd.PersistentFlags().String("catalog", "", "project catalog YAML file")

	viper.BindPFlag("gate.store", cmd.PersistentFlags().Lookup("store"))
	viper.BindPFlag("gate.server", cmd.PersistentFlags().Lookup("server"))
	viper.BindPFlag("site.url", cmd.PersistentFlags().Lookup("site"))
	viper.BindPFlag("site.catalog", cmd.PersistentFlags().Lookup("catalog"))

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))
	cmd.AddCommand(newOpenCmd())
	cmd.AddCommand(newTokenCmd())
	cmd.AddCommand(newRequestCmd())
	cmd.AddCommand(newProjectCmd())
	cmd.AddCommand(newOpenAPICmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newHashPasswordCmd())
	cmd.AddCommand(newMailCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

func initConfig() {
	if err := config.LoadDotEnv(".env", filepath.Join(resolveDataDir(), ".env")); err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("foliogate")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.foliogate")
	}

	viper.SetEnvPrefix("FOLIOGATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	bindEnvAliases()
	viper.ReadInConfig() // Ignore error - config file is optional
}
