package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	host    string
	token   string
	account string
)

var rootCmd = &cobra.Command{
	Use:   "weft",
	Short: "Weft CLI",
	Long:  `A developer-facing tool to interact with the Weft ledger API.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&host, "host", "http://localhost:8080", "Weft API URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Bearer token for authentication")
	rootCmd.PersistentFlags().StringVar(&account, "account", "", "Acting account id")
}

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	home, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(home + "/.weft")
	}
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("WEFT")
	viper.AutomaticEnv()

	_ = viper.ReadInConfig() // Missing config file is fine

	if host == "http://localhost:8080" && viper.GetString("host") != "" {
		host = viper.GetString("host")
	}
	if account == "" {
		account = viper.GetString("account")
	}
	if token == "" {
		token = viper.GetString("token")
	}
}

func requireAccount() string {
	if account == "" {
		fmt.Fprintln(os.Stderr, "An acting account is required: pass --account or set it with 'weft config set account <id>'")
		os.Exit(1)
	}
	return account
}
