package main

import (
	"log"
	"os"

	"orderd/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:          "orderd",
		Short:        "Order and payment service",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A missing .env is fine; the environment alone may carry the settings.
			if err := godotenv.Load(); err == nil {
				log.Println("Loaded settings from .env")
			}
		},
	}

	root.AddCommand(newServeCmd(v), newMigrateCmd(v), newTokenCmd(v))
	return root
}

// loadConfig reads the startup configuration once flags have been bound into v.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	return config.Load(v)
}
