package cmd

import (
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/krau/konaclassify/config"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "konaclassify",
	Short: "Classify images with pretrained ImageNet models",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.SetPath(configPath)
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: config.C().SlogLevel(),
		})))
		setEnviron()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
	SilenceUsage: true,
}

// setEnviron quiets third-party logging.
func setEnviron() {
	os.Setenv(gin.EnvGinMode, gin.ReleaseMode)
	gin.SetMode(gin.ReleaseMode)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.toml", "path to the config file")
	rootCmd.AddCommand(serveCmd, classifyCmd, modelsCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
