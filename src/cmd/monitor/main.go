// Package main provides the jenkins-monitor CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"jenkins-monitor/src/config"
	_ "jenkins-monitor/src/jenkins" // registers the "jenkins" provider
	"jenkins-monitor/src/logger"
	"jenkins-monitor/src/provider"
)

var (
	jsonOutput bool
	debugFlag  bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "monitor",
	Short: "jenkins-monitor - Jenkins pipeline status and failure triage",
	Long: `jenkins-monitor reads build status from a Jenkins controller and works
out which pipeline stage failed and which shell command broke it.

Jenkins access is configured through JENKINS_URL, JENKINS_USER and
JENKINS_TOKEN. The dashboard API additionally needs JWT_SECRET.
Set REDPANDA_BROKERS to publish failure events to Redpanda.`,
	SilenceUsage: true,
}

// env is the per-command runtime built from configuration.
type env struct {
	cfg      *config.Config
	provider provider.Provider
	log      *logger.ConsoleLogger
}

// loadEnv reads configuration and connects the Jenkins provider.
func loadEnv() (*env, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	p, err := provider.GetProvider("jenkins", provider.Credentials{
		BaseURL:  cfg.JenkinsURL,
		Username: cfg.JenkinsUser,
		Token:    cfg.JenkinsToken,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}

	return &env{
		cfg:      cfg,
		provider: p,
		log:      logger.NewConsoleLogger(cfg.Debug || debugFlag),
	}, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print raw JSON instead of tables")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(paramsCmd)
	rootCmd.AddCommand(buildsCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(mcpCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, provider.WrapError(err))
		os.Exit(1)
	}
}
