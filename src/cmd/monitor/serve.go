package main

import (
	"fmt"
	"net"
	"strings"

	"github.com/spf13/cobra"

	"jenkins-monitor/src/auth"
	"jenkins-monitor/src/config"
	"jenkins-monitor/src/logger"
	"jenkins-monitor/src/mcp"
	"jenkins-monitor/src/server"
)

var (
	tokenUser      string
	tokenRole      string
	tokenPipelines string
)

// serveCmd runs the dashboard API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard REST API",
	Long: `Serve the dashboard REST API on PORT (default 3000).

Every /api route requires a bearer token signed with JWT_SECRET; use
"monitor token" to issue one.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		if err := e.cfg.RequireJWTSecret(); err != nil {
			return err
		}

		issuer, err := auth.NewIssuer(e.cfg.JWTSecret)
		if err != nil {
			return err
		}

		e.log.Info("proxying %s as %s", e.cfg.JenkinsURL, e.cfg.JenkinsUser)
		srv := server.New(e.provider, issuer, e.log.With("http"))
		return srv.ListenAndServe(cmd.Context(), net.JoinHostPort("", e.cfg.Port))
	},
}

// tokenCmd issues a dashboard token
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a dashboard access token",
	Long: `Sign a 24h dashboard token with JWT_SECRET.

Roles: admin, user, viewer. --pipelines limits the jobs a non-admin sees.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := config.JWTSecretFromEnv()
		if err != nil {
			return err
		}
		issuer, err := auth.NewIssuer(secret)
		if err != nil {
			return err
		}

		token, err := issuer.Token(tokenUser, tokenRole, splitList(tokenPipelines))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

// mcpCmd serves MCP tools over stdio
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve build inspection tools over MCP (stdio)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		// stdout carries the protocol
		return mcp.NewServer(e.provider, logger.NewSilentLogger()).Run()
	},
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "username carried in the token")
	tokenCmd.Flags().StringVar(&tokenRole, "role", auth.RoleViewer, "admin, user or viewer")
	tokenCmd.Flags().StringVar(&tokenPipelines, "pipelines", "", "comma separated job names the user may see")
	_ = tokenCmd.MarkFlagRequired("user")
}
