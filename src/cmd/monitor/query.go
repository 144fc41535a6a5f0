package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"jenkins-monitor/src/loganalyzer"
	"jenkins-monitor/src/mcp"
	"jenkins-monitor/src/provider"
	"jenkins-monitor/src/stages"
)

// jobsCmd lists the controller's jobs
var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List Jenkins jobs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}

		jobs, err := e.provider.ListJobs(cmd.Context())
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{"jobs": jobs})
		}
		fmt.Fprintln(cmd.OutOrStdout(), jobsTable(jobs))
		return nil
	},
}

// paramsCmd shows the build parameters a job declares
var paramsCmd = &cobra.Command{
	Use:   "params <job>",
	Short: "Show the build parameters of a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}

		params, err := e.provider.FetchJobParameters(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), params)
		}
		if !params.HasParameters {
			fmt.Fprintf(cmd.OutOrStdout(), "%s takes no parameters\n", args[0])
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), parametersTable(params.Parameters))
		return nil
	},
}

// buildsCmd shows the most recent builds of a job
var buildsCmd = &cobra.Command{
	Use:   "builds <job>",
	Short: "Show the five most recent builds of a job",
	Long:  `Show the most recent builds of a job. Folder jobs are written "folder/job".`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}

		snaps, err := stages.NewResolver(e.provider, e.log.With("resolver")).RecentBuilds(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{"jobName": args[0], "builds": snaps})
		}
		if len(snaps) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No builds found for %s\n", args[0])
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), buildsTable(snaps))
		return nil
	},
}

// buildCmd resolves a single build
var buildCmd = &cobra.Command{
	Use:   "build <job> <number> | <build-url>",
	Short: "Show one build with its current or failed stage",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, number, err := buildArgs(args)
		if err != nil {
			return err
		}

		e, err := loadEnv()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		snap, err := stages.NewResolver(e.provider, e.log.With("resolver")).Build(ctx, job, number)
		if err != nil {
			return err
		}

		command := ""
		if stages.IsFailureClass(snap.Status) {
			if text, err := e.provider.FetchConsoleText(ctx, job, number); err == nil {
				command, _ = loganalyzer.FindFailingCommand(text)
			} else {
				e.log.Warn("console text unavailable: %v", err)
			}
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), struct {
				Job string `json:"job"`
				stages.BuildSnapshot
				FailingCommand string `json:"failingCommand,omitempty"`
			}{job, snap, command})
		}
		fmt.Fprint(cmd.OutOrStdout(), buildDetail(job, snap, command))
		return nil
	},
}

// analyzeCmd runs the log analyzers over a saved console log
var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|->",
	Short: "Find the failed stage and command in a console log file",
	Long: `Analyze a saved console log without contacting Jenkins. Use "-" to
read from stdin, e.g. curl .../consoleText | monitor analyze -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}

		data, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("failed to read log: %w", err)
		}

		result := mcp.Analyze(string(data))
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), result)
		}
		fmt.Fprint(cmd.OutOrStdout(), analysisDetail(result))
		return nil
	},
}

// buildArgs accepts either <job> <number> or a single build URL.
func buildArgs(args []string) (string, int, error) {
	if len(args) == 1 {
		ref, err := provider.ParseURL(args[0])
		if err != nil {
			return "", 0, err
		}
		return ref.Job, ref.Number, nil
	}

	number, err := strconv.Atoi(args[1])
	if err != nil || number <= 0 {
		return "", 0, fmt.Errorf("invalid build number %q", args[1])
	}
	return args[0], number, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
