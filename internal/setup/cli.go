package setup

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewCommand returns the "setup" command tree shared by the server binaries.
func NewCommand() *cobra.Command {
	var opts Options

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the NMIBC risk MCP server with Claude Desktop",
	}
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "Claude Desktop config file (auto-detected when empty)")

	claude := &cobra.Command{
		Use:   "claude-desktop",
		Short: "Add or update the server entry in Claude Desktop",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.BinaryPath == "" {
				if execPath, err := os.Executable(); err == nil {
					opts.BinaryPath = execPath
				}
			}
			if opts.LLMAPIKey == "" {
				opts.LLMAPIKey = os.Getenv("NMIBC_LLM_API_KEY")
			}

			path, err := ConfigureClaudeDesktop(opts)
			if err != nil {
				return fmt.Errorf("failed to configure Claude Desktop: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Claude Desktop configured: %s\n", path)
			fmt.Fprintf(out, "Server binary: %s\n", opts.BinaryPath)
			fmt.Fprintln(out, "Restart Claude Desktop, then try: \"Classify a primary T1 high-grade tumour, 2 cm, single\"")
			return nil
		},
	}
	claude.Flags().StringVarP(&opts.BinaryPath, "binary", "b", "", "path to the MCP server binary (defaults to this executable)")
	claude.Flags().StringVarP(&opts.DataDir, "data-dir", "d", "", "data directory for feedback and exports")
	claude.Flags().StringVar(&opts.LLMProvider, "llm-provider", "", "text generation provider: anthropic or gemini")
	claude.Flags().StringVar(&opts.Language, "language", "", "patient letter language")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current setup status as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(GetStatus(opts))
		},
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Validate the Claude Desktop registration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			valid, issues := Validate(opts)
			out := cmd.OutOrStdout()
			for _, issue := range issues {
				fmt.Fprintf(out, "- %s\n", issue)
			}
			if !valid {
				return fmt.Errorf("configuration has %d issue(s)", len(issues))
			}
			fmt.Fprintln(out, "Configuration is valid")
			return nil
		},
	}

	cmd.AddCommand(claude, status, validate)
	return cmd
}
