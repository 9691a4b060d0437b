package main

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var checkDirection string

var checkCmd = &cobra.Command{
	Use:   "check [content]",
	Short: "Run guardrails over a single message",
	Long: `Check evaluates one message against the configured pipeline for the
given direction and prints the verdict. Content is read from the argument,
or from stdin when no argument is given.

Exits 0 when the content is allowed, 2 when it is blocked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkDirection, "direction", "d", "input", "Pipeline direction (input or output)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	content, err := readContent(args)
	if err != nil {
		return err
	}

	rt, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	p, err := rt.pipelineFor(checkDirection)
	if err != nil {
		return err
	}

	verdict, err := p.Evaluate(cmd.Context(), content, nil)
	if err != nil {
		return err
	}
	if err := renderVerdict(cmd.OutOrStdout(), verdict); err != nil {
		return err
	}
	if verdict.Blocked() {
		// Deferred cleanup must still run so pending monitor
		// evaluations land in the audit trail before exit.
		exitCode = exitBlocked
	}
	return nil
}

func readContent(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\n"), nil
}
