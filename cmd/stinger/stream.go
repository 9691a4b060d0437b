package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Run guardrails over streamed output chunks",
	Long: `Stream reads chunks from stdin, one per line, and feeds them through
a streaming session on the output pipeline. Checkpoint evaluations run as
boundaries are crossed; the stream stops at the first blocking verdict.
At end of input the session is finalized and the consolidated verdict
printed.

Exits 0 when the stream completed clean, 2 when it was blocked.`,
	Args: cobra.NoArgs,
	RunE: runStream,
}

func runStream(cmd *cobra.Command, args []string) error {
	rt, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	id := rt.sessions.Start(nil)
	out := cmd.OutOrStdout()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	blocked := false
	for scanner.Scan() {
		chunk := scanner.Text() + "\n"
		verdict, err := rt.sessions.Update(cmd.Context(), id, chunk)
		if err != nil {
			return err
		}
		if verdict != nil {
			// A checkpoint blocked: stop consuming and report.
			if err := renderVerdict(out, *verdict); err != nil {
				return err
			}
			blocked = true
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stream: %w", err)
	}

	final, err := rt.sessions.Finish(cmd.Context(), id)
	if err != nil {
		return err
	}
	if !blocked {
		if err := renderVerdict(out, final); err != nil {
			return err
		}
	}
	if blocked || final.Blocked() {
		// Leave shutdown to the deferred close so monitor results
		// are drained into the audit trail before the process exits.
		exitCode = exitBlocked
	}
	return nil
}
