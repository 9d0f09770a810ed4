package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/askme/internal/core/domain"
	"github.com/custodia-labs/askme/internal/core/services"
)

var errAskServiceMissing = errors.New("ask service not configured")

var askCmd = &cobra.Command{
	Use:   "ask [tenant-id] [question]",
	Short: "Ask a tenant a question",
	Long: `Ask a question and print the answer.

The question is matched against the tenant's stored FAQs. In direct mode
the closest stored answer is printed; in llm mode a language model writes
the answer from the closest matches. Output is streamed as it is produced
when stdout is a terminal.`,
	Args: cobra.ExactArgs(2),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntP("top-k", "k", 0, "number of FAQs to retrieve (default: tenant setting)")
	askCmd.Flags().StringP("mode", "m", "", "delivery mode: direct or llm (default: tenant setting)")
	askCmd.Flags().Bool("stream", true, "stream the answer when stdout is a terminal")
	askCmd.Flags().Bool("show-matches", false, "print the retrieved FAQs and their distances")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askService == nil {
		return errAskServiceMissing
	}

	topK, err := cmd.Flags().GetInt("top-k")
	if err != nil {
		return fmt.Errorf("getting top-k flag: %w", err)
	}
	mode, err := cmd.Flags().GetString("mode")
	if err != nil {
		return fmt.Errorf("getting mode flag: %w", err)
	}
	stream, err := cmd.Flags().GetBool("stream")
	if err != nil {
		return fmt.Errorf("getting stream flag: %w", err)
	}
	showMatches, err := cmd.Flags().GetBool("show-matches")
	if err != nil {
		return fmt.Errorf("getting show-matches flag: %w", err)
	}
	if mode != "" && !domain.DeliveryMode(mode).IsValid() {
		return fmt.Errorf("invalid mode %q: must be direct or llm", mode)
	}

	resp, err := askService.Ask(cmd.Context(), domain.AskRequest{
		TenantID: args[0],
		Query:    args[1],
		TopK:     topK,
		Mode:     domain.DeliveryMode(mode),
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if showMatches {
		cmd.Println("Matches:")
		for i, r := range resp.Results {
			cmd.Printf("  %d. [%.4f] %s\n", i+1, r.Distance, r.Question)
		}
		cmd.Println()
	}

	out := cmd.OutOrStdout()
	if stream && isTerminal(out) {
		return streamChunks(out, resp.Chunks)
	}

	answer, err := services.Collect(resp.Chunks)
	if err != nil {
		return fmt.Errorf("delivery failed: %w", err)
	}
	_, err = fmt.Fprintln(out, answer)
	return err
}

// streamChunks writes each chunk as it arrives.
func streamChunks(w io.Writer, chunks <-chan domain.Chunk) error {
	for c := range chunks {
		if c.Err != nil {
			fmt.Fprintln(w)
			return fmt.Errorf("delivery failed: %w", c.Err)
		}
		if _, err := io.WriteString(w, c.Text); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
