package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/askme/internal/adapters/driven/faqfile"
	"github.com/custodia-labs/askme/internal/logger"
)

var errFAQServiceMissing = errors.New("faq service not configured")

var faqCmd = &cobra.Command{
	Use:   "faq",
	Short: "Manage a tenant's FAQs",
	Long: `Upload, list and clear the question/answer pairs a tenant answers from.

FAQ files may be CSV (with "question" and "answer" header columns), JSON
or YAML (a list of {question, answer} objects, optionally under "faqs").`,
}

var faqUploadCmd = &cobra.Command{
	Use:   "upload [tenant-id] [file]",
	Short: "Ingest FAQs from a CSV, JSON or YAML file",
	Args:  cobra.ExactArgs(2),
	RunE:  runFAQUpload,
}

var faqListCmd = &cobra.Command{
	Use:   "list [tenant-id]",
	Short: "List a tenant's FAQs",
	Args:  cobra.ExactArgs(1),
	RunE:  runFAQList,
}

var faqClearCmd = &cobra.Command{
	Use:   "clear [tenant-id]",
	Short: "Remove all of a tenant's FAQs",
	Args:  cobra.ExactArgs(1),
	RunE:  runFAQClear,
}

var faqWatchCmd = &cobra.Command{
	Use:   "watch [tenant-id]",
	Short: "Re-ingest FAQ files whenever they change",
	Long: `Watch a directory and re-ingest a FAQ file whenever it is created or
written. Each ingested file replaces the tenant's FAQ set, so keep one
FAQ file per watched directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runFAQWatch,
}

func init() {
	faqUploadCmd.Flags().Bool("replace", false, "clear existing FAQs before storing")
	faqWatchCmd.Flags().String("dir", ".", "directory to watch")
	faqWatchCmd.Flags().Duration("debounce", faqfile.DefaultDebounce, "quiet period before a changed file is ingested")
	faqCmd.AddCommand(faqUploadCmd)
	faqCmd.AddCommand(faqListCmd)
	faqCmd.AddCommand(faqClearCmd)
	faqCmd.AddCommand(faqWatchCmd)
	rootCmd.AddCommand(faqCmd)
}

func runFAQUpload(cmd *cobra.Command, args []string) error {
	if faqService == nil {
		return errFAQServiceMissing
	}
	replace, err := cmd.Flags().GetBool("replace")
	if err != nil {
		return fmt.Errorf("getting replace flag: %w", err)
	}

	n, err := ingestFile(cmd.Context(), args[0], args[1], replace)
	if err != nil {
		return err
	}
	cmd.Printf("Stored %d FAQs for tenant %s\n", n, args[0])
	return nil
}

// ingestFile parses path and stores its FAQs for the tenant. With replace
// the tenant's set is swapped atomically, so a failed ingest keeps it.
func ingestFile(ctx context.Context, tenantID, path string, replace bool) (int, error) {
	faqs, err := faqfile.ParseFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read FAQs: %w", err)
	}
	store := faqService.StoreFAQs
	if replace {
		store = faqService.ReplaceFAQs
	}
	n, err := store(ctx, tenantID, faqs)
	if err != nil {
		return 0, fmt.Errorf("failed to store FAQs: %w", err)
	}
	return n, nil
}

func runFAQList(cmd *cobra.Command, args []string) error {
	if faqService == nil {
		return errFAQServiceMissing
	}

	faqs, err := faqService.ListFAQs(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to list FAQs: %w", err)
	}
	if len(faqs) == 0 {
		cmd.Println("No FAQs stored.")
		return nil
	}

	for i, f := range faqs {
		cmd.Printf("%d. Q: %s\n", i+1, f.Question)
		cmd.Printf("   A: %s\n", f.Answer)
	}
	cmd.Printf("\n%d FAQs\n", len(faqs))
	return nil
}

func runFAQClear(cmd *cobra.Command, args []string) error {
	if faqService == nil {
		return errFAQServiceMissing
	}

	if err := faqService.ClearFAQs(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to clear FAQs: %w", err)
	}
	cmd.Printf("Cleared FAQs for tenant %s\n", args[0])
	return nil
}

func runFAQWatch(cmd *cobra.Command, args []string) error {
	if faqService == nil {
		return errFAQServiceMissing
	}
	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return fmt.Errorf("getting dir flag: %w", err)
	}
	debounce, err := cmd.Flags().GetDuration("debounce")
	if err != nil {
		return fmt.Errorf("getting debounce flag: %w", err)
	}

	watcher, err := faqfile.NewWatcher(debounce)
	if err != nil {
		return err
	}
	defer watcher.Close()

	tenantID := args[0]
	cmd.Printf("Watching %s for FAQ files (Ctrl+C to stop)\n", dir)
	return watcher.Watch(cmd.Context(), dir, func(ctx context.Context, path string) error {
		n, err := ingestFile(ctx, tenantID, path, true)
		if err != nil {
			return err
		}
		logger.Info("Ingested %d FAQs from %s for tenant %s", n, path, tenantID)
		return nil
	})
}
