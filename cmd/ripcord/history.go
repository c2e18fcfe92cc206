package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/lyndonlyu/ripcord/internal/ledger"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show verified rollbacks from the ledger",
	RunE:  showHistory,
}

var historyDetail bool

func init() {
	historyCmd.Flags().BoolVar(&historyDetail, "detail", false, "render a detailed markdown report")
	rootCmd.AddCommand(historyCmd)
}

func showHistory(cmd *cobra.Command, args []string) error {
	_, store, err := openProject()
	if err != nil {
		return err
	}
	if !store.Exists() {
		fmt.Println("No rollback history yet.")
		return nil
	}

	records, err := ledger.New(store).History()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No rollback history yet.")
		return nil
	}

	if historyDetail {
		var md strings.Builder
		md.WriteString("# Rollback history\n\n")
		for i := len(records) - 1; i >= 0; i-- {
			r := records[i]
			md.WriteString(fmt.Sprintf("## %s → %s\n\n", r.RollbackTime, r.RollbackPoint))
			md.WriteString(fmt.Sprintf("- **Reason:** %s\n", r.Reason))
			md.WriteString(fmt.Sprintf("- **Backup:** `%s`\n\n", r.BackupLocation))
		}
		fmt.Println(renderMarkdown(md.String()))
		return nil
	}

	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		fmt.Printf("%s  %-12s  %s\n", r.RollbackTime, shortHash(r.RollbackPoint), r.Reason)
	}
	return nil
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

// renderMarkdown renders markdown text for terminal display.
func renderMarkdown(text string) string {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimSpace(out)
}
