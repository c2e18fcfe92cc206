package main

import (
	"fmt"

	"github.com/lyndonlyu/ripcord/internal/audit"
	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the tamper-evident attempt trail",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show recent attempts from the trail",
	RunE:  listAudit,
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the trail's hash chain",
	RunE:  verifyAudit,
}

var auditCount int

func init() {
	auditListCmd.Flags().IntVarP(&auditCount, "count", "n", 10, "number of records to show")
	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	rootCmd.AddCommand(auditCmd)
}

func openTrail() (*audit.Trail, error) {
	cfg, _, err := openProject()
	if err != nil {
		return nil, err
	}
	return audit.NewTrail(cfg.AuditDir())
}

func listAudit(cmd *cobra.Command, args []string) error {
	trail, err := openTrail()
	if err != nil {
		return err
	}
	records, err := trail.Recent(auditCount)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No attempts recorded yet.")
		return nil
	}
	for _, r := range records {
		tag := "[OK]"
		if r.Outcome != "success" {
			tag = "[" + r.Outcome + "]"
		}
		fmt.Printf("%s %s target=%s stage=%s (%dms)", tag, r.Timestamp[:19], r.Target, r.Stage, r.DurationMs)
		if r.Error != "" {
			fmt.Printf(" error=%s", r.Error)
		}
		fmt.Println()
	}
	return nil
}

func verifyAudit(cmd *cobra.Command, args []string) error {
	trail, err := openTrail()
	if err != nil {
		return err
	}
	ok, idx, err := trail.Verify()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("audit trail chain broken at record %d", idx)
	}
	fmt.Println("Audit trail chain intact.")
	return nil
}
