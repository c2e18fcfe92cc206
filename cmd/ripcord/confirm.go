package main

import (
	"fmt"

	"github.com/lyndonlyu/ripcord/internal/passport"
)

// promptConfirm asks the user to approve the destructive revert. This is the
// only point where a run can be cancelled; once backup begins the pipeline
// proceeds to completion or hard failure.
func promptConfirm(pt passport.Point) (bool, error) {
	fmt.Printf("%s This will revert the working tree to:\n", styleDanger.Render("WARNING:"))
	fmt.Printf("  %s  %s\n", pt.CommitHash, pt.Description)
	fmt.Printf("  %s\n", styleDim.Render("created "+pt.Timestamp))
	fmt.Print("Proceed? (y/n): ")

	var answer string
	fmt.Scanln(&answer)
	return answer == "y" || answer == "Y", nil
}
