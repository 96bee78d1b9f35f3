package main

import (
	"context"
	"fmt"

	"github.com/trezcool/darasa/core/section"
)

// syncCounts recomputes every section count of the course from the
// authoritative enrollment store.
func (cli *commandLine) syncCounts(courseID string) error {
	ctx := context.Background()

	secs, err := cli.secSvc.Query(ctx, section.QueryFilter{CourseID: courseID})
	if err != nil {
		return err
	}
	if len(secs) == 0 {
		return fmt.Errorf("no sections found for course %q", courseID)
	}

	for _, sec := range secs {
		updated, err := cli.secSvc.SyncCount(ctx, sec.ID)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d/%d\n", updated.Name, updated.CurrentEnrollmentCount, updated.Capacity)
	}
	return nil
}
