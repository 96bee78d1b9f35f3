package main

import (
	"fmt"

	"github.com/trezcool/darasa/core/section"
)

// printPlan previews the capacity plan without touching the database.
func (cli *commandLine) printPlan(total int, cfg section.PlanConfig) error {
	sizes, err := section.PlanSizes(total, cfg)
	if err != nil {
		return err
	}
	if len(sizes) == 0 {
		fmt.Printf("no sections needed for %d students\n", total)
		return nil
	}

	fmt.Printf("%d students over %d sections (recommended %d, max %d):\n", total, len(sizes), cfg.Recommended, cfg.HardMax)
	for i, size := range sizes {
		fmt.Printf("  section %d: %d students\n", i+1, size)
	}
	return nil
}
