package section

import (
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// PlanSizes partitions totalStudents into an ordered list of section sizes.
// It is pure and deterministic: the sizes always sum to totalStudents and
// never exceed cfg.HardMax.
//
// A zero totalStudents yields an empty plan; the provisioner creates a
// single empty placeholder section in that case.
func PlanSizes(totalStudents int, cfg PlanConfig) ([]int, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if totalStudents < 0 {
		return nil, core.NewValidationError(
			errors.New("invalid student count"),
			core.FieldError{Field: "total_students", Error: "must be a non-negative integer"},
		)
	}

	if totalStudents == 0 {
		return nil, nil
	}
	if totalStudents <= cfg.Recommended {
		return []int{totalStudents}, nil
	}

	base := totalStudents / cfg.Recommended
	remainder := totalStudents % cfg.Recommended
	minThreshold := cfg.minThreshold()

	var plan []int
	switch {
	case remainder == 0:
		plan = make([]int, base)
		for i := range plan {
			plan[i] = cfg.Recommended
		}
	case remainder < minThreshold:
		// too few leftovers for a section of their own: spread them over
		// the base sections round-robin, earliest sections first
		plan = make([]int, base)
		for i := range plan {
			plan[i] = cfg.Recommended
		}
		for i := 0; i < remainder; i++ {
			plan[i%base]++
		}
	default:
		plan = evenSplit(totalStudents, base+1)
	}

	// a round-robin top-up may push sections past the hard ceiling;
	// recompute with the minimum section count that fits everyone
	if maxSize(plan) > cfg.HardMax {
		count := (totalStudents + cfg.HardMax - 1) / cfg.HardMax
		plan = evenSplit(totalStudents, count)
	}

	// avoid a runt section: try folding into one fewer section, but only
	// if the merge still fits under the hard ceiling
	if minSize(plan) < minThreshold && totalStudents > minThreshold && len(plan) > 1 {
		merged := evenSplit(totalStudents, len(plan)-1)
		if maxSize(merged) <= cfg.HardMax {
			plan = merged
		}
	}

	if sum := sumSizes(plan); sum != totalStudents {
		return nil, errors.Wrapf(ErrPlanInvariant, "plan sums to %d, want %d", sum, totalStudents)
	}
	if max := maxSize(plan); max > cfg.HardMax {
		return nil, errors.Wrapf(ErrPlanInvariant, "plan max size %d exceeds hard max %d", max, cfg.HardMax)
	}
	return plan, nil
}

// evenSplit partitions total into count sizes differing by at most one,
// larger sizes first.
func evenSplit(total, count int) []int {
	sizes := make([]int, count)
	size := total / count
	extra := total % count
	for i := range sizes {
		sizes[i] = size
		if i < extra {
			sizes[i]++
		}
	}
	return sizes
}

func sumSizes(sizes []int) int {
	var sum int
	for _, s := range sizes {
		sum += s
	}
	return sum
}

func maxSize(sizes []int) int {
	var max int
	for _, s := range sizes {
		if s > max {
			max = s
		}
	}
	return max
}

func minSize(sizes []int) int {
	if len(sizes) == 0 {
		return 0
	}
	min := sizes[0]
	for _, s := range sizes[1:] {
		if s < min {
			min = s
		}
	}
	return min
}
