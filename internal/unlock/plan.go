package unlock

import (
	"mediasync/internal/layout"
	"mediasync/internal/ledger"
	"mediasync/internal/matcher"
)

// Skip reasons.
const (
	SkipConverted = "already_converted"
	SkipArchived  = "already_archived"
	SkipFailed    = "previously_failed"
)

// Skip is a source left out of the pending list.
type Skip struct {
	Name   string
	Reason string
}

// Plan splits sources into pending work and skips.
type Plan struct {
	Pending []layout.SourceItem
	Skipped []Skip
}

// PlanPending decides which sources still need decrypting, so an interrupted
// batch resumes where it stopped. A source is skipped when its stem already
// has a derived file in output/, when completed.log records its stem, or when
// failed.log lists it and retryFailed is off.
func PlanPending(sources []layout.SourceItem, derived []layout.DerivedItem, completed, failed ledger.LogSet, allow layout.Extensions, retryFailed bool) Plan {
	converted := matcher.Stems(derived)
	archived := ledger.Stems(completed)
	failedNames := ledger.FailedNames(failed, allow)

	var plan Plan
	for _, src := range sources {
		switch {
		case hasStem(converted, src.Stem):
			plan.Skipped = append(plan.Skipped, Skip{Name: src.Name, Reason: SkipConverted})
		case hasStem(archived, src.Stem):
			plan.Skipped = append(plan.Skipped, Skip{Name: src.Name, Reason: SkipArchived})
		case !retryFailed && failedNames.Has(src.Name):
			plan.Skipped = append(plan.Skipped, Skip{Name: src.Name, Reason: SkipFailed})
		default:
			plan.Pending = append(plan.Pending, src)
		}
	}
	return plan
}

func hasStem(set map[string]struct{}, stem string) bool {
	_, ok := set[stem]
	return ok
}

// Count returns how many skips carry reason.
func (p Plan) Count(reason string) int {
	n := 0
	for _, s := range p.Skipped {
		if s.Reason == reason {
			n++
		}
	}
	return n
}
