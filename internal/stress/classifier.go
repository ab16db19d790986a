package stress

import (
	"strings"

	"github.com/vn6295337/Researcher-Agent/internal/model"
)

// Outcome enumerates the per-call classification buckets from spec.md
// §4.7.
type Outcome string

const (
	OutcomeSuccess      Outcome = "SUCCESS"
	OutcomePartial      Outcome = "PARTIAL"
	OutcomeFallback     Outcome = "FALLBACK"
	OutcomeTransient    Outcome = "TRANSIENT"
	OutcomePersistent   Outcome = "PERSISTENT"
	OutcomeHardFailure  Outcome = "HARD_FAILURE"
	OutcomeRateLimited  Outcome = "RATE_LIMITED"
	OutcomeTimeout      Outcome = "TIMEOUT"
	OutcomeHFDependency Outcome = "HF_DEPENDENCY"
	OutcomeColdStart    Outcome = "COLD_START"
	OutcomeUnknown      Outcome = "UNKNOWN"
)

// Classify combines the call's error text, whether the result came from
// a minimal fallback source, and whether the call was a retry, into one
// of the buckets spec.md §4.7 names.
func Classify(result model.BasketResult, err error, retried bool, elapsedFirstCallMs int64) Outcome {
	if err == nil && result.Error == "" {
		if usedFallback(result) {
			return OutcomeFallback
		}
		if isPartial(result) {
			return OutcomePartial
		}
		return OutcomeSuccess
	}

	msg := strings.ToLower(firstNonEmpty(errString(err), result.Error))

	switch {
	case strings.Contains(msg, "ratelimited") || strings.Contains(msg, "rate limit"):
		return OutcomeRateLimited
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return OutcomeTimeout
	case strings.Contains(msg, "circuitopen") || strings.Contains(msg, "circuit open"):
		return OutcomeHFDependency
	case elapsedFirstCallMs > 0 && elapsedFirstCallMs < 50 && strings.Contains(msg, "transporterror"):
		return OutcomeColdStart
	case usedFallback(result) && retried:
		return OutcomePersistent
	case usedFallback(result):
		return OutcomeTransient
	case msg == "":
		return OutcomeUnknown
	default:
		return OutcomeHardFailure
	}
}

func usedFallback(result model.BasketResult) bool {
	for name := range result.Sources {
		if strings.HasPrefix(name, "Minimal Fallback") || name == "error" {
			return true
		}
	}
	return false
}

// isPartial reports whether a result carries some sources but is
// missing data that requiredFields in the aggregator would expect; the
// stress harness uses a cheap proxy (exactly one source with data for a
// multi-source basket) rather than importing the aggregator's
// completeness table, keeping this package free of an aggregator
// dependency.
func isPartial(result model.BasketResult) bool {
	live := 0
	for _, env := range result.Sources {
		if len(env.Data) > 0 {
			live++
		}
	}
	return live == 1 && result.Group == "source_comparison"
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
