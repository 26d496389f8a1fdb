package enhance

import (
	"fmt"
	"strings"

	"github.com/halcyonsec/vantage/api/schemas"
)

// Sanity bounds for generated text. Output outside these bounds, or output
// that looks like structured data instead of prose, is discarded and the
// original finding text stands.
const (
	minDescriptionLen = 50
	maxDescriptionLen = 3000
	minRemediationLen = 30
	maxRemediationLen = 2000
	minSummaryLen     = 50
	maxSummaryLen     = 2000
)

func validateDescription(text string) error {
	t := strings.TrimSpace(text)
	if err := checkLength("description", t, minDescriptionLen, maxDescriptionLen); err != nil {
		return err
	}
	// A brace or bracket prefix means the model returned structured data
	// rather than prose.
	if strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[") {
		return fmt.Errorf("%w: description looks like structured data", schemas.ErrValidationRejected)
	}
	return nil
}

func validateRemediation(text string) error {
	return checkLength("remediation", strings.TrimSpace(text), minRemediationLen, maxRemediationLen)
}

func validateSummary(text string) error {
	return checkLength("summary", strings.TrimSpace(text), minSummaryLen, maxSummaryLen)
}

func checkLength(kind, text string, min, max int) error {
	if text == "" {
		return fmt.Errorf("%w: empty %s", schemas.ErrValidationRejected, kind)
	}
	if len(text) < min {
		return fmt.Errorf("%w: %s too short (%d < %d chars)", schemas.ErrValidationRejected, kind, len(text), min)
	}
	if len(text) > max {
		return fmt.Errorf("%w: %s too long (%d > %d chars)", schemas.ErrValidationRejected, kind, len(text), max)
	}
	return nil
}
