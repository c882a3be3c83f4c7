package enhance

import (
	"errors"
	"fmt"
)

// TruncationError reports a model response that hit the provider's token
// limit or the enhancer's hard length ceiling. The enhancer reacts by
// splitting the section; if the split sections still truncate, the error
// propagates and the orchestrator's stage retry applies.
type TruncationError struct {
	Heading string
	Chars   int
}

// Error implements the error interface.
func (e *TruncationError) Error() string {
	return fmt.Sprintf("response for section %q truncated at %d chars", e.Heading, e.Chars)
}

// IsTruncation reports whether err is a TruncationError.
func IsTruncation(err error) bool {
	var te *TruncationError
	return errors.As(err, &te)
}
