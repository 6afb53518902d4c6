package pipeline

import (
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/typegraph/tgcore/internal/errs"
)

// temporalParser is a package-level singleton; when.Parser rule sets are
// immutable once built, so one instance is safe to share across calls.
var temporalParser = newTemporalParser()

func newTemporalParser() *when.Parser {
	w := when.New(nil)
	w.Add(common.All...)
	w.Add(en.All...)
	return w
}

// ParseTemporalArg resolves a human-entered asOf expression ("yesterday",
// "3 days ago", "2025-01-01") relative to base into an absolute instant,
// the way a CLI or API boundary accepts friendlier input than the typed
// TemporalMode the pipeline works in internally. An expression when
// recognizes no time phrase in is a Configuration error.
func ParseTemporalArg(expr string, base time.Time) (time.Time, error) {
	r, err := temporalParser.Parse(expr, base)
	if err != nil {
		return time.Time{}, errs.Wrap(errs.Configuration, "parse temporal argument", err, "expr", expr)
	}
	if r == nil {
		return time.Time{}, errs.New(errs.Configuration, "temporal argument not recognized", "expr", expr)
	}
	return r.Time, nil
}
