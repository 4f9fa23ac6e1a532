// FILE: peerxlat/src/internal/ruleset/rule.go
package ruleset

import (
	"strings"
	"time"

	"peerxlat/src/internal/netaddr"
)

// DefaultStopPhrase terminates evaluation for a matching requester.
const DefaultStopPhrase = "no further action"

// Rule is one ordered entry of a ruleset. From and To are only meaningful
// when Stopper is false.
type Rule struct {
	ForWhom netaddr.Prefix
	Stopper bool
	From    netaddr.Prefix
	To      netaddr.Addr
}

// String renders the rule in rules file syntax using the default stop phrase.
func (r Rule) String() string {
	return r.Format(DefaultStopPhrase)
}

// Format renders the rule in rules file syntax.
func (r Rule) Format(stopPhrase string) string {
	var b strings.Builder
	b.WriteString("for ")
	b.WriteString(r.ForWhom.String())
	if r.Stopper {
		b.WriteByte(' ')
		b.WriteString(stopPhrase)
		return b.String()
	}
	b.WriteString(" translate ")
	b.WriteString(r.From.String())
	b.WriteString(" to ")
	b.WriteString(r.To.String())
	return b.String()
}

// Ruleset is an immutable, ordered snapshot of rules. File order is
// evaluation priority. Never modify Rules after the ruleset has been handed
// to a Store.
type Ruleset struct {
	Rules    []Rule
	Source   string
	LoadedAt time.Time
}

// Empty returns a new ruleset with no rules: every address passes through.
// Each call returns a distinct value, so no two stores share one.
func Empty() *Ruleset {
	return &Ruleset{}
}

// Len returns the number of rules, treating nil as empty.
func (rs *Ruleset) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rules)
}
