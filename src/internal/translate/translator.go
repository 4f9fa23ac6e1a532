// FILE: peerxlat/src/internal/translate/translator.go
package translate

import (
	"peerxlat/src/internal/metrics"
	"peerxlat/src/internal/netaddr"
	"peerxlat/src/internal/ruleset"
)

// Action is the outcome of evaluating a peer against a ruleset.
type Action int

const (
	ActionNone Action = iota
	ActionStop
	ActionRewrite
)

func (a Action) String() string {
	switch a {
	case ActionStop:
		return "stop"
	case ActionRewrite:
		return "rewrite"
	default:
		return "none"
	}
}

// Decision records which rule decided an evaluation. Rule is -1 when no rule
// decided and the peer passes through.
type Decision struct {
	Rule   int
	Action Action
	To     netaddr.Addr
}

// Source yields the ruleset snapshot to evaluate against.
type Source interface {
	Load() *ruleset.Ruleset
}

// Translator rewrites peer addresses for a requester. Safe for concurrent use.
type Translator struct {
	source  Source
	metrics *metrics.Metrics
}

// New creates a translator reading from source. m may be nil.
func New(source Source, m *metrics.Metrics) *Translator {
	return &Translator{source: source, metrics: m}
}

// Translate overwrites the first Width bytes of peer when a rule fires for
// requester and reports whether it did. Buffers shorter than Width are left
// untouched.
func (t *Translator) Translate(peer, requester []byte) bool {
	if len(peer) < netaddr.Width || len(requester) < netaddr.Width {
		return false
	}

	d := Evaluate(t.source.Load(), peer, requester)

	if t.metrics != nil {
		t.metrics.Translations.Inc()
		switch d.Action {
		case ActionStop:
			t.metrics.Stops.Inc()
		case ActionRewrite:
			t.metrics.Rewrites.Inc()
		}
	}

	if d.Action != ActionRewrite {
		return false
	}
	copy(peer[:netaddr.Width], d.To.Bytes())
	return true
}

// Evaluate scans rs in order without modifying peer. A rule whose requester
// prefix matches but whose source prefix does not is skipped and scanning
// continues with the next rule.
func Evaluate(rs *ruleset.Ruleset, peer, requester []byte) Decision {
	if rs == nil || len(peer) < netaddr.Width || len(requester) < netaddr.Width {
		return Decision{Rule: -1}
	}

	for i := range rs.Rules {
		r := &rs.Rules[i]
		if !netaddr.Match(requester, &r.ForWhom) {
			continue
		}
		if r.Stopper {
			return Decision{Rule: i, Action: ActionStop}
		}
		if netaddr.Match(peer, &r.From) {
			return Decision{Rule: i, Action: ActionRewrite, To: r.To}
		}
	}
	return Decision{Rule: -1}
}
