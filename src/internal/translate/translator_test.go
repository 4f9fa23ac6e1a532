// FILE: peerxlat/src/internal/translate/translator_test.go
//go:build !ipv6

package translate

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"peerxlat/src/internal/metrics"
	"peerxlat/src/internal/netaddr"
	"peerxlat/src/internal/ruleset"
)

func addr(s string) []byte {
	a := netaddr.MustParseAddr(s)
	return append([]byte(nil), a.Bytes()...)
}

func mustRules(t *testing.T, text string) *ruleset.Ruleset {
	t.Helper()
	rules, err := ruleset.Parse(strings.NewReader(text))
	require.NoError(t, err)
	return &ruleset.Ruleset{Rules: rules}
}

func storeWith(t *testing.T, text string) *ruleset.Store {
	t.Helper()
	s := ruleset.NewStore()
	s.Commit(mustRules(t, text))
	return s
}

func TestTranslate_Scenarios(t *testing.T) {
	const single = "for 10.0.0.0/8 translate 192.168.0.0/16 to 1.2.3.4\n"

	testCases := []struct {
		name      string
		rules     string
		requester string
		peer      string
		want      string
		rewritten bool
	}{
		{"RewriteOnMatch", single, "10.1.2.3", "192.168.5.5", "1.2.3.4", true},
		{"RequesterOutsidePrefix", single, "11.0.0.0", "192.168.5.5", "192.168.5.5", false},
		{"PeerOutsideFrom", single, "10.9.9.9", "8.8.8.8", "8.8.8.8", false},
		{"StopperMatchesAll", "for 0.0.0.0/0 no further action\n", "203.0.113.7", "192.168.1.1", "192.168.1.1", false},
		{
			name: "FallthroughToLaterRule",
			rules: "for 10.0.0.0/8 translate 172.16.0.0/12 to 5.5.5.5\n" +
				"for 10.0.0.0/16 translate 192.168.0.0/16 to 6.6.6.6\n",
			requester: "10.0.1.1",
			peer:      "192.168.7.7",
			want:      "6.6.6.6",
			rewritten: true,
		},
		{
			name: "StopperShadowsLaterRules",
			rules: "for 10.0.0.0/8 no further action\n" +
				"for 0.0.0.0/0 translate 0.0.0.0/0 to 9.9.9.9\n",
			requester: "10.1.1.1",
			peer:      "192.168.0.1",
			want:      "192.168.0.1",
			rewritten: false,
		},
		{
			name: "FirstFiringRuleWins",
			rules: "for 0.0.0.0/0 translate 192.168.0.0/16 to 1.1.1.1\n" +
				"for 0.0.0.0/0 translate 192.168.0.0/16 to 2.2.2.2\n",
			requester: "1.2.3.4",
			peer:      "192.168.0.1",
			want:      "1.1.1.1",
			rewritten: true,
		},
		{"EmptyRuleset", "", "10.1.2.3", "192.168.5.5", "192.168.5.5", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tr := New(storeWith(t, tc.rules), nil)
			peer := addr(tc.peer)

			got := tr.Translate(peer, addr(tc.requester))
			assert.Equal(t, tc.rewritten, got)
			assert.Equal(t, addr(tc.want), peer)
		})
	}
}

func TestTranslate_FailedLoadPassesThrough(t *testing.T) {
	store := storeWith(t, "for 0.0.0.0/0 translate 0.0.0.0/0 to 9.9.9.9\n")

	_, err := ruleset.Parse(strings.NewReader(
		"for 10.0.0.0/8 no further action\n" +
			"for 10.0.0.0/8 translate 192.168.0.0/16\n"))
	require.Error(t, err)
	store.Clear()

	tr := New(store, nil)
	peer := addr("192.168.5.5")
	assert.False(t, tr.Translate(peer, addr("10.1.2.3")))
	assert.Equal(t, addr("192.168.5.5"), peer)
}

func TestTranslate_ShortBuffers(t *testing.T) {
	tr := New(storeWith(t, "for 0.0.0.0/0 translate 0.0.0.0/0 to 9.9.9.9\n"), nil)

	peer := []byte{1, 2, 3}
	assert.False(t, tr.Translate(peer, addr("1.1.1.1")))
	assert.Equal(t, []byte{1, 2, 3}, peer)

	peer = addr("8.8.8.8")
	assert.False(t, tr.Translate(peer, []byte{1}))
	assert.Equal(t, addr("8.8.8.8"), peer)
}

func TestTranslate_OnlyFirstWidthBytesWritten(t *testing.T) {
	tr := New(storeWith(t, "for 0.0.0.0/0 translate 0.0.0.0/0 to 9.9.9.9\n"), nil)

	// Compact peer entry: address followed by a port.
	peer := append(addr("8.8.8.8"), 0x1a, 0xe1)
	require.True(t, tr.Translate(peer, addr("1.1.1.1")))
	assert.Equal(t, []byte{9, 9, 9, 9, 0x1a, 0xe1}, peer)
}

func TestEvaluate(t *testing.T) {
	rs := mustRules(t,
		"for 10.0.0.0/8 translate 172.16.0.0/12 to 5.5.5.5\n"+
			"for 10.0.0.0/8 no further action\n"+
			"for 0.0.0.0/0 translate 0.0.0.0/0 to 7.7.7.7\n")

	testCases := []struct {
		name      string
		requester string
		peer      string
		want      Decision
	}{
		{"RewriteFirstRule", "10.0.0.1", "172.16.1.1", Decision{Rule: 0, Action: ActionRewrite, To: netaddr.MustParseAddr("5.5.5.5")}},
		{"StopSecondRule", "10.0.0.1", "8.8.8.8", Decision{Rule: 1, Action: ActionStop}},
		{"RewriteCatchAll", "11.0.0.1", "8.8.8.8", Decision{Rule: 2, Action: ActionRewrite, To: netaddr.MustParseAddr("7.7.7.7")}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			peer := addr(tc.peer)
			assert.Equal(t, tc.want, Evaluate(rs, peer, addr(tc.requester)))
			assert.Equal(t, addr(tc.peer), peer, "Evaluate must not modify peer")
		})
	}

	assert.Equal(t, Decision{Rule: -1}, Evaluate(nil, addr("1.1.1.1"), addr("1.1.1.1")))
	assert.Equal(t, Decision{Rule: -1}, Evaluate(ruleset.Empty(), addr("1.1.1.1"), addr("1.1.1.1")))
	assert.Equal(t, "rewrite", ActionRewrite.String())
}

func TestTranslate_Metrics(t *testing.T) {
	m := metrics.New()
	tr := New(storeWith(t,
		"for 10.0.0.0/8 no further action\n"+
			"for 0.0.0.0/0 translate 192.168.0.0/16 to 1.1.1.1\n"), m)

	tr.Translate(addr("192.168.0.1"), addr("10.0.0.1"))
	tr.Translate(addr("192.168.0.1"), addr("11.0.0.1"))
	tr.Translate(addr("8.8.8.8"), addr("11.0.0.1"))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Translations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Stops))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rewrites))
}

// Two rulesets that would produce a third, distinguishable answer if a reader
// ever combined rule 0 of one with rule 1 of the other.
func TestTranslate_ConcurrentCommitSeesWholeSnapshot(t *testing.T) {
	a := mustRules(t,
		"for 0.0.0.0/0 translate 10.0.0.0/8 to 1.1.1.1\n"+
			"for 0.0.0.0/0 translate 0.0.0.0/0 to 3.3.3.3\n")
	b := mustRules(t,
		"for 0.0.0.0/0 translate 192.168.0.0/16 to 2.2.2.2\n"+
			"for 0.0.0.0/0 translate 0.0.0.0/0 to 4.4.4.4\n")

	store := ruleset.NewStore()
	store.Commit(a)
	tr := New(store, nil)

	// Under a, 10.x rewrites via rule 0 (1.1.1.1); under b it falls to rule 1
	// (4.4.4.4). 3.3.3.3 or 2.2.2.2 would mean a torn read.
	allowed := map[string]bool{"1.1.1.1": true, "4.4.4.4": true}

	var g errgroup.Group
	done := make(chan struct{})

	g.Go(func() error {
		defer close(done)
		for i := 0; i < 2000; i++ {
			if i%2 == 0 {
				store.Commit(b)
			} else {
				store.Commit(a)
			}
		}
		return nil
	})

	for w := 0; w < 8; w++ {
		g.Go(func() error {
			requester := addr("5.5.5.5")
			for {
				select {
				case <-done:
					return nil
				default:
				}
				peer := addr("10.1.1.1")
				tr.Translate(peer, requester)
				got, _ := netaddr.FromSlice(peer)
				if !allowed[got.String()] {
					t.Errorf("torn ruleset read produced %s", got.String())
					return nil
				}
			}
		})
	}

	require.NoError(t, g.Wait())
}
