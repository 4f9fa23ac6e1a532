// FILE: peerxlat/src/internal/ruleset/parser_test.go
//go:build !ipv6

package ruleset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peerxlat/src/internal/netaddr"
)

func prefix(s string) netaddr.Prefix {
	addr, bits, _ := strings.Cut(s, "/")
	p := netaddr.Prefix{Addr: netaddr.MustParseAddr(addr)}
	for _, ch := range bits {
		p.Bits = p.Bits*10 + int(ch-'0')
	}
	return p
}

func translateRule(forWhom, from, to string) Rule {
	return Rule{ForWhom: prefix(forWhom), From: prefix(from), To: netaddr.MustParseAddr(to)}
}

func stopRule(forWhom string) Rule {
	return Rule{ForWhom: prefix(forWhom), Stopper: true}
}

func TestParse_Valid(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  []Rule
	}{
		{
			name:  "SingleTranslate",
			input: "for 10.0.0.0/8 translate 192.168.0.0/16 to 1.2.3.4\n",
			want:  []Rule{translateRule("10.0.0.0/8", "192.168.0.0/16", "1.2.3.4")},
		},
		{
			name:  "Stopper",
			input: "for 0.0.0.0/0 no further action\n",
			want:  []Rule{stopRule("0.0.0.0/0")},
		},
		{
			name: "CommentsAndBlanksSkipped",
			input: "# header\n\n   \n" +
				"for 10.0.0.0/8 no further action\n" +
				"\t# indented comment\n" +
				"for 172.16.0.0/12 translate 10.0.0.0/8 to 5.6.7.8\n",
			want: []Rule{
				stopRule("10.0.0.0/8"),
				translateRule("172.16.0.0/12", "10.0.0.0/8", "5.6.7.8"),
			},
		},
		{
			name:  "FlexibleWhitespace",
			input: "  for\t10.0.0.0 /8    translate \t 192.168.0.0/16\tto   1.2.3.4  \r\n",
			want:  []Rule{translateRule("10.0.0.0/8", "192.168.0.0/16", "1.2.3.4")},
		},
		{
			name:  "StopPhraseAnywhereAfterPrefix",
			input: "for 10.0.0.0/8 and then no further action please\n",
			want:  []Rule{stopRule("10.0.0.0/8")},
		},
		{
			name:  "KeywordsFoundBySearch",
			input: "rule: for 10.0.0.0/8 then translate 192.168.0.0/16 over to 1.2.3.4 trailing words\n",
			want:  []Rule{translateRule("10.0.0.0/8", "192.168.0.0/16", "1.2.3.4")},
		},
		{
			name:  "ExtremePrefixLengths",
			input: "for 1.2.3.4/32 translate 0.0.0.0/0 to 9.9.9.9\n",
			want:  []Rule{translateRule("1.2.3.4/32", "0.0.0.0/0", "9.9.9.9")},
		},
		{
			name:  "NoTrailingNewline",
			input: "for 10.0.0.0/8 no further action",
			want:  []Rule{stopRule("10.0.0.0/8")},
		},
		{
			name:  "OnlyComments",
			input: "# nothing here\n\n",
			want:  []Rule{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(strings.NewReader(tc.input))
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		cause error
		line  int
	}{
		{"MissingFor", "translate 1.2.3.0/24 to 4.4.4.4\n", ErrGrammar, 1},
		{"MissingSlash", "for 10.0.0.0 no further action\n", ErrGrammar, 1},
		{"MissingBits", "for 10.0.0.0/ no further action\n", ErrGrammar, 1},
		{"BitsTooLarge", "for 10.0.0.0/33 no further action\n", ErrRange, 1},
		{"NegativeBits", "for 10.0.0.0/-1 no further action\n", ErrRange, 1},
		{"HugeBits", "for 10.0.0.0/99999999999999999999999 no further action\n", ErrRange, 1},
		{"BadForAddress", "for 10.0.0.256/8 no further action\n", ErrAddressSyntax, 1},
		{"IPv6InIPv4Build", "for 2001:db8::/32 no further action\n", ErrAddressSyntax, 1},
		{"MissingTranslate", "for 10.0.0.0/8 rewrite 1.0.0.0/8 to 2.2.2.2\n", ErrGrammar, 1},
		{"FromBitsTooLarge", "for 10.0.0.0/8 translate 1.0.0.0/40 to 2.2.2.2\n", ErrRange, 1},
		{"MissingTo", "# ok\nfor 10.0.0.0/8 translate 1.0.0.0/8 2.2.2.2\n", ErrGrammar, 2},
		{"MissingToAddress", "for 10.0.0.0/8 translate 1.0.0.0/8 to \n", ErrAddressSyntax, 1},
		{"BadToAddress", "for 10.0.0.0/8 translate 1.0.0.0/8 to nowhere\n", ErrAddressSyntax, 1},
		{"NoSpaceAfterKeyword", "for10.0.0.0/8 no further action\n", ErrGrammar, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(strings.NewReader(tc.input))
			require.Error(t, err)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, tc.cause)

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tc.line, pe.Line)
			assert.NotEmpty(t, pe.Raw)
			assert.Contains(t, err.Error(), "line")
		})
	}
}

func TestParse_MalformedLineDiscardsEarlierRules(t *testing.T) {
	input := "for 10.0.0.0/8 no further action\n" +
		"for 11.0.0.0/8 translate 1.0.0.0/8 to 2.2.2.2\n" +
		"for 12.0.0.0/8 translate 1.0.0.0/8\n" +
		"for 13.0.0.0/8 no further action\n"

	got, err := Parse(strings.NewReader(input))
	assert.ErrorIs(t, err, ErrGrammar)
	assert.Nil(t, got)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 3, pe.Line)
	assert.Equal(t, "for 12.0.0.0/8 translate 1.0.0.0/8", pe.Raw)
}

func TestParse_OrderPreserved(t *testing.T) {
	var b strings.Builder
	want := make([]Rule, 0, 50)
	for i := 0; i < 50; i++ {
		if i%3 == 0 {
			b.WriteString("# filler\n\n")
		}
		r := Rule{ForWhom: netaddr.Prefix{Addr: netaddr.MustParseAddr("10.0.0.0"), Bits: i % 33}, Stopper: true}
		r.ForWhom.Addr[13] = byte(i)
		want = append(want, r)
		b.WriteString(r.String())
		b.WriteByte('\n')
	}

	got, err := Parse(strings.NewReader(b.String()))
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, len(got), cap(got))
}

func TestParse_Options(t *testing.T) {
	t.Run("CustomStopPhrase", func(t *testing.T) {
		got, err := Parse(strings.NewReader("for 10.0.0.0/8 nothing more\n"), WithStopPhrase("nothing more"))
		require.NoError(t, err)
		assert.Equal(t, []Rule{stopRule("10.0.0.0/8")}, got)
	})

	t.Run("DefaultPhraseNotStopperWithCustom", func(t *testing.T) {
		_, err := Parse(strings.NewReader("for 10.0.0.0/8 no further action\n"), WithStopPhrase("nothing more"))
		assert.ErrorIs(t, err, ErrGrammar)
	})

	t.Run("MaxRulesExceeded", func(t *testing.T) {
		input := strings.Repeat("for 10.0.0.0/8 no further action\n", 3)
		_, err := Parse(strings.NewReader(input), WithMaxRules(2))
		assert.ErrorIs(t, err, ErrAllocation)
		assert.Equal(t, "allocation", CauseName(err))
	})

	t.Run("MaxRulesExact", func(t *testing.T) {
		input := strings.Repeat("for 10.0.0.0/8 no further action\n", 2)
		got, err := Parse(strings.NewReader(input), WithMaxRules(2))
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}

func TestParse_LineTooLong(t *testing.T) {
	long := "for 10.0.0.0/8 no further action " + strings.Repeat("x", maxLineLength)
	input := "# header\nfor 1.0.0.0/8 no further action\n" + long + "\nfor 2.0.0.0/8 no further action\n"

	_, err := Parse(strings.NewReader(input))
	require.ErrorIs(t, err, ErrGrammar)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 3, pe.Line)
	assert.Len(t, pe.Raw, rawPreviewLength)
	assert.True(t, strings.HasPrefix(long, pe.Raw))
	assert.Contains(t, pe.Error(), "line 3")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("Success", func(t *testing.T) {
		path := filepath.Join(dir, "ok.rules")
		require.NoError(t, os.WriteFile(path, []byte("for 10.0.0.0/8 translate 192.168.0.0/16 to 1.2.3.4\n"), 0o644))

		rs, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 1, rs.Len())
		assert.Equal(t, path, rs.Source)
		assert.False(t, rs.LoadedAt.IsZero())
	})

	t.Run("MissingFile", func(t *testing.T) {
		rs, err := Load(filepath.Join(dir, "missing.rules"))
		assert.Nil(t, rs)
		assert.ErrorIs(t, err, ErrFileUnavailable)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Equal(t, "file_unavailable", CauseName(err))
	})
}

func TestRule_StringRoundTrip(t *testing.T) {
	rules := []Rule{
		translateRule("10.0.0.0/8", "192.168.0.0/16", "1.2.3.4"),
		stopRule("0.0.0.0/0"),
	}
	assert.Equal(t, "for 10.0.0.0/8 translate 192.168.0.0/16 to 1.2.3.4", rules[0].String())
	assert.Equal(t, "for 0.0.0.0/0 nothing more", rules[1].Format("nothing more"))

	var b strings.Builder
	for _, r := range rules {
		b.WriteString(r.String() + "\n")
	}
	got, err := Parse(strings.NewReader(b.String()))
	require.NoError(t, err)
	assert.Equal(t, rules, got)
}
