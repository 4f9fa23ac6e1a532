// FILE: peerxlat/src/cmd/peerxlat/commands/check_test.go
//go:build !ipv6

package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peerxlat/src/internal/ruleset"
)

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "peers.rules")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newCheck() (*CheckCommand, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return &CheckCommand{output: &out, errOut: &errOut}, &out, &errOut
}

func TestCheckValidFile(t *testing.T) {
	path := writeRules(t, "# tracker rules\nfor 10.0.0.0/8   translate 192.168.0.0/16 to 1.2.3.4\nfor 0.0.0.0/0 no further action\n")
	cmd, out, _ := newCheck()

	require.NoError(t, cmd.Execute([]string{path}))
	assert.Contains(t, out.String(), "   1  for 10.0.0.0/8 translate 192.168.0.0/16 to 1.2.3.4\n")
	assert.Contains(t, out.String(), "   2  for 0.0.0.0/0 no further action\n")
	assert.Contains(t, out.String(), "# 2 rule(s) OK (ipv4)")
}

func TestCheckMalformedFile(t *testing.T) {
	path := writeRules(t, "for 10.0.0.0/8 no further action\nfor 10.0.0.0/40 no further action\n")
	cmd, out, errOut := newCheck()

	err := cmd.Execute([]string{path})
	require.Error(t, err)
	assert.ErrorIs(t, err, ruleset.ErrRange)
	assert.Contains(t, err.Error(), "range")
	assert.Contains(t, errOut.String(), path+":2: for 10.0.0.0/40 no further action")
	assert.Empty(t, out.String())
}

func TestCheckEvaluate(t *testing.T) {
	path := writeRules(t, "for 10.0.0.0/8 translate 192.168.0.0/16 to 1.2.3.4\nfor 11.0.0.0/8 stop here\n")

	testCases := []struct {
		name string
		args []string
		want string
	}{
		{"Rewrite", []string{"-r", "10.9.9.9", "-p", "192.168.1.1"}, "192.168.1.1 -> 1.2.3.4 (rule 1: "},
		{"Stop", []string{"--requester", "11.1.1.1", "--peer", "192.168.1.1"}, "192.168.1.1 unchanged (stopped by rule 2: for 11.0.0.0/8 stop here)"},
		{"NoMatch", []string{"-r", "12.0.0.1", "-p", "192.168.1.1"}, "192.168.1.1 unchanged (no rule matched)"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cmd, out, _ := newCheck()
			args := append([]string{path, "-q", "-s", "stop here"}, tc.args...)
			require.NoError(t, cmd.Execute(args))
			assert.Contains(t, out.String(), tc.want)
		})
	}
}

func TestCheckArguments(t *testing.T) {
	path := writeRules(t, "")

	cmd, _, _ := newCheck()
	assert.Error(t, cmd.Execute(nil))

	cmd, _, _ = newCheck()
	assert.ErrorContains(t, cmd.Execute([]string{path, "-r", "10.0.0.1"}), "together")

	cmd, _, _ = newCheck()
	assert.ErrorContains(t, cmd.Execute([]string{path, "-r", "10.0.0.1", "-p", "bogus"}), "invalid peer")

	cmd, out, _ := newCheck()
	require.NoError(t, cmd.Execute([]string{"-q", path}))
	assert.Empty(t, out.String())
}

func TestCheckMaxRules(t *testing.T) {
	path := writeRules(t, "for 1.0.0.0/8 no further action\nfor 2.0.0.0/8 no further action\n")
	cmd, _, _ := newCheck()

	err := cmd.Execute([]string{path, "--max-rules", "1"})
	assert.ErrorIs(t, err, ruleset.ErrAllocation)
}
