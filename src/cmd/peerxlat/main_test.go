// FILE: peerxlat/src/cmd/peerxlat/main_test.go
package main

import (
	"io"
	"syscall"
	"testing"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peerxlat/src/internal/config"
	"peerxlat/src/internal/reload"
)

func TestParseFlags(t *testing.T) {
	testCases := []struct {
		name     string
		args     []string
		want     flagConfig
		wantRest []string
	}{
		{"Empty", nil, flagConfig{}, []string{}},
		{"ConfigSeparate", []string{"-c", "/etc/p.toml"}, flagConfig{ConfigFile: "/etc/p.toml"}, []string{}},
		{"ConfigInline", []string{"--config=/etc/p.toml", "--rules.file=/tmp/r"}, flagConfig{ConfigFile: "/etc/p.toml"}, []string{"--rules.file=/tmp/r"}},
		{"OverrideSeparateValue", []string{"--rules.file", "/tmp/r", "-q"}, flagConfig{Quiet: true}, []string{"--rules.file", "/tmp/r"}},
		{"QuietAndVersion", []string{"-q", "--version"}, flagConfig{Quiet: true, ShowVersion: true}, []string{}},
		{"QuietFalse", []string{"--quiet=false", "--lookup.enabled=true"}, flagConfig{}, []string{"--lookup.enabled=true"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fc, rest, err := parseFlags(tc.args, io.Discard)
			require.NoError(t, err)
			assert.Equal(t, tc.want, *fc)
			assert.Equal(t, tc.wantRest, rest)
		})
	}

	for _, bad := range [][]string{{"--config"}, {"--config="}, {"--bogus"}, {"stray"}} {
		_, _, err := parseFlags(bad, io.Discard)
		assert.Error(t, err, bad)
	}
}

func TestParseLogLevel(t *testing.T) {
	for _, level := range []string{"debug", "INFO", "warn", "warning", "error"} {
		_, err := parseLogLevel(level)
		assert.NoError(t, err, level)
	}
	_, err := parseLogLevel("verbose")
	assert.Error(t, err)
}

func TestLogArgs(t *testing.T) {
	assert.Equal(t, []string{"stdout_target=stderr"}, consoleTargetArgs(nil))
	assert.Equal(t, []string{"stdout_split_mode=true", "stdout_target=split"},
		consoleTargetArgs(&config.LogConsoleConfig{Target: "split"}))

	args := fileLogArgs(&config.LogFileConfig{Directory: "/var/log", Name: "peerxlat", MaxSizeMB: 10, MaxTotalSizeMB: 100})
	assert.Equal(t, []string{"directory=/var/log", "name=peerxlat", "max_size_mb=10", "max_total_size_mb=100"}, args)
	assert.Nil(t, fileLogArgs(nil))
}

type fakeReloader struct{ reasons []string }

func (f *fakeReloader) Reload(reason string) bool {
	f.reasons = append(f.reasons, reason)
	return true
}

func TestSignalDispatch(t *testing.T) {
	target := &fakeReloader{}
	sh := &SignalHandler{target: target, reloadSignals: true, logger: log.NewLogger()}

	assert.True(t, sh.dispatch(syscall.SIGHUP))
	assert.True(t, sh.dispatch(syscall.SIGUSR1))
	assert.False(t, sh.dispatch(syscall.SIGTERM))
	assert.Equal(t, []string{reload.ReasonSignal, reload.ReasonSignal}, target.reasons)

	disabled := &fakeReloader{}
	sh = &SignalHandler{target: disabled, reloadSignals: false, logger: log.NewLogger()}
	assert.True(t, sh.dispatch(syscall.SIGHUP))
	assert.Empty(t, disabled.reasons)
}
