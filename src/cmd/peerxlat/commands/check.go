// FILE: peerxlat/src/cmd/peerxlat/commands/check.go
package commands

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"peerxlat/src/internal/netaddr"
	"peerxlat/src/internal/ruleset"
	"peerxlat/src/internal/translate"
)

// CheckCommand parses a rules file offline and optionally evaluates one
// requester/peer pair against it.
type CheckCommand struct {
	output io.Writer
	errOut io.Writer
}

func NewCheckCommand() *CheckCommand {
	return &CheckCommand{
		output: os.Stdout,
		errOut: os.Stderr,
	}
}

func (cc *CheckCommand) Execute(args []string) error {
	cmd := flag.NewFlagSet("check", flag.ContinueOnError)
	cmd.SetOutput(cc.errOut)

	var (
		phrase        = cmd.String("s", ruleset.DefaultStopPhrase, "Stop phrase")
		phraseLong    = cmd.String("stop-phrase", ruleset.DefaultStopPhrase, "Stop phrase")
		maxRules      = cmd.Int("m", 0, "Maximum number of rules (0 = unlimited)")
		maxRulesLong  = cmd.Int("max-rules", 0, "Maximum number of rules (0 = unlimited)")
		requester     = cmd.String("r", "", "Requester address to evaluate")
		requesterLong = cmd.String("requester", "", "Requester address to evaluate")
		peer          = cmd.String("p", "", "Peer address to evaluate")
		peerLong      = cmd.String("peer", "", "Peer address to evaluate")
		quiet         = cmd.Bool("q", false, "Only report errors")
	)

	cmd.Usage = func() {
		fmt.Fprint(cc.errOut, cc.Help())
	}

	// Accept the file before or after the flags
	var path string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		path, args = args[0], args[1:]
	}
	if err := cmd.Parse(args); err != nil {
		return err
	}
	if path == "" {
		if cmd.NArg() != 1 {
			cmd.Usage()
			return fmt.Errorf("exactly one rules file required")
		}
		path = cmd.Arg(0)
	} else if cmd.NArg() > 0 {
		return fmt.Errorf("unexpected argument(s): %s", strings.Join(cmd.Args(), " "))
	}

	stopPhrase := *phrase
	if *phraseLong != ruleset.DefaultStopPhrase {
		stopPhrase = *phraseLong
	}
	finalMax := coalesceInt(*maxRules, *maxRulesLong, 0)
	finalRequester := coalesceString(*requester, *requesterLong)
	finalPeer := coalesceString(*peer, *peerLong)

	if (finalRequester == "") != (finalPeer == "") {
		return fmt.Errorf("--requester and --peer must be given together")
	}

	rs, err := ruleset.Load(path, ruleset.WithStopPhrase(stopPhrase), ruleset.WithMaxRules(finalMax))
	if err != nil {
		var pe *ruleset.ParseError
		if errors.As(err, &pe) && pe.Line > 0 {
			fmt.Fprintf(cc.errOut, "%s:%d: %s\n", path, pe.Line, strings.TrimRight(pe.Raw, "\r\n"))
		}
		return fmt.Errorf("%s: %w", ruleset.CauseName(err), err)
	}

	if !*quiet {
		for i, r := range rs.Rules {
			fmt.Fprintf(cc.output, "%4d  %s\n", i+1, r.Format(stopPhrase))
		}
		fmt.Fprintf(cc.output, "# %d rule(s) OK (%s)\n", rs.Len(), netaddr.Family)
	}

	if finalRequester == "" {
		return nil
	}
	return cc.evaluate(rs, stopPhrase, finalRequester, finalPeer)
}

func (cc *CheckCommand) evaluate(rs *ruleset.Ruleset, stopPhrase, requester, peer string) error {
	req, err := netaddr.ParseAddr(requester)
	if err != nil {
		return fmt.Errorf("invalid requester: %w", err)
	}
	p, err := netaddr.ParseAddr(peer)
	if err != nil {
		return fmt.Errorf("invalid peer: %w", err)
	}

	d := translate.Evaluate(rs, p.Bytes(), req.Bytes())
	switch d.Action {
	case translate.ActionRewrite:
		fmt.Fprintf(cc.output, "%s -> %s (rule %d: %s)\n", p, d.To, d.Rule+1, rs.Rules[d.Rule].Format(stopPhrase))
	case translate.ActionStop:
		fmt.Fprintf(cc.output, "%s unchanged (stopped by rule %d: %s)\n", p, d.Rule+1, rs.Rules[d.Rule].Format(stopPhrase))
	default:
		fmt.Fprintf(cc.output, "%s unchanged (no rule matched)\n", p)
	}
	return nil
}

func (cc *CheckCommand) Description() string {
	return "Validate a rules file and optionally evaluate an address pair"
}

func (cc *CheckCommand) Help() string {
	return `Check Command - Validate a peer translation rules file

Usage:
  peerxlat check <rules-file> [options]

Options:
  -s, --stop-phrase <text>   Stop phrase (default: "no further action")
  -m, --max-rules <n>        Fail when the file holds more than n rules
  -r, --requester <addr>     Requester address to evaluate
  -p, --peer <addr>          Peer address to evaluate
  -q                         Only report errors

The rules are printed back in canonical form. On a malformed file the
offending line is printed and the command exits with status 1.

Examples:
  peerxlat check /etc/peerxlat/peers.rules
  peerxlat check peers.rules -r 10.1.2.3 -p 192.168.1.20
`
}
