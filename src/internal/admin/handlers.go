// FILE: peerxlat/src/internal/admin/handlers.go
package admin

import (
	"time"

	"peerxlat/src/internal/netaddr"
	"peerxlat/src/internal/reload"
	"peerxlat/src/internal/translate"
	"peerxlat/src/internal/version"

	"github.com/valyala/fasthttp"
)

func (s *Server) handleStatus(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, fasthttp.StatusOK, map[string]any{
		"service":        "peerxlat",
		"version":        version.Short(),
		"address_family": netaddr.Family,
		"server_time":    time.Now().UTC().Format(time.RFC3339),
		"engine":         s.backend.GetStats(),
		"admin":          s.GetStats(),
	})
}

type ruleView struct {
	Index   int    `json:"index"`
	Text    string `json:"text"`
	Stopper bool   `json:"stopper"`
}

func (s *Server) handleRules(ctx *fasthttp.RequestCtx) {
	rs := s.backend.Rules()
	phrase := s.backend.StopPhrase()

	rules := make([]ruleView, 0, rs.Len())
	for i, r := range rs.Rules {
		rules = append(rules, ruleView{Index: i, Text: r.Format(phrase), Stopper: r.Stopper})
	}

	body := map[string]any{
		"source": rs.Source,
		"count":  len(rules),
		"rules":  rules,
	}
	if !rs.LoadedAt.IsZero() {
		body["loaded_at"] = rs.LoadedAt.UTC().Format(time.RFC3339)
	}
	writeJSON(ctx, fasthttp.StatusOK, body)
}

func (s *Server) handleTranslate(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()

	requester, err := netaddr.ParseAddr(string(args.Peek("requester")))
	if err != nil {
		writeJSON(ctx, fasthttp.StatusBadRequest, map[string]string{
			"error": "invalid requester: " + err.Error(),
		})
		return
	}
	peer, err := netaddr.ParseAddr(string(args.Peek("peer")))
	if err != nil {
		writeJSON(ctx, fasthttp.StatusBadRequest, map[string]string{
			"error": "invalid peer: " + err.Error(),
		})
		return
	}

	d, rs := s.backend.Evaluate(peer.Bytes(), requester.Bytes())

	result := peer
	if d.Action == translate.ActionRewrite {
		result = d.To
	}

	body := map[string]any{
		"requester": requester.String(),
		"peer":      peer.String(),
		"result":    result.String(),
		"action":    d.Action.String(),
		"rule":      d.Rule,
	}
	if d.Rule >= 0 {
		body["rule_text"] = rs.Rules[d.Rule].Format(s.backend.StopPhrase())
	}
	writeJSON(ctx, fasthttp.StatusOK, body)
}

// handleReload queues a reload, or with ?wait=true runs it before replying.
func (s *Server) handleReload(ctx *fasthttp.RequestCtx) {
	if !ctx.QueryArgs().GetBool("wait") {
		queued := s.backend.Reload(reload.ReasonAdmin)
		writeJSON(ctx, fasthttp.StatusAccepted, map[string]any{
			"queued": queued,
		})
		return
	}

	err := s.backend.ReloadNow(reload.ReasonAdmin)
	status := fasthttp.StatusOK
	if err != nil {
		status = fasthttp.StatusUnprocessableEntity
	}
	writeJSON(ctx, status, s.backend.Status())
}
