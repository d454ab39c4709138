package session

import (
	"io"

	"github.com/netconf-light/agent/internal/netconf/xmlevent"
)

// copyConfigWhitelist is the set of element names recognized anywhere
// inside a copy-config element, grounded verbatim on netconf-light.c's
// copyConfigHandler whitelist check.
var copyConfigWhitelist = map[string]bool{
	"target":   true,
	"running":  true,
	"source":   true,
	"config":   true,
	"contact":  true,
	"location": true,
	"name":     true,
	"lcd":      true,
}

// checkCompliance runs the one-shot pre-pass of spec.md §4.3 over a
// complete input document: it determines whether the document is a
// copy-config whose body (target, source and config alike) contains only
// whitelisted elements and no attributes. It does not consume any other event sequence; the main
// dispatch pass re-reads the same bytes independently.
//
// A parse failure here is not reported as a Go error: it is treated as
// non-compliant instead, the same as any other rejected document, and the
// main dispatch pass is left as the single place that turns malformed XML
// into a framed rpc-error reply (spec.md §7 category 2). This pre-pass
// runs first only to decide foundCopyConfig/compliant; it must never be
// the thing that tears the connection down.
func checkCompliance(doc []byte) (foundCopyConfig, compliant bool) {
	compliant = true
	r := xmlevent.NewReader(doc)
	depth := 0
	inCopyConfig := false
	for {
		ev, nerr := r.Next()
		if nerr == io.EOF {
			break
		}
		if nerr != nil {
			return foundCopyConfig, false
		}
		switch ev.Kind {
		case xmlevent.OpenElement:
			if !inCopyConfig && ev.Name == "copy-config" {
				inCopyConfig = true
				foundCopyConfig = true
				depth = 0
				continue
			}
			if inCopyConfig {
				depth++
				if !copyConfigWhitelist[ev.Name] {
					compliant = false
				}
				if len(ev.Attrs) > 0 {
					compliant = false
				}
			}
		case xmlevent.CloseElement:
			if inCopyConfig {
				if ev.Name == "copy-config" && depth == 0 {
					inCopyConfig = false
					return foundCopyConfig, compliant
				}
				depth--
			}
		}
	}
	return foundCopyConfig, compliant
}
