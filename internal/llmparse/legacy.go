package llmparse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/kaptinlin/jsonrepair"
)

// Legacy free-text action grammar, kept for models that never learned the
// structured format. An inline ACTION_JSON marker is checked first, then the
// fixed token patterns.
var (
	fencedBlockRe = regexp.MustCompile("(?s)```(?:json|js)\\s*(.*?)```")

	actionJSONRe = regexp.MustCompile(`(?s)ACTION_JSON:\s*(\{.*?\})`)
	openLongRe   = regexp.MustCompile(`OPEN_LONG_([A-Z0-9]+?)(?:_([0-9]+)X)?\b`)
	openShortRe  = regexp.MustCompile(`OPEN_SHORT_([A-Z0-9]+?)(?:_([0-9]+)X)?\b`)
	closeRe      = regexp.MustCompile(`CLOSE_([A-Z0-9]+)\b`)
	noActionRe   = regexp.MustCompile(`NO_ACTION`)
)

// ParseLegacyAction extracts a single legacy action token from raw model
// text. It never fails; unrecognizable text degrades to "NO_ACTION".
func ParseLegacyAction(raw string) string {
	if m := actionJSONRe.FindStringSubmatch(raw); m != nil {
		if token, ok := tokenFromJSON(m[1]); ok {
			return token
		}
	}

	if m := openLongRe.FindStringSubmatch(raw); m != nil {
		return rebuildOpenToken("OPEN_LONG", m[1], m[2])
	}
	if m := openShortRe.FindStringSubmatch(raw); m != nil {
		return rebuildOpenToken("OPEN_SHORT", m[1], m[2])
	}
	if m := closeRe.FindStringSubmatch(raw); m != nil {
		return "CLOSE_" + m[1]
	}
	if noActionRe.MatchString(raw) {
		return "NO_ACTION"
	}

	return "NO_ACTION"
}

// ActionFromLegacy converts a legacy token back into a TradeAction so the
// reconciler treats both parse paths uniformly. A legacy CLOSE carries no
// direction; it is mapped to CLOSE_LONG and matched by asset alone.
func ActionFromLegacy(token string) (TradeAction, bool) {
	if m := openLongRe.FindStringSubmatch(token); m != nil {
		return TradeAction{Action: ActionOpenLong, Asset: m[1], Leverage: parseLeverage(m[2])}, true
	}
	if m := openShortRe.FindStringSubmatch(token); m != nil {
		return TradeAction{Action: ActionOpenShort, Asset: m[1], Leverage: parseLeverage(m[2])}, true
	}
	if m := closeRe.FindStringSubmatch(token); m != nil {
		return TradeAction{Action: ActionCloseLong, Asset: m[1]}, true
	}
	return TradeAction{Action: ActionNoAction}, false
}

// tokenFromJSON parses the inline ACTION_JSON payload and reconstructs the
// equivalent token.
func tokenFromJSON(payload string) (string, bool) {
	repaired, err := jsonrepair.JSONRepair(payload)
	if err != nil {
		return "", false
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(repaired), &doc); err != nil {
		return "", false
	}

	action, ok := normalizeAction(doc)
	if !ok {
		return "", false
	}

	switch {
	case action.Action.IsOpen():
		lev := ""
		if action.Leverage > 0 {
			lev = strconv.Itoa(int(action.Leverage))
		}
		return rebuildOpenToken(string(action.Action), action.Asset, lev), true
	case action.Action.IsClose():
		return "CLOSE_" + action.Asset, true
	default:
		return "NO_ACTION", true
	}
}

func rebuildOpenToken(prefix, asset, leverage string) string {
	if leverage == "" {
		return fmt.Sprintf("%s_%s", prefix, asset)
	}
	return fmt.Sprintf("%s_%s_%sX", prefix, asset, leverage)
}

func parseLeverage(s string) float64 {
	if s == "" {
		return 0
	}
	lev, _ := strconv.ParseFloat(s, 64)
	return lev
}
