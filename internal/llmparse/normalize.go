package llmparse

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Normalize extracts a ParsedResponse from raw model text. Candidates are
// gathered in priority order, repaired, parsed, and normalized; the first
// candidate yielding a non-empty structure wins. Returns nil when nothing
// validates, in which case the caller falls back to ParseLegacyAction.
func Normalize(raw string) *ParsedResponse {
	for _, candidate := range candidates(raw) {
		repaired, err := jsonrepair.JSONRepair(candidate)
		if err != nil {
			continue
		}

		var doc map[string]any
		if err := json.Unmarshal([]byte(repaired), &doc); err != nil {
			continue
		}

		parsed := normalizeDocument(doc)
		if !parsed.Empty() {
			return parsed
		}
	}
	return nil
}

// candidates collects JSON candidates from the raw text: fenced code blocks
// first, then the whole text if it is itself an object, then the first-{ to
// last-} substring, and finally the full trimmed text as a last resort.
// Duplicates are removed, order preserved.
func candidates(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	var out []string

	for _, m := range fencedBlockRe.FindAllStringSubmatch(raw, -1) {
		if block := strings.TrimSpace(m[1]); block != "" {
			out = append(out, block)
		}
	}

	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		out = append(out, trimmed)
	} else {
		start := strings.Index(trimmed, "{")
		end := strings.LastIndex(trimmed, "}")
		if start >= 0 && end > start {
			out = append(out, trimmed[start:end+1])
		}
	}

	if trimmed != "" {
		out = append(out, trimmed)
	}

	seen := make(map[string]struct{}, len(out))
	deduped := out[:0]
	for _, c := range out {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		deduped = append(deduped, c)
	}
	return deduped
}

// Alternate key spellings accepted from free-form model output, mapped to
// one canonical field per block before validation.
var (
	headlineKeys = map[string][]string{
		"shortSummary":    {"short_summary", "shortSummary"},
		"extendedSummary": {"extended_summary", "extendedSummary"},
		"thesis":          {"thesis"},
		"sentimentWord":   {"sentiment_word", "sentimentWord"},
		"sentimentScore":  {"sentiment_score", "sentimentScore"},
	}
	overviewKeys = map[string][]string{
		"macro":             {"macro"},
		"marketStructure":   {"market_structure", "marketStructure"},
		"technicalAnalysis": {"technical_analysis", "technicalAnalysis"},
	}
)

func normalizeDocument(doc map[string]any) *ParsedResponse {
	parsed := &ParsedResponse{}

	headlineBlock := blockOrSelf(doc, "headline")
	parsed.Headline = Headline{
		ShortSummary:    stringAt(headlineBlock, headlineKeys["shortSummary"]...),
		ExtendedSummary: stringAt(headlineBlock, headlineKeys["extendedSummary"]...),
		Thesis:          stringAt(headlineBlock, headlineKeys["thesis"]...),
		SentimentWord:   stringAt(headlineBlock, headlineKeys["sentimentWord"]...),
		SentimentScore:  numberAt(headlineBlock, headlineKeys["sentimentScore"]...),
	}

	overviewBlock := blockOrSelf(doc, "overview")
	parsed.Overview = Overview{
		Macro:             stringAt(overviewBlock, overviewKeys["macro"]...),
		MarketStructure:   stringAt(overviewBlock, overviewKeys["marketStructure"]...),
		TechnicalAnalysis: stringAt(overviewBlock, overviewKeys["technicalAnalysis"]...),
	}

	for _, entry := range actionEntries(doc) {
		if action, ok := normalizeAction(entry); ok {
			parsed.TradeActions = append(parsed.TradeActions, action)
		}
	}

	return parsed
}

// blockOrSelf returns doc[key] as a map, or doc itself when the block is
// absent so top-level fields still resolve.
func blockOrSelf(doc map[string]any, key string) map[string]any {
	if nested, ok := doc[key].(map[string]any); ok {
		return nested
	}
	return doc
}

// actionEntries returns the trade-action objects of the document, accepting
// both an array and a single object under either key spelling.
func actionEntries(doc map[string]any) []map[string]any {
	var raw any
	for _, key := range []string{"tradeActions", "trade_actions"} {
		if v, ok := doc[key]; ok {
			raw = v
			break
		}
	}

	switch v := raw.(type) {
	case []any:
		entries := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				entries = append(entries, m)
			}
		}
		return entries
	case map[string]any:
		return []map[string]any{v}
	}
	return nil
}

// normalizeAction validates one action object. Unknown action values and
// non-NO_ACTION entries without an asset are dropped.
func normalizeAction(entry map[string]any) (TradeAction, bool) {
	actionType, ok := ParseActionType(stringAt(entry, "action"))
	if !ok {
		return TradeAction{}, false
	}

	action := TradeAction{
		Action:          actionType,
		Asset:           strings.ToUpper(stringAt(entry, "asset", "symbol", "coin")),
		Leverage:        numberAt(entry, "leverage"),
		Size:            numberAt(entry, "size", "trade_amount", "tradeAmount"),
		Entry:           numberAt(entry, "entry", "entry_price", "entryPrice", "limit_price", "limitPrice"),
		StopLoss:        numberAt(entry, "stop_loss", "stopLoss"),
		TakeProfit:      numberAt(entry, "take_profit", "takeProfit"),
		ConfidenceScore: numberAt(entry, "confidence_score", "confidenceScore", "confidence"),
		Reasoning:       stringAt(entry, "reasoning", "justification", "reason"),
	}

	if actionType != ActionNoAction && action.Asset == "" {
		return TradeAction{}, false
	}

	return action, true
}

func stringAt(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

func numberAt(m map[string]any, keys ...string) float64 {
	for _, key := range keys {
		v, ok := m[key]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return f
			}
		}
	}
	return 0
}
