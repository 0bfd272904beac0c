package analyzer

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/secmon-lab/claimdesk/pkg/domain/model"
	"github.com/secmon-lab/claimdesk/pkg/domain/types"
)

// text fields some service versions wrap free form answers in
var wrapperKeys = []string{"result", "response", "explanation", "analysis", "output", "text"}

var (
	fencePattern       = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	likelihoodPattern  = regexp.MustCompile(`(?i)(?:ai[\s_-]*generated[\s_-]*)?likelihood(?:[\s_-]*score)?(?:\*\*)?["']?\s*[:=]\s*(?:\*\*)?\s*["']?([0-9]+(?:\.[0-9]+)?)\s*(%?)`)
	descriptionPattern = regexp.MustCompile(`(?im)^\s*(?:\*\*)?description(?:\*\*)?\s*[:\-]\s*(.+)$`)
	reasoningPattern   = regexp.MustCompile(`(?im)^\s*(?:\*\*)?reason(?:ing)?(?:\*\*)?\s*[:\-]\s*(.+)$`)
	tableSeparator     = regexp.MustCompile(`^\|?\s*:?-{2,}`)
)

// extractJSON strips markdown fences and surrounding prose from a JSON payload
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		return s
	}
	start := strings.IndexAny(s, "{[")
	end := strings.LastIndexAny(s, "}]")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// unwrapText returns the free text inside a JSON wrapper object, or raw unchanged
func unwrapText(raw string) string {
	text, _ := wrappedText(raw)
	return text
}

// wrappedText is unwrapText that also reports whether raw held a JSON object
// without any wrapper text, i.e. a structured answer rather than prose
func wrappedText(raw string) (string, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &obj); err != nil {
		return raw, false
	}
	for _, k := range wrapperKeys {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return s, false
		}
	}
	return raw, true
}

// likelihoodOf reads a likelihood literal. Percentages are scaled down; bare
// numbers must already be within [0,1].
func likelihoodOf(num, percent string) (float64, bool) {
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	if percent == "%" {
		v /= 100
	}
	return v, v >= 0 && v <= 1
}

// ParseExplanation interprets an /explain body. It never fails: unparseable
// content yields likelihood 0, the raw text as description and ParseStatusFallback.
func ParseExplanation(raw string) *model.ImageAnalysis {
	doc := extractJSON(raw)
	valid, reason := validate(explainSchema, doc)
	if valid {
		var body struct {
			Description           string  `json:"description"`
			AIGeneratedLikelihood float64 `json:"ai_generated_likelihood"`
			Reasoning             string  `json:"reasoning"`
		}
		if err := json.Unmarshal([]byte(doc), &body); err == nil {
			return &model.ImageAnalysis{
				Description:           body.Description,
				AIGeneratedLikelihood: body.AIGeneratedLikelihood,
				Reasoning:             body.Reasoning,
				Raw:                   raw,
				ParseStatus:           types.ParseStatusSchema,
			}
		}
	}

	// a JSON answer that broke the contract is not searched for numbers
	text, structured := wrappedText(raw)
	if !structured {
		if m := likelihoodPattern.FindStringSubmatch(text); m != nil {
			v, ok := likelihoodOf(m[1], m[2])
			if !ok {
				return explanationFallback(raw, "likelihood out of range: "+m[1]+m[2])
			}
			a := &model.ImageAnalysis{
				Description:           strings.TrimSpace(text),
				AIGeneratedLikelihood: v,
				Raw:                   raw,
				ParseStatus:           types.ParseStatusPattern,
				ParseError:            reason,
			}
			if d := descriptionPattern.FindStringSubmatch(text); d != nil {
				a.Description = strings.TrimSpace(d[1])
			}
			if r := reasoningPattern.FindStringSubmatch(text); r != nil {
				a.Reasoning = strings.TrimSpace(r[1])
			}
			return a
		}
	}

	if reason == "" {
		reason = "no likelihood found"
	}
	return explanationFallback(raw, reason)
}

func explanationFallback(raw, reason string) *model.ImageAnalysis {
	return &model.ImageAnalysis{
		Description:           raw,
		AIGeneratedLikelihood: 0,
		Raw:                   raw,
		ParseStatus:           types.ParseStatusFallback,
		ParseError:            reason,
	}
}

// costString renders a JSON cost that may be a string or a number
func costString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}

func amountOf(cost string) int64 {
	if lit := model.ExtractCurrency(cost); lit != "" {
		cost = lit
	}
	v, _ := model.ParseAmount(cost)
	return v
}

// ParseDamageEstimate interprets a /check_damage body: the JSON contract first,
// then a markdown table, then an empty estimate with ParseStatusFallback.
func ParseDamageEstimate(raw string) *model.DamageEstimate {
	doc := extractJSON(raw)
	valid, reason := validate(damageSchema, doc)
	if valid {
		var body struct {
			Items []struct {
				Part     string `json:"part"`
				Severity string `json:"severity"`
				Cost     any    `json:"cost"`
			} `json:"items"`
			TotalCost any `json:"total_cost"`
		}
		if err := json.Unmarshal([]byte(doc), &body); err == nil {
			est := &model.DamageEstimate{
				Items:       make([]model.DamageItem, 0, len(body.Items)),
				TotalCost:   costString(body.TotalCost),
				Raw:         raw,
				ParseStatus: types.ParseStatusSchema,
			}
			for _, it := range body.Items {
				cost := costString(it.Cost)
				est.Items = append(est.Items, model.DamageItem{
					Part:     it.Part,
					Severity: it.Severity,
					Cost:     cost,
					Amount:   amountOf(cost),
				})
			}
			finishTotals(est)
			return est
		}
	}

	text := unwrapText(raw)
	if est := parseDamageTable(text); est != nil {
		est.Raw = raw
		est.ParseStatus = types.ParseStatusPattern
		est.ParseError = reason
		return est
	}

	if reason == "" {
		reason = "no damage table found"
	}
	return &model.DamageEstimate{
		Items:       []model.DamageItem{},
		TotalCost:   model.ExtractCurrency(text),
		Raw:         raw,
		ParseStatus: types.ParseStatusFallback,
		ParseError:  reason,
	}
}

func finishTotals(est *model.DamageEstimate) {
	if est.TotalCost != "" {
		est.TotalAmount = amountOf(est.TotalCost)
		return
	}
	var sum int64
	for _, it := range est.Items {
		sum += it.Amount
	}
	est.TotalAmount = sum
}

func splitRow(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	cells := strings.Split(line, "|")
	for i := range cells {
		cells[i] = strings.TrimSpace(strings.Trim(strings.TrimSpace(cells[i]), "*"))
	}
	return cells
}

// parseDamageTable reads rows like "| Bumper | Moderate | ₹4,500 |". The first
// row is a header when it contains no currency literal.
func parseDamageTable(text string) *model.DamageEstimate {
	est := &model.DamageEstimate{Items: []model.DamageItem{}}
	header := true
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "|") {
			if lit := model.ExtractCurrency(trimmed); lit != "" && strings.Contains(strings.ToLower(trimmed), "total") && est.TotalCost == "" {
				est.TotalCost = lit
			}
			continue
		}
		if tableSeparator.MatchString(trimmed) {
			continue
		}

		cells := splitRow(trimmed)
		if len(cells) < 2 || cells[0] == "" {
			continue
		}
		cost := cells[len(cells)-1]
		if header && model.ExtractCurrency(cost) == "" {
			if _, ok := model.ParseAmount(cost); !ok {
				header = false
				continue
			}
		}
		header = false

		if strings.Contains(strings.ToLower(cells[0]), "total") {
			est.TotalCost = cost
			continue
		}

		item := model.DamageItem{Part: cells[0], Cost: cost, Amount: amountOf(cost)}
		if len(cells) >= 3 {
			item.Severity = cells[1]
		}
		est.Items = append(est.Items, item)
	}

	if len(est.Items) == 0 {
		return nil
	}
	finishTotals(est)
	return est
}

// ParseDamageComponents interprets the admin component analysis body
func ParseDamageComponents(raw string) *model.DamageComponentReport {
	doc := extractJSON(raw)
	valid, reason := validate(componentsSchema, doc)
	if valid {
		var body struct {
			Components []model.DamageComponent `json:"components"`
		}
		if err := json.Unmarshal([]byte(doc), &body); err == nil {
			return &model.DamageComponentReport{
				Components:  body.Components,
				Raw:         raw,
				ParseStatus: types.ParseStatusSchema,
			}
		}
	}

	text := unwrapText(raw)
	var components []model.DamageComponent
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "|") || tableSeparator.MatchString(trimmed) {
			continue
		}
		cells := splitRow(trimmed)
		if len(cells) < 2 || cells[0] == "" || strings.EqualFold(cells[0], "component") {
			continue
		}
		status := strings.ToLower(cells[1])
		c := model.DamageComponent{
			Name:    cells[0],
			Damaged: status == "yes" || (strings.Contains(status, "damage") && !strings.Contains(status, "no")),
		}
		if len(cells) >= 3 {
			c.Severity = cells[2]
		}
		components = append(components, c)
	}
	if len(components) > 0 {
		return &model.DamageComponentReport{
			Components:  components,
			Raw:         raw,
			ParseStatus: types.ParseStatusPattern,
			ParseError:  reason,
		}
	}

	if reason == "" {
		reason = "no components found"
	}
	return &model.DamageComponentReport{
		Components:  []model.DamageComponent{},
		Raw:         raw,
		ParseStatus: types.ParseStatusFallback,
		ParseError:  reason,
	}
}
