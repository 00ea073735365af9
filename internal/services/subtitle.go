package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"pricelist-service/internal/models"
	"pricelist-service/internal/readers"
)

// AnnotatedRow is a reader row plus the subtitle context in effect at that
// row. Subtitle rows themselves carry no context and are not data.
type AnnotatedRow struct {
	readers.Row
	IsSubtitle bool
	Subtitle   map[string]string
}

type compiledSubtitleRule struct {
	models.SubtitleRule
	pattern *regexp.Regexp
}

// SubtitleProcessor detects section-header rows interleaved in a supplier
// file and propagates their parsed data onto following data rows until the
// next section header. The pass is stateful and strictly left to right:
// reordering rows changes which context a row receives.
type SubtitleProcessor struct {
	enabled bool
	rules   []compiledSubtitleRule
	logger  *logrus.Logger
}

// NewSubtitleProcessor compiles the configured detection rules. An invalid
// regex is a configuration error.
func NewSubtitleProcessor(enabled bool, rules []models.SubtitleRule, logger *logrus.Logger) (*SubtitleProcessor, error) {
	compiled := make([]compiledSubtitleRule, 0, len(rules))
	for _, rule := range rules {
		cr := compiledSubtitleRule{SubtitleRule: rule}
		if rule.MatchType == models.SubtitleMatchRegex || rule.MatchType == models.SubtitleMatchHybrid {
			re, err := regexp.Compile(rule.Pattern)
			if err != nil {
				return nil, fmt.Errorf("subtitle rule %q: invalid pattern: %w", rule.Name, err)
			}
			cr.pattern = re
		}
		compiled = append(compiled, cr)
	}
	return &SubtitleProcessor{enabled: enabled, rules: compiled, logger: logger}, nil
}

// Process annotates rows in order. With subtitle handling disabled or no
// rule matching anything, every row passes through unchanged.
func (p *SubtitleProcessor) Process(rows []readers.Row) []AnnotatedRow {
	out := make([]AnnotatedRow, 0, len(rows))
	current := make(map[string]string)

	for _, row := range rows {
		if p.enabled {
			if rule, ok := p.match(row); ok {
				if rule.Action == models.SubtitleActionParse {
					if kv, parsed := p.parse(rule, row); parsed {
						// A new section header replaces the whole context
						current = kv
						p.logger.WithFields(logrus.Fields{
							"row":  row.Index,
							"rule": rule.Name,
							"data": kv,
						}).Debug("Subtitle row parsed")
					}
				}
				out = append(out, AnnotatedRow{Row: row, IsSubtitle: true})
				continue
			}
		}

		annotated := AnnotatedRow{Row: row}
		if len(current) > 0 {
			annotated.Subtitle = copySubtitle(current)
		}
		out = append(out, annotated)
	}
	return out
}

// match evaluates rules in configured order; the first match wins.
func (p *SubtitleProcessor) match(row readers.Row) (*compiledSubtitleRule, bool) {
	nonBlank := nonBlankCells(row.Cells)
	joined := strings.Join(nonBlank, " ")

	for i := range p.rules {
		rule := &p.rules[i]
		switch rule.MatchType {
		case models.SubtitleMatchColumnCount:
			if len(nonBlank) == rule.ColumnCount {
				return rule, true
			}
		case models.SubtitleMatchRegex:
			if rule.pattern != nil && rule.pattern.MatchString(joined) {
				return rule, true
			}
		case models.SubtitleMatchHybrid:
			if len(nonBlank) == rule.ColumnCount && rule.pattern != nil && rule.pattern.MatchString(joined) {
				return rule, true
			}
		}
	}
	return nil, false
}

// parse extracts the rule's key/value from a matched subtitle row. The value
// is the pattern's first capture group when one is present, otherwise the
// first non-blank cell verbatim.
func (p *SubtitleProcessor) parse(rule *compiledSubtitleRule, row readers.Row) (map[string]string, bool) {
	if rule.ParseKey == "" {
		return nil, false
	}

	value := ""
	nonBlank := nonBlankCells(row.Cells)
	if rule.pattern != nil && rule.pattern.NumSubexp() > 0 {
		if m := rule.pattern.FindStringSubmatch(strings.Join(nonBlank, " ")); len(m) > 1 {
			value = strings.TrimSpace(m[1])
		}
	}
	if value == "" && len(nonBlank) > 0 {
		value = nonBlank[0]
	}
	if value == "" {
		return nil, false
	}
	return map[string]string{rule.ParseKey: value}, true
}

func nonBlankCells(cells []string) []string {
	out := make([]string, 0, len(cells))
	for _, cell := range cells {
		if trimmed := strings.TrimSpace(cell); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func copySubtitle(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
