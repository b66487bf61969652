package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guillermoBallester/strata/internal/core/domain"
	"github.com/guillermoBallester/strata/internal/core/port"
)

// RuleEngine runs the cross-field consistency rules against assessment
// tables. Every rule runs on its own: one failing rule is reported under
// "<rule>_error" and never stops the others.
type RuleEngine struct {
	rules       []domain.ConsistencyRule
	placeholder string
	logger      *slog.Logger
}

// NewRuleEngine validates rules and builds an engine. Nil rules select
// domain.DefaultConsistencyRules and an empty placeholder selects
// domain.DefaultPlaceholder.
func NewRuleEngine(rules []domain.ConsistencyRule, placeholder string, logger *slog.Logger) (*RuleEngine, error) {
	if rules == nil {
		rules = domain.DefaultConsistencyRules()
	}
	if placeholder == "" {
		placeholder = domain.DefaultPlaceholder
	}

	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("%w: duplicate consistency rule %q", domain.ErrConfiguration, r.Name)
		}
		seen[r.Name] = true
	}

	return &RuleEngine{
		rules:       append([]domain.ConsistencyRule(nil), rules...),
		placeholder: placeholder,
		logger:      logger,
	}, nil
}

// Rules returns the configured rules in evaluation order.
func (e *RuleEngine) Rules() []domain.ConsistencyRule {
	return append([]domain.ConsistencyRule(nil), e.rules...)
}

// RunChecks evaluates every rule against table. Non-assessment tables get
// an empty result without touching the store. columns is the table schema,
// used to resolve rule column names regardless of case.
func (e *RuleEngine) RunChecks(ctx context.Context, source port.ValueSource, table string, columns []domain.ColumnDescriptor, isAssessment bool) domain.RuleChecks {
	if !isAssessment {
		return nil
	}

	checks := make(domain.RuleChecks, 0, len(e.rules))
	for _, rule := range e.rules {
		res, err := e.run(ctx, source, table, columns, rule)
		if err != nil {
			e.logger.WarnContext(ctx, "consistency rule failed",
				slog.String("db.collection.name", table),
				slog.String("rule", rule.Name),
				slog.String("error.type", domain.ErrorKind(err)),
				slog.String("error.message", err.Error()),
			)
			checks = append(checks, domain.RuleOutcome{Rule: rule.Name, Err: err.Error()})
			continue
		}
		checks = append(checks, domain.RuleOutcome{Rule: rule.Name, Result: &res})
	}
	return checks
}

func (e *RuleEngine) run(ctx context.Context, source port.ValueSource, table string, columns []domain.ColumnDescriptor, rule domain.ConsistencyRule) (domain.CheckResult, error) {
	resolved, err := rule.ResolveColumns(table, columns)
	if err != nil {
		return domain.CheckResult{}, err
	}

	tally := domain.NewRuleTally(rule, e.placeholder)
	err = source.ScanRows(ctx, table, resolved, func(values []any) error {
		tally.Observe(values)
		return nil
	})
	if err != nil {
		return domain.CheckResult{}, classify("scanning rows", err)
	}
	return tally.Result(), nil
}
