// Package alert applies threshold rules to bucket snapshots and manages the
// alert lifecycle. Evaluation is edge-triggered: an alert is raised on the
// transition into violation and resolved on the transition out, so a
// persistent condition never floods consumers with repeats.
package alert

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"schooltrack/internal/core/aggregate"
	"schooltrack/internal/core/model"
	"schooltrack/internal/core/repository"
)

type Evaluator struct {
	repo repository.AlertRepository

	mu     sync.Mutex
	active map[string]*model.Alert // (kind, periodKey, metricPath) -> open alert
}

func NewEvaluator(repo repository.AlertRepository) *Evaluator {
	return &Evaluator{
		repo:   repo,
		active: make(map[string]*model.Alert),
	}
}

// Evaluate checks every rule for the bucket's kind and returns only the
// alerts newly raised by this call. Rules whose metric path is not
// addressable are skipped; a still-violating condition emits nothing; a
// recovered condition resolves its open alert.
func (e *Evaluator) Evaluate(bucket model.MetricBucket, rules []model.ThresholdRule) []model.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	var raised []model.Alert
	for _, rule := range rules {
		if rule.Kind != bucket.Kind {
			continue
		}
		value, ok := aggregate.Resolve(bucket, rule.MetricPath)
		if !ok {
			continue
		}

		key := stateKey(rule, bucket.PeriodKey)
		open := e.active[key]
		violating := compare(value, rule.Comparator, rule.Threshold)

		switch {
		case violating && open == nil:
			a := model.NewAlert(rule, bucket.PeriodKey, value)
			e.active[key] = a
			if err := e.repo.Create(a); err != nil {
				log.Printf("alert persist failed for %s: %v", key, err)
			}
			raised = append(raised, *a)
		case !violating && open != nil:
			now := time.Now().UTC()
			open.Resolved = true
			open.ResolvedAt = &now
			if err := e.repo.Update(open); err != nil {
				log.Printf("alert resolve persist failed for %s: %v", key, err)
			}
			delete(e.active, key)
		}
	}
	return raised
}

// Active returns the open alerts, most recent first.
func (e *Evaluator) Active() []*model.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*model.Alert, 0, len(e.active))
	for _, a := range e.active {
		copied := *a
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TriggeredAt.After(out[j].TriggeredAt)
	})
	return out
}

func stateKey(rule model.ThresholdRule, periodKey string) string {
	return fmt.Sprintf("%s|%s|%s", rule.Kind, periodKey, rule.MetricPath)
}

func compare(value float64, cmp model.Comparator, threshold float64) bool {
	switch cmp {
	case model.CompareGT:
		return value > threshold
	case model.CompareGTE:
		return value >= threshold
	case model.CompareLT:
		return value < threshold
	case model.CompareLTE:
		return value <= threshold
	}
	return false
}
