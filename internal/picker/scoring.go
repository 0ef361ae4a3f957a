package picker

import (
	"math"
	"time"

	"github.com/gokatarajesh/quiz-delivery/internal/content"
)

const (
	usageWeight     = 0.55
	freshnessWeight = 0.4
	freshnessDays   = 14.0
	neverServedDays = 999.0
)

// Score ranks a candidate: rarely used and long unserved questions score higher.
// penalty is added as-is when hot is true.
func Score(q content.Question, now time.Time, hot bool, penalty float64) float64 {
	s := usageWeight*(1/(1+float64(max(q.UsageCount, 0)))) + freshnessWeight*freshness(q.LastServedAt, now)
	if hot {
		s += penalty
	}
	return s
}

func freshness(lastServed *time.Time, now time.Time) float64 {
	days := neverServedDays
	if lastServed != nil {
		days = now.Sub(*lastServed).Hours() / 24
		if days < 0 {
			days = 0
		}
	}
	return 1 - math.Exp(-days/freshnessDays)
}

type scored struct {
	question content.Question
	score    float64
}

// partition splits score-ordered candidates into one-per-bucket picks (up to count)
// and everything else. Questions without a bucket never collide.
func partition(ordered []scored, count int) (primary, fallback []content.Question) {
	seen := make(map[string]struct{}, len(ordered))
	for _, c := range ordered {
		b := c.question.LSHBucket
		if len(primary) < count {
			if b == "" {
				primary = append(primary, c.question)
				continue
			}
			if _, dup := seen[b]; !dup {
				seen[b] = struct{}{}
				primary = append(primary, c.question)
				continue
			}
		}
		fallback = append(fallback, c.question)
	}
	return primary, fallback
}
