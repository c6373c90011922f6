package scoring

import (
	"math"
	"sort"

	"FeedRanker/internal/domain"
)

const (
	// SmoothingFactor is the weight of freshly computed roles against the prior profile.
	SmoothingFactor = 0.7
	// MinRoleWeight prunes roles that carry too little signal to matter.
	MinRoleWeight = 0.05
)

// AggregateRoles weighs each signal by its event type and the role's own weight,
// then normalizes, prunes and renormalizes the distribution.
func AggregateRoles(signals []domain.EngagementSignal) []domain.RoleWeight {
	totals := map[domain.Role]float64{}
	for _, s := range signals {
		typeWeight := s.Type.SignalWeight()
		if typeWeight == 0 {
			continue
		}
		for _, rw := range s.Roles {
			if rw.Role == "" {
				continue
			}
			if w := clamp01(rw.Weight); w > 0 {
				totals[rw.Role] += typeWeight * w
			}
		}
	}
	return normalize(totals)
}

// Smooth blends computed roles into previous ones with an exponential moving average.
// Roles missing from computed only decay. The result is pruned and renormalized.
func Smooth(previous, computed []domain.RoleWeight) []domain.RoleWeight {
	if len(computed) == 0 {
		return normalize(toMap(previous))
	}

	prev := toMap(previous)
	merged := make(map[domain.Role]float64, len(prev)+len(computed))
	for _, rw := range computed {
		merged[rw.Role] = SmoothingFactor*clamp01(rw.Weight) + (1-SmoothingFactor)*prev[rw.Role]
	}
	for role, w := range prev {
		if _, ok := merged[role]; ok {
			continue
		}
		merged[role] = w * (1 - SmoothingFactor)
	}

	out := normalize(merged)
	if len(out) == 0 {
		// every role fell under the floor; the fresh signal wins outright
		return normalize(toMap(computed))
	}
	return out
}

// EstimateSkillLevel averages article skill levels weighted by event type.
func EstimateSkillLevel(signals []domain.EngagementSignal) domain.SkillLevel {
	var sum, weight float64
	for _, s := range signals {
		rank := s.SkillLevel.Rank()
		w := s.Type.SignalWeight()
		if rank == 0 || w == 0 {
			continue
		}
		sum += float64(rank) * w
		weight += w
	}
	if weight == 0 {
		return domain.SkillIntermediate
	}

	avg := sum / weight
	switch {
	case avg <= 1.5:
		return domain.SkillBeginner
	case avg >= 2.5:
		return domain.SkillAdvanced
	default:
		return domain.SkillIntermediate
	}
}

// RolesTouched counts distinct roles across two profiles.
func RolesTouched(before, after []domain.RoleWeight) int {
	seen := map[domain.Role]struct{}{}
	for _, rw := range before {
		seen[rw.Role] = struct{}{}
	}
	for _, rw := range after {
		seen[rw.Role] = struct{}{}
	}
	return len(seen)
}

func toMap(roles []domain.RoleWeight) map[domain.Role]float64 {
	out := make(map[domain.Role]float64, len(roles))
	for _, rw := range roles {
		if rw.Role == "" {
			continue
		}
		out[rw.Role] += clamp01(rw.Weight)
	}
	return out
}

// normalize scales to sum 1, drops roles under MinRoleWeight, scales again and sorts.
func normalize(weights map[domain.Role]float64) []domain.RoleWeight {
	total := 0.0
	for _, w := range weights {
		if w > 0 && !math.IsInf(w, 0) {
			total += w
		}
	}
	if total <= 0 {
		return nil
	}

	kept := make([]domain.RoleWeight, 0, len(weights))
	keptTotal := 0.0
	for role, w := range weights {
		if !(w > 0) || math.IsInf(w, 0) {
			continue
		}
		share := w / total
		if share < MinRoleWeight {
			continue
		}
		kept = append(kept, domain.RoleWeight{Role: role, Weight: share})
		keptTotal += share
	}
	if len(kept) == 0 {
		return nil
	}

	for i := range kept {
		kept[i].Weight /= keptTotal
	}
	sortRoles(kept)
	return kept
}

func sortRoles(roles []domain.RoleWeight) {
	sort.Slice(roles, func(i, j int) bool {
		if roles[i].Weight != roles[j].Weight {
			return roles[i].Weight > roles[j].Weight
		}
		return roles[i].Role < roles[j].Role
	})
}
