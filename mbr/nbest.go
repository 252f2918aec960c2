package mbr

import "math"

// NBest selects the hypothesis minimizing expected Levenshtein risk
// against the posterior distribution hyps: argmin_i sum_j p_j *
// Lev(h_i, h_j). Two fast rejects are tried before falling back to
// the full pairwise computation, and the pairwise computation itself
// short-circuits against a running lower bound on the best risk seen
// so far.
func NBest(hyps []Hypothesis) Hypothesis {
	mapIdx := 0
	mapP := prob(hyps[0].Posterior)
	for i, h := range hyps[1:] {
		if p := prob(h.Posterior); p > mapP {
			mapIdx, mapP = i+1, p
		}
	}

	if mapP >= 0.5 {
		return hyps[mapIdx]
	}

	var distOneSum, distOneMax float64
	for i, h := range hyps {
		if i == mapIdx {
			continue
		}
		if levenshtein(hyps[mapIdx].Words, h.Words) == 1 {
			p := prob(h.Posterior)
			distOneSum += p
			if p > distOneMax {
				distOneMax = p
			}
		}
	}
	if distOneSum+2*mapP >= 1+distOneMax {
		return hyps[mapIdx]
	}

	best := mapIdx
	bestRisk := math.MaxFloat64
	for i := range hyps {
		risk := 0.0
		bounded := false
		for j := range hyps {
			if i == j {
				continue
			}
			risk += prob(hyps[j].Posterior) * float64(levenshtein(hyps[i].Words, hyps[j].Words))
			if risk >= bestRisk {
				bounded = true
				break
			}
		}
		if bounded {
			continue
		}
		if risk < bestRisk {
			best, bestRisk = i, risk
		}
	}
	return hyps[best]
}
