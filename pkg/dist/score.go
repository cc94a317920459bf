package dist

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// LogScoreScalar scores estimate against an observed value as the negative
// log density at the answer. With a prior, the prior's score is subtracted.
func LogScoreScalar(estimate Dist, answer float64, prior Dist, env Env) (float64, error) {
	score, err := scalarScore(estimate, answer, env)
	if err != nil || prior == nil {
		return score, err
	}
	priorScore, err := scalarScore(prior, answer, env)
	if err != nil {
		return 0, err
	}
	return score - priorScore, nil
}

func scalarScore(estimate Dist, answer float64, env Env) (float64, error) {
	pdf, err := estimate.Pdf(answer, env)
	if err != nil {
		return 0, err
	}
	if pdf <= 0 {
		return 0, &Error{Kind: OperationFailed, Op: &OperationError{Kind: Infinity}}
	}
	return -math.Log(pdf), nil
}

// LogScoreDist scores estimate against an answer distribution with the
// Kullback-Leibler divergence KL(answer || estimate).
func LogScoreDist(estimate, answer, prior Dist, env Env) (float64, error) {
	score, err := klDivergence(answer, estimate, env)
	if err != nil || prior == nil {
		return score, err
	}
	priorScore, err := klDivergence(answer, prior, env)
	if err != nil {
		return 0, err
	}
	return score - priorScore, nil
}

// klDivergence discretizes both densities on a grid over the support of p.
func klDivergence(p, q Dist, env Env) (float64, error) {
	lo, hi := p.Min(), p.Max()
	if !(hi > lo) {
		return 0, argumentError("Answer distribution must have a continuous support")
	}
	n := max(env.XYPointLength, 2)
	xs := floats.Span(make([]float64, n), lo, hi)
	dx := (hi - lo) / float64(n-1)
	ps := make([]float64, n)
	qs := make([]float64, n)
	for i, x := range xs {
		pv, err := p.Pdf(x, env)
		if err != nil {
			return 0, err
		}
		qv, err := q.Pdf(x, env)
		if err != nil {
			return 0, err
		}
		ps[i], qs[i] = pv*dx, qv*dx
	}
	kl := stat.KullbackLeibler(ps, qs)
	if math.IsInf(kl, 1) || math.IsNaN(kl) {
		return 0, &Error{Kind: OperationFailed, Op: &OperationError{Kind: Infinity}}
	}
	return kl, nil
}
