package evaluation

// ScorePool collects match scores split by ground truth
type ScorePool struct {
	Genuine  []float64
	Impostor []float64
}

// Add records one score
func (p *ScorePool) Add(score float64, genuine bool) {
	if genuine {
		p.Genuine = append(p.Genuine, score)
	} else {
		p.Impostor = append(p.Impostor, score)
	}
}

// TPR evaluates the pool at FPR 1:divider
func (p *ScorePool) TPR(divider int) (TPRResult, error) {
	return CalculateTPR(divider, p.Impostor, p.Genuine)
}
