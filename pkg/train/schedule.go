package train

import "math"

// DecaySchedule is an exponential learning-rate decay: the rate is multiplied
// by DecayRate every DecaySteps*1000 steps, applied continuously per step.
type DecaySchedule struct {
	LearningRate float64
	DecaySteps   int // in thousands of steps (lrate_decay)
	DecayRate    float64
}

// DefaultDecaySchedule returns the usual 5e-4 rate decaying tenfold over 250k steps
func DefaultDecaySchedule() DecaySchedule {
	return DecaySchedule{LearningRate: 5e-4, DecaySteps: 250, DecayRate: 0.1}
}

// At returns the learning rate for a global step. A non-positive DecaySteps disables decay.
func (s DecaySchedule) At(step int) float64 {
	if s.DecaySteps <= 0 {
		return s.LearningRate
	}
	return s.LearningRate * math.Pow(s.DecayRate, float64(step)/float64(s.DecaySteps*1000))
}
