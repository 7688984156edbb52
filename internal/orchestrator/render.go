package orchestrator

import "github.com/i474232898/forecast-enhancer/internal/weather"

// View holds the render branches. A nil branch renders nothing.
type View[C Forecaster, T any] struct {
	Loading func() T
	Error   func(info ErrorInfo) T
	Ready   func(results *weather.ResultSet, client C) T
}

// Render projects the current state onto exactly one branch of v, in the
// order error, loading, ready. It reports false when nothing was rendered.
func Render[C Forecaster, T any](o *Orchestrator[C], v View[C, T]) (T, bool) {
	return RenderState(o.Snapshot(), o.Client(), v)
}

// RenderState is Render for an already captured snapshot.
func RenderState[C Forecaster, T any](s State, client C, v View[C, T]) (T, bool) {
	var zero T
	switch {
	case s.Error != nil:
		if v.Error == nil {
			return zero, false
		}
		return v.Error(*s.Error), true
	case s.Loading():
		if v.Loading == nil {
			return zero, false
		}
		return v.Loading(), true
	case s.Phase == PhaseReady:
		if v.Ready == nil {
			return zero, false
		}
		return v.Ready(s.Results, client), true
	default:
		return zero, false
	}
}
