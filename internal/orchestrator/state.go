package orchestrator

import (
	"errors"
	"strconv"

	"github.com/i474232898/forecast-enhancer/internal/weather"
)

// Phase is the main state of a resolution cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseReady
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed"
	default:
		return "Phase(" + strconv.Itoa(int(p)) + ")"
	}
}

// ErrorInfo is a captured client error together with the structured payload
// extracted from it. Payload holds the raw error when nothing better exists.
type ErrorInfo struct {
	Err     error
	Payload any
}

// payloader is implemented by errors that carry a response body, such as
// weather.APIError.
type payloader interface {
	Payload() (any, error)
}

func newErrorInfo(err error) *ErrorInfo {
	info := &ErrorInfo{Err: err, Payload: err}
	var p payloader
	if errors.As(err, &p) {
		if v, perr := p.Payload(); perr == nil {
			info.Payload = v
		}
	}
	return info
}

// State is the observable snapshot of an orchestrator. GeoLoading is
// independent of Phase. Results is only set while Phase is ready.
type State struct {
	Phase      Phase
	GeoLoading bool
	Error      *ErrorInfo
	Results    *weather.ResultSet
}

// Loading reports whether the loading branch should be rendered.
func (s State) Loading() bool {
	return s.Phase == PhaseLoading || s.GeoLoading
}
