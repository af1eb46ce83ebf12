package stream

import "fmt"

// Mode selects where streamed samples come from. The set of modes is closed;
// the only implementations are RealMode and RandomMode.
type Mode interface {
	Name() string
	isMode()
}

// RealMode replays recorded example segments from the example store.
type RealMode struct{}

// RandomMode synthesises noise and fault-like signals.
type RandomMode struct{}

func (RealMode) Name() string   { return "real" }
func (RandomMode) Name() string { return "random" }

func (RealMode) isMode()   {}
func (RandomMode) isMode() {}

// ParseMode maps a query value to a Mode. An empty value selects RealMode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "real":
		return RealMode{}, nil
	case "random":
		return RandomMode{}, nil
	default:
		return nil, fmt.Errorf("unknown stream mode %q", s)
	}
}
