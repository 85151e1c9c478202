package selection

import (
	"fmt"
	"strings"
	"time"

	"github.com/preston-bernstein/matchday-service/internal/timeutil"
)

// Phase is the controller's position in its state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseReady
	PhaseError
)

var phaseNames = map[Phase]string{
	PhaseIdle:    "idle",
	PhaseLoading: "loading",
	PhaseReady:   "ready",
	PhaseError:   "error",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	for phase, name := range phaseNames {
		if name == v {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", string(text))
}

// State is one observable snapshot of the controller.
//
// Date is the date being loaded, shown or failed; it is zero while idle.
// Index is Date's position in the window, or -1.
type State struct {
	Session   string           `json:"session"`
	Seq       uint64           `json:"seq"`
	Phase     Phase            `json:"phase"`
	Date      timeutil.DateKey `json:"date"`
	Index     int              `json:"index"`
	Reason    string           `json:"reason,omitempty"`
	UpdatedAt time.Time        `json:"updatedAt"`
}
