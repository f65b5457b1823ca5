package scheduler

import "fmt"

// State is one of Idle, Capturing or Replaying.
type State interface {
	fmt.Stringer
	isState()
}

// Idle means no session is running; live ticks refresh the preview.
type Idle struct{}

// Capturing is a recording session.
type Capturing struct {
	Target    int // frames requested
	Ticks     int // capture ticks handled so far
	Remaining int // countdown ticks left
}

// Replaying is a single pass over the recorded frames.
type Replaying struct {
	Index int
	Total int
}

func (Idle) isState()      {}
func (Capturing) isState() {}
func (Replaying) isState() {}

func (Idle) String() string { return "idle" }

func (c Capturing) String() string {
	return fmt.Sprintf("capturing %d/%d", c.Ticks, c.Target)
}

func (r Replaying) String() string {
	return fmt.Sprintf("replaying %d/%d", r.Index, r.Total)
}
