package motor

import "sync"

// Command is one SetDuty call.
type Command struct {
	Motor Motor
	Duty  int32
}

// Recorder is an Output that remembers what it was told.
// It keeps at most limit commands, dropping the oldest; limit <= 0 keeps everything.
type Recorder struct {
	mu       sync.Mutex
	limit    int
	commands []Command
	last     [2]int32
}

var _ Output = (*Recorder)(nil)

// NewRecorder creates a Recorder keeping at most limit commands.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

func (r *Recorder) SetDuty(m Motor, duty int32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m == Left || m == Right {
		r.last[m] = duty
	}
	r.commands = append(r.commands, Command{Motor: m, Duty: duty})
	if r.limit > 0 && len(r.commands) > r.limit {
		r.commands = r.commands[len(r.commands)-r.limit:]
	}
}

// Last returns the last duty commanded for each motor.
func (r *Recorder) Last() (left, right int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last[Left], r.last[Right]
}

// Commands returns a copy of the recorded commands, oldest first.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// Reset forgets all recorded commands.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = nil
	r.last = [2]int32{}
}
