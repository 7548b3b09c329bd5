package examtaker

import "time"

// SessionState is the authoritative in-memory state an exam session
// starts from after reconciliation.
type SessionState struct {
	Answers         map[string]string
	CurrentQuestion int
	TimeRemaining   int
	Deadline        time.Time
}

// Reconcile resolves the initial session state from the possible answer
// sources, in precedence order:
//
//  1. A local snapshot, when present — covers a reload on the same machine.
//  2. The server's resume record, when it holds answers — covers a new
//     machine or a wiped cache; remaining time is what the server derived
//     from recorded time spent.
//  3. Fresh start with the full duration.
//
// Remaining time is clamped to [0, duration*60] in every branch; a
// corrupt or negative stored value resets to the full duration rather
// than failing.
func Reconcile(local *Snapshot, server *ServerState, durationMinutes int, now time.Time) SessionState {
	full := durationMinutes * 60

	if local != nil {
		remaining := local.TimeRemaining
		if remaining < 0 || remaining > full {
			remaining = full
		}
		answers := local.Answers
		if answers == nil {
			answers = map[string]string{}
		}
		return SessionState{
			Answers:         answers,
			CurrentQuestion: local.CurrentQuestion,
			TimeRemaining:   remaining,
			Deadline:        deadlineFor(local.Deadline, remaining, now),
		}
	}

	if server != nil && len(server.Answers) > 0 {
		remaining := server.TimeRemaining
		if remaining < 0 || remaining > full {
			remaining = full
		}
		return SessionState{
			Answers:       server.Answers,
			TimeRemaining: remaining,
			Deadline:      now.Add(time.Duration(remaining) * time.Second),
		}
	}

	return SessionState{
		Answers:       map[string]string{},
		TimeRemaining: full,
		Deadline:      now.Add(time.Duration(full) * time.Second),
	}
}

// deadlineFor keeps a persisted deadline when it is consistent with the
// clamped remaining time, so a reload cannot stretch the clock. A zero or
// implausible stored deadline is recomputed from remaining time.
func deadlineFor(stored time.Time, remaining int, now time.Time) time.Time {
	recomputed := now.Add(time.Duration(remaining) * time.Second)
	if stored.IsZero() || stored.After(recomputed) {
		return recomputed
	}
	return stored
}
