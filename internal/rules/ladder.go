package rules

import "github.com/solatis/alertkeeper/internal/types"

// rung is one escalation step. reached is nil for the base rung.
type rung struct {
	key     string
	level   types.Level
	reached func(types.Record) bool
}

// ladder is an escalation sequence, lowest rung first.
type ladder []rung

// climb returns the index of the highest rung reached by rec.
// Rung 0 is always reached; rung i requires every rung below it.
func (l ladder) climb(rec types.Record) int {
	top := 0
	for i := 1; i < len(l); i++ {
		if l[i].reached == nil || !l[i].reached(rec) {
			break
		}
		top = i
	}
	return top
}
