package usage

// Tracker accumulates normalized turns for a single run.
// Totals are sums of per-turn deltas, never a provider's own cumulative figure.
type Tracker struct {
	accounting Accounting
	carry      Carry
	totals     Totals
	turns      int
}

func NewTracker(accounting Accounting) *Tracker {
	return &Tracker{accounting: accounting}
}

func (t *Tracker) Observe(r Report) (Turn, error) {
	turn, carry, err := t.accounting.Normalize(r, t.carry)
	if err != nil {
		return Turn{}, err
	}
	t.carry = carry
	t.totals.Input += turn.Input
	t.totals.Output += turn.Output
	t.turns++
	return turn, nil
}

func (t *Tracker) Totals() Totals {
	return t.totals
}

func (t *Tracker) Turns() int {
	return t.turns
}
