package usage

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCumulativeInputDeltas(t *testing.T) {
	tracker := NewTracker(Cumulative)

	var inputs []int
	for _, r := range []Report{
		{PromptTokens: 50, CompletionTokens: 30},
		{PromptTokens: 130, CompletionTokens: 30},
		{PromptTokens: 210, CompletionTokens: 25},
	} {
		turn, err := tracker.Observe(r)
		require.NoError(t, err)
		inputs = append(inputs, turn.Input)
	}

	assert.Equal(t, []int{50, 80, 80}, inputs)
	assert.Equal(t, Totals{Input: 210, Output: 85}, tracker.Totals())
	assert.Equal(t, 295, tracker.Totals().Grand())
	assert.Equal(t, 3, tracker.Turns())
}

func TestDeltaWithTrimmingAcceptsNegativeInput(t *testing.T) {
	tracker := NewTracker(DeltaWithTrimming)

	first, err := tracker.Observe(Report{PromptTokens: 50, CompletionTokens: 20})
	require.NoError(t, err)
	assert.Equal(t, Turn{Input: 50, Output: 20}, first)

	second, err := tracker.Observe(Report{PromptTokens: 40, CompletionTokens: 15})
	require.NoError(t, err)
	assert.Equal(t, Turn{Input: -10, Output: 15}, second)

	assert.Equal(t, Totals{Input: 40, Output: 35}, tracker.Totals())
}

func TestNormalizeCarry(t *testing.T) {
	cases := []struct {
		name       string
		accounting Accounting
		report     Report
		carry      Carry
		turn       Turn
		next       Carry
	}{
		{
			name:       "cumulative ignores last completion",
			accounting: Cumulative,
			report:     Report{PromptTokens: 100, CompletionTokens: 7},
			carry:      Carry{LastPrompt: 60, LastCompletion: 30},
			turn:       Turn{Input: 40, Output: 7},
			next:       Carry{LastPrompt: 100},
		},
		{
			name:       "delta subtracts echoed reply",
			accounting: DeltaWithTrimming,
			report:     Report{PromptTokens: 100, CompletionTokens: 7},
			carry:      Carry{LastPrompt: 60, LastCompletion: 30},
			turn:       Turn{Input: 10, Output: 7},
			next:       Carry{LastPrompt: 100, LastCompletion: 7},
		},
		{
			name:       "first turn starts from zero",
			accounting: DeltaWithTrimming,
			report:     Report{PromptTokens: 12, CompletionTokens: 3},
			turn:       Turn{Input: 12, Output: 3},
			next:       Carry{LastPrompt: 12, LastCompletion: 3},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			turn, next, err := tc.accounting.Normalize(tc.report, tc.carry)
			require.NoError(t, err)
			assert.Equal(t, tc.turn, turn)
			assert.Equal(t, tc.next, next)
		})
	}
}

func TestUnknownAccounting(t *testing.T) {
	tracker := NewTracker(Accounting("bogus"))
	_, err := tracker.Observe(Report{PromptTokens: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownAccounting))
	assert.Equal(t, Totals{}, tracker.Totals())
}

func TestAccountingValidate(t *testing.T) {
	require.NoError(t, Cumulative.Validate())
	require.NoError(t, DeltaWithTrimming.Validate())
	err := Accounting("").Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownAccounting))
}
