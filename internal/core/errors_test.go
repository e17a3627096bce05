package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Classification(t *testing.T) {
	cause := errors.New("550 file unavailable")
	err := NewError(KindTransientIO, "open", "/tdi/dev1.json", cause)

	assert.True(t, IsKind(err, KindTransientIO))
	assert.False(t, IsKind(err, KindParse))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "transient_io: open /tdi/dev1.json: 550 file unavailable", err.Error())

	wrapped := fmt.Errorf("handling dev1.json: %w", err)
	assert.Equal(t, KindTransientIO, KindOf(wrapped))
	assert.False(t, IsKind(nil, KindTransientIO))
}

func TestEscalate(t *testing.T) {
	transient := NewError(KindTransientIO, "open", "/tdi/dev4.json", errors.New("timeout"))
	permanent := Escalate(transient, "/tdi/dev4.json")
	assert.True(t, IsKind(permanent, KindPermanentIO))
	assert.ErrorIs(t, permanent, transient)

	parseErr := NewError(KindParse, "decode", "/tdi/bad.json", errors.New("unexpected EOF"))
	assert.Same(t, parseErr, Escalate(parseErr, "/tdi/bad.json"))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "processed", OutcomeProcessed.String())
	assert.Equal(t, "stuck_pending", OutcomeStuckPending.String())
	assert.True(t, OutcomeRejected.Archived())
	assert.False(t, OutcomeStuckPending.Archived())
	assert.False(t, OutcomeFailed.Archived())

	c := CycleResult{Files: []FileResult{{Outcome: OutcomeProcessed}, {Outcome: OutcomeProcessed}, {Outcome: OutcomeSkipped}}}
	assert.Equal(t, 2, c.Count(OutcomeProcessed))
	assert.Equal(t, 1, c.Count(OutcomeSkipped))
}
