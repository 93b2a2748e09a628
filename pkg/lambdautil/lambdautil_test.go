package lambdautil_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/theory-cloud/firedoc/pkg/lambdautil"
)

func TestCapBackoff_NoDeadlineReturnsCandidateUnchanged(t *testing.T) {
	got := lambdautil.CapBackoff(context.Background(), 5*time.Second)
	assert.Equal(t, 5*time.Second, got)
}

func TestCapBackoff_ShortensToRemainingBudget(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()

	got := lambdautil.CapBackoff(ctx, 5*time.Second)
	assert.Less(t, got, 5*time.Second)
	assert.Greater(t, got, time.Duration(0))
}

func TestCapBackoff_ZeroWhenBudgetExhausted(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	got := lambdautil.CapBackoff(ctx, 5*time.Second)
	assert.Equal(t, time.Duration(0), got)
}

func TestCapBackoff_CandidateUnderBudgetUnchanged(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	got := lambdautil.CapBackoff(ctx, 50*time.Millisecond)
	assert.Equal(t, 50*time.Millisecond, got)
}

func TestRemainingTime_NoDeadline(t *testing.T) {
	_, ok := lambdautil.RemainingTime(context.Background())
	assert.False(t, ok)
}

func TestIsLambdaEnvironment_FalseOutsideLambda(t *testing.T) {
	assert.False(t, lambdautil.IsLambdaEnvironment())
}
