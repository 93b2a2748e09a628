// Package lambdautil provides the cold-start/remaining-time helpers
// pkg/txcontext consults when running inside AWS Lambda, generalizing the
// teacher's lambda.go (IsLambdaEnvironment, GetLambdaMemoryMB,
// GetRemainingTimeMillis) to firedoc's retry backoff cap instead of a
// connection-reuse optimization.
package lambdautil

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
)

// IsLambdaEnvironment reports whether the process is running as a Lambda
// function, using the runtime identity aws-lambda-go parses from the
// environment at package init rather than re-reading env vars by hand.
func IsLambdaEnvironment() bool {
	return lambdacontext.FunctionName != ""
}

// MemoryLimitMB returns the function's configured memory, or 0 outside
// Lambda.
func MemoryLimitMB() int {
	return lambdacontext.MemoryLimitInMB
}

// RemainingTime returns the time left before ctx's deadline, and false if
// ctx carries no deadline (e.g. outside Lambda, or a handler that didn't
// forward the invocation context).
func RemainingTime(ctx context.Context) (time.Duration, bool) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0, false
	}
	return time.Until(deadline), true
}

// CapBackoff shortens a candidate retry backoff so it never eats into the
// last second of a Lambda invocation's remaining time — a commit that
// would otherwise retry into a hard timeout gets back a real, if
// shortened, attempt instead of none at all.
func CapBackoff(ctx context.Context, candidate time.Duration) time.Duration {
	remaining, ok := RemainingTime(ctx)
	if !ok {
		return candidate
	}
	safetyMargin := time.Second
	budget := remaining - safetyMargin
	if budget <= 0 {
		return 0
	}
	if candidate > budget {
		return budget
	}
	return candidate
}

// RequestID returns the Lambda request ID associated with ctx, if any —
// useful for correlating a TX_FAILED event with the invocation that saw it.
func RequestID(ctx context.Context) (string, bool) {
	lc, ok := lambdacontext.FromContext(ctx)
	if !ok {
		return "", false
	}
	return lc.AwsRequestID, true
}
