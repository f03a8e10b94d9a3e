package kafka

import (
	"context"
	"errors"
	"strings"
)

// ErrorClass groups broker errors by what a retry can do about them.
type ErrorClass int

const (
	// ClassUnknown errors are not retried.
	ClassUnknown ErrorClass = iota
	// ClassConnection errors mean the broker could not be reached.
	ClassConnection
	// ClassTransient errors clear up on their own.
	ClassTransient
	// ClassPermanent errors fail again no matter how often they are sent.
	ClassPermanent
)

// Matched in order; the first class with a matching fragment wins.
var errorFragments = []struct {
	class     ErrorClass
	fragments []string
}{
	{ClassPermanent, []string{
		"message too large", "invalid topic", "invalid partition", "unknown topic", "authorization failed",
	}},
	{ClassConnection, []string{
		"connection refused", "connection reset", "connection closed", "broken pipe", "i/o timeout",
		"no route to host", "network is unreachable", "network exception", "dial tcp",
		"broker not available", "leader not available",
	}},
	{ClassTransient, []string{
		"temporary", "request timed out", "not enough replicas", "offset out of range",
	}},
}

// Classify inspects a writer error. kafka-go reports most broker
// conditions only through the message text.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassUnknown
	}
	msg := strings.ToLower(err.Error())
	for _, group := range errorFragments {
		for _, f := range group.fragments {
			if strings.Contains(msg, f) {
				return group.class
			}
		}
	}
	return ClassUnknown
}

// IsRetryableError reports whether writing again may succeed. Cancellation
// and deadlines never are.
func IsRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch Classify(err) {
	case ClassConnection, ClassTransient:
		return true
	}
	return false
}
