// ABOUTME: Tests for error classification and timestamp parsing.
// ABOUTME: Network-facing calls are covered by the engine tests via fakes.

package slack

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"

	"github.com/opsmith-io/wardroom/internal/platform"
)

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))

	tests := []struct {
		err  error
		kind platform.ErrorKind
	}{
		{errors.New("already_in_channel"), platform.KindBenign},
		{errors.New("not_in_channel"), platform.KindBenign},
		{errors.New("cant_invite_self"), platform.KindBenign},
		{errors.New("message_not_found"), platform.KindBenign},
		{errors.New("channel_not_found"), platform.KindNotFound},
		{errors.New("user_not_found"), platform.KindNotFound},
		{&slackapi.RateLimitedError{RetryAfter: time.Second}, platform.KindTransient},
		{&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, platform.KindTransient},
		{errors.New("invalid_auth"), platform.KindUnexpected},
	}
	for _, tt := range tests {
		got := classify(tt.err)
		assert.Equal(t, tt.kind, platform.Classify(got), "classify(%v)", tt.err)
	}
}

func TestClassify_PreservesCode(t *testing.T) {
	err := classify(errors.New("already_in_channel"))

	var pe *platform.Error
	assert.ErrorAs(t, err, &pe)
	assert.Equal(t, "already_in_channel", pe.Code)
}

func TestWithRetry_RetriesNetworkFailures(t *testing.T) {
	c := &Client{}
	attempts := 0

	err := c.withRetry(context.Background(), func() error {
		attempts++
		if attempts == 1 {
			return &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestWithRetry_UnexpectedFailsImmediately(t *testing.T) {
	c := &Client{}
	attempts := 0

	err := c.withRetry(context.Background(), func() error {
		attempts++
		return errors.New("invalid_auth")
	})

	assert.Equal(t, 1, attempts)
	assert.Equal(t, platform.KindUnexpected, platform.Classify(err))
}

func TestParseSlackTimestamp(t *testing.T) {
	got := parseSlackTimestamp("1651500000.000200")
	assert.Equal(t, time.Unix(1651500000, 0), got)

	assert.True(t, parseSlackTimestamp("garbage").IsZero())
}
