package session

import (
	"testing"

	"go.uber.org/goleak"
)

// The registry serializes concurrent appends with per-session locks; leaked
// goroutines here would point at a lock ordering bug.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
