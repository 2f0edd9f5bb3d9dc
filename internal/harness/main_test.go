package harness

import (
	"testing"

	"go.uber.org/goleak"
)

// The harness drives the engine on the test goroutine only; anything left
// running afterwards is a leak.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
