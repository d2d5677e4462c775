package testsupport

import (
	"testing"
	"time"
)

// Eventually polls cond every 10ms for up to five seconds and fails the test
// if it never returns true.
func Eventually(t testing.TB, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
