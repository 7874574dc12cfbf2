// Package guard is imported for its side effect by command tests. It marks
// the process as running under test unless the caller already chose a mode,
// so entrypoints return before dialing Postgres or Redis.
package guard

import "os"

// Env is the variable app.InTestMode reads.
const Env = "OPTICLINIC_TEST_MODE"

func init() {
	if _, set := os.LookupEnv(Env); !set {
		_ = os.Setenv(Env, "true")
	}
}
