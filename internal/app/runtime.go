package app

import (
	"os"
	"strconv"
	"sync"
)

const testModeEnv = "OPTICLINIC_TEST_MODE"

// InTestMode reports whether entrypoints should return before opening
// Postgres or Redis. OPTICLINIC_TEST_MODE is read once per process and
// accepts any strconv.ParseBool true value.
var InTestMode = sync.OnceValue(func() bool {
	on, err := strconv.ParseBool(os.Getenv(testModeEnv))
	return err == nil && on
})
