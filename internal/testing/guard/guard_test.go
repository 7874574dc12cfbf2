package guard

import (
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitEnablesTestMode(t *testing.T) {
	on, err := strconv.ParseBool(os.Getenv(Env))
	require.NoError(t, err)
	require.True(t, on)
}
