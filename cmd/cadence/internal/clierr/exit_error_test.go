package clierr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCodeOf(t *testing.T) {
	cause := errors.New("bad row")

	assert.Equal(t, ExitOK, ExitCodeOf(nil))
	assert.Equal(t, ExitRuntime, ExitCodeOf(cause))
	assert.Equal(t, ExitUsage, ExitCodeOf(New(ExitUsage, "missing --input")))
	assert.Equal(t, ExitRuntime, ExitCodeOf(New(0, "never zero")))

	wrapped := fmt.Errorf("analyze: %w", Wrapf(ExitMalformed, cause, "reading %s", "tasks.csv"))
	assert.Equal(t, ExitMalformed, ExitCodeOf(wrapped))
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "analyze: reading tasks.csv: bad row", wrapped.Error())
}
