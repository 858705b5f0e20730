package flags

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jsamuelsen/quotebook/internal/ports"
)

func TestStatic_IsEnabled(t *testing.T) {
	values := map[string]bool{ports.FlagImportDeduplicate: true}
	f := NewStatic(values)
	ctx := context.Background()

	values[ports.FlagImportDeduplicate] = false

	assert.True(t, f.IsEnabled(ctx, ports.FlagImportDeduplicate, false), "copy taken at construction")
	assert.True(t, f.IsEnabled(ctx, "missing", true))
	assert.False(t, f.IsEnabled(ctx, "missing", false))
	assert.False(t, NewStatic(nil).IsEnabled(ctx, ports.FlagImportDeduplicate, false))
}
