package pipeerr

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_KeepsCause(t *testing.T) {
	err := Wrap(KindPipeline, os.ErrNotExist, "file %s was not found", "x.csv")
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, "pipeline error: file x.csv was not found: file does not exist", err.Error())
}

func TestIs_ThroughFmtWrapping(t *testing.T) {
	inner := New(KindDatabase, "table %q missing", "stocks")
	outer := fmt.Errorf("store run: %w", inner)

	assert.True(t, Is(outer, KindDatabase))
	assert.False(t, Is(outer, KindPipeline))

	k, ok := KindOf(outer)
	assert.True(t, ok)
	assert.Equal(t, KindDatabase, k)
}

func TestKindOf_PlainError(t *testing.T) {
	_, ok := KindOf(errors.New("boom"))
	assert.False(t, ok)
	assert.False(t, Is(nil, KindPipeline))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "api data", KindAPIData.String())
	assert.Equal(t, "credentials", KindCredentials.String())
	assert.Equal(t, "kind(42)", Kind(42).String())
}
