package sigspec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovelang/grove/internal/match"
)

func TestCompileString_FullSignature(t *testing.T) {
	sigs, errs := CompileString(`
signatures: {
	store: {
		params: {
			src: "given{src}"
			dst: "leased{self}"
		}
		return: "shared{self}"
	}
	tick: {}
}
`)
	require.Empty(t, errs)
	require.Len(t, sigs, 2)

	store := sigs[0]
	assert.Equal(t, "store", store.Name)
	require.Len(t, store.Params, 2)
	assert.Equal(t, "src", store.Params[0].Name)
	assert.Equal(t, match.Pattern{Family: match.FamilyGiven, Paths: []string{"src"}}, store.Params[0].Pattern)
	assert.Equal(t, "dst", store.Params[1].Name)
	assert.Equal(t, match.FamilyLeased, store.Params[1].Pattern.Family)
	require.NotNil(t, store.Return)
	assert.Equal(t, "shared{self}", store.Return.String())

	tick := sigs[1]
	assert.Equal(t, "tick", tick.Name)
	assert.Empty(t, tick.Params)
	assert.Nil(t, tick.Return)
}

func TestCompileString_MissingSignaturesStruct(t *testing.T) {
	_, errs := CompileString(`functions: {}`)
	require.Len(t, errs, 1)
	var ce *CompileError
	require.ErrorAs(t, errs[0], &ce)
	assert.Equal(t, "signatures", ce.Field)
}

func TestCompileString_AccumulatesPatternErrors(t *testing.T) {
	sigs, errs := CompileString(`
signatures: {
	bad: {
		params: {x: "owned{x}"}
	}
	worse: {
		return: "leased{1x}"
	}
	fine: {
		params: {c: "given{c}"}
	}
}
`)
	// Both malformed patterns are reported and the valid signature
	// still compiles.
	require.Len(t, errs, 2)
	var first, second *CompileError
	require.ErrorAs(t, errs[0], &first)
	require.ErrorAs(t, errs[1], &second)
	assert.Equal(t, "bad.params.x", first.Field)
	assert.Equal(t, "worse.return", second.Field)

	require.Len(t, sigs, 1)
	assert.Equal(t, "fine", sigs[0].Name)
}

func TestCompileString_CUESyntaxError(t *testing.T) {
	_, errs := CompileString(`signatures: {`)
	require.NotEmpty(t, errs)
}

func TestCompileFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sigs.cue")
	require.NoError(t, os.WriteFile(path, []byte(`
signatures: {
	borrow: {
		params: {x: "leased{o}"}
	}
}
`), 0o644))

	sigs, errs := CompileFile(path)
	require.Empty(t, errs)
	require.Len(t, sigs, 1)
	assert.Equal(t, "borrow", sigs[0].Name)
	assert.Equal(t, "leased{o}", sigs[0].Params[0].Pattern.String())
}

func TestCompileFile_Missing(t *testing.T) {
	_, errs := CompileFile(filepath.Join(t.TempDir(), "nope.cue"))
	require.Len(t, errs, 1)
	assert.ErrorContains(t, errs[0], "reading signature spec")
}
