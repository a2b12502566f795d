package pathspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootIsOS(t *testing.T) {
	p := New("/var/log/syslog")
	require.NoError(t, p.Validate())
	assert.Equal(t, OS, p.Type)
	assert.Nil(t, p.Parent)
}

func TestChildRequiresParent(t *testing.T) {
	root := New("/data/syslog.zip")
	child := root.Child(ZIP, "syslog")
	require.NoError(t, child.Validate())
	assert.Equal(t, 1, child.Depth)
	assert.Equal(t, root, child.Parent)
}

func TestValidateRejectsParentlessNonOS(t *testing.T) {
	bad := &PathSpec{Type: ZIP, Location: "syslog"}
	assert.Error(t, bad.Validate())
}

func TestEqualComparesFullChain(t *testing.T) {
	root := New("/data/syslog.zip")
	a := root.Child(ZIP, "syslog")
	b := New("/data/syslog.zip").Child(ZIP, "syslog")
	assert.True(t, a.Equal(b))

	c := root.Child(ZIP, "other")
	assert.False(t, a.Equal(c))
}

func TestStringChainOrder(t *testing.T) {
	root := New("/data/syslog.zip")
	child := root.Child(ZIP, "syslog")
	assert.Equal(t, "OS:/data/syslog.zip/ZIP:syslog", child.String())
}

func TestRootReturnsOuterNode(t *testing.T) {
	root := New("/data/a.tar")
	mid := root.Child(TAR, "inner.gz")
	leaf := mid.Child(GZIP, "")
	assert.Same(t, root, leaf.Root())
}
