package eventfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdtdelta/4n6time-core/internal/event"
)

func sampleEvent() *event.Event {
	e := event.NewEvent(1_000_000, "Last Access Time", "fs:stat")
	e.Parser = "filestat"
	e.Hostname = "workstation01"
	e.Username = "alice"
	e.Filename = "/home/alice/secret.docx"
	e.Set("url", event.StringValue("http://example.com/download"))
	return e
}

func TestCompileEmptyExpressionMatchesEverything(t *testing.T) {
	f, err := Compile("")
	require.NoError(t, err)
	assert.True(t, f.Matches(sampleEvent()))
	assert.True(t, f.Matches(event.NewEvent(0, "", "")))
}

func TestExactMatchClause(t *testing.T) {
	f, err := Compile("parser=filestat")
	require.NoError(t, err)
	assert.True(t, f.Matches(sampleEvent()))

	f, err = Compile("parser=mactime")
	require.NoError(t, err)
	assert.False(t, f.Matches(sampleEvent()))
}

func TestExactMatchIsCaseInsensitive(t *testing.T) {
	f, err := Compile("hostname=WORKSTATION01")
	require.NoError(t, err)
	assert.True(t, f.Matches(sampleEvent()))
}

func TestSubstringClause(t *testing.T) {
	f, err := Compile("filename~secret")
	require.NoError(t, err)
	assert.True(t, f.Matches(sampleEvent()))

	f, err = Compile("filename~nonexistent")
	require.NoError(t, err)
	assert.False(t, f.Matches(sampleEvent()))
}

func TestCommaSeparatedClausesAreAndCombined(t *testing.T) {
	f, err := Compile("parser=filestat,username=alice")
	require.NoError(t, err)
	assert.True(t, f.Matches(sampleEvent()))

	f, err = Compile("parser=filestat,username=bob")
	require.NoError(t, err)
	assert.False(t, f.Matches(sampleEvent()))
}

func TestAndSeparatedClauses(t *testing.T) {
	f, err := Compile("parser=filestat and hostname=workstation01")
	require.NoError(t, err)
	assert.True(t, f.Matches(sampleEvent()))

	f, err = Compile("parser=filestat and hostname=otherhost")
	require.NoError(t, err)
	assert.False(t, f.Matches(sampleEvent()))
}

func TestAttributeFallback(t *testing.T) {
	f, err := Compile("url~example.com")
	require.NoError(t, err)
	assert.True(t, f.Matches(sampleEvent()))

	f, err = Compile("missing_attribute=anything")
	require.NoError(t, err)
	assert.False(t, f.Matches(sampleEvent()))
}

func TestTimestampFieldMatchesFormattedValue(t *testing.T) {
	f, err := Compile("timestamp=1000000")
	require.NoError(t, err)
	assert.True(t, f.Matches(sampleEvent()))
}

func TestCompileRejectsInvalidClause(t *testing.T) {
	_, err := Compile("notanexpression")
	assert.Error(t, err)
}
