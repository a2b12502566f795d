package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdtdelta/4n6time-core/internal/event"
)

func TestNamedResolvesKnownPlugins(t *testing.T) {
	sink, ok := Named("parser_count")
	require.True(t, ok)
	assert.IsType(t, &ParserCount{}, sink)

	sink, ok = Named(" Unique_Domains ")
	require.True(t, ok)
	assert.IsType(t, &UniqueDomains{}, sink)
}

func TestNamedRejectsUnknownPlugin(t *testing.T) {
	sink, ok := Named("chrome_extension")
	assert.False(t, ok)
	assert.Nil(t, sink)
}

func TestParserCountReport(t *testing.T) {
	p := NewParserCount()
	e1 := event.NewEvent(0, "", "")
	e1.Parser = "java_idx"
	e2 := event.NewEvent(0, "", "")
	e2.Parser = "java_idx"
	e3 := event.NewEvent(0, "", "")
	e3.Parser = "mactime"
	e4 := event.NewEvent(0, "", "")

	for _, e := range []*event.Event{e1, e2, e3, e4} {
		p.Observe(e)
	}

	report := p.Report()
	assert.Contains(t, report, "java_idx")
	assert.Contains(t, report, "mactime")
	assert.Contains(t, report, "(unknown)")
}

func TestUniqueDomainsReport(t *testing.T) {
	u := NewUniqueDomains()

	withURL := event.NewEvent(0, "", "")
	withURL.Set("url", event.StringValue("http://Example.com/a"))
	u.Observe(withURL)

	sameHost := event.NewEvent(0, "", "")
	sameHost.Set("url", event.StringValue("http://example.com/b"))
	u.Observe(sameHost)

	otherHost := event.NewEvent(0, "", "")
	otherHost.Set("url", event.StringValue("https://other.example.org/c"))
	u.Observe(otherHost)

	noURL := event.NewEvent(0, "", "")
	u.Observe(noURL)

	report := u.Report()
	assert.Contains(t, report, "example.com")
	assert.Contains(t, report, "other.example.org")
}
