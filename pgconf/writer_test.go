package pgconf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteConfValueEscapesQuotes(t *testing.T) {
	assert.Equal(t, "'a,b'", quoteConfValue("a,b"))
	assert.Equal(t, "'it''s'", quoteConfValue("it's"))
}

func TestCurrentSynchronousStandbyNamesLineFindsManagedLine(t *testing.T) {
	lines := []string{"foo = 1", "synchronous_standby_names = 'a'", "bar = 2"}
	assert.Equal(t, "synchronous_standby_names = 'a'", currentSynchronousStandbyNamesLine(lines))
}

func TestCurrentSynchronousStandbyNamesLineAbsent(t *testing.T) {
	assert.Equal(t, "", currentSynchronousStandbyNamesLine([]string{"foo = 1"}))
}

func TestReplaceSynchronousStandbyNamesLineReplacesExisting(t *testing.T) {
	lines := []string{"foo = 1", "synchronous_standby_names = 'a'", "bar = 2"}
	out := replaceSynchronousStandbyNamesLine(lines, "synchronous_standby_names = 'b'")
	assert.Equal(t, []string{"foo = 1", "synchronous_standby_names = 'b'", "bar = 2"}, out)
}

func TestReplaceSynchronousStandbyNamesLineRemovesWhenEmpty(t *testing.T) {
	lines := []string{"foo = 1", "synchronous_standby_names = 'a'", "bar = 2"}
	out := replaceSynchronousStandbyNamesLine(lines, "")
	assert.Equal(t, []string{"foo = 1", "bar = 2"}, out)
}

func TestReplaceSynchronousStandbyNamesLineAppendsWhenAbsent(t *testing.T) {
	lines := []string{"foo = 1"}
	out := replaceSynchronousStandbyNamesLine(lines, "synchronous_standby_names = 'a'")
	assert.Equal(t, []string{"foo = 1", managedComment, "synchronous_standby_names = 'a'"}, out)
}
