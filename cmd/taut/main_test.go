package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taut-go/taut/assert"
	"github.com/taut-go/taut/registry"
	"github.com/taut-go/taut/runner"
)

func TestMainRejectsMalformedFlags(t *testing.T) {
	code := run([]string{"--no-such-flag"})
	require.Equal(t, runner.ExitBadArguments, code)
}

func TestMainRejectsMalformedGenerateDirective(t *testing.T) {
	registry.ResetForTesting()
	defer registry.ResetForTesting()
	registry.Register(&registry.Test{Name: "a_test", Body: func(rt registry.TestingT) {
		assert.Check(rt, func() bool { return true })
	}})

	code := run([]string{"-g", "missing-separator"})
	require.Equal(t, runner.ExitBadArguments, code)
}

func TestMainReturnsNoTestNameMatchWhenIncludePatternMatchesNothing(t *testing.T) {
	registry.ResetForTesting()
	defer registry.ResetForTesting()
	registry.Register(&registry.Test{Name: "a_test", Body: func(rt registry.TestingT) {
		assert.Check(rt, func() bool { return true })
	}})

	code := run([]string{"--no-progress", "-i", "no_such_test_name"})
	require.Equal(t, runner.ExitNoTestNameMatch, code)
}

func TestMainRunsRegisteredPassingTest(t *testing.T) {
	registry.ResetForTesting()
	defer registry.ResetForTesting()
	registry.Register(&registry.Test{Name: "passing_test", Body: func(rt registry.TestingT) {
		assert.Check(rt, func() bool { return true })
	}})

	code := run([]string{"--no-progress"})
	require.Equal(t, runner.ExitOK, code)
}

func TestMainReturnsTestFailedForAFailingTest(t *testing.T) {
	registry.ResetForTesting()
	defer registry.ResetForTesting()
	registry.Register(&registry.Test{Name: "failing_test", Body: func(rt registry.TestingT) {
		assert.Check(rt, func() bool { return false })
	}})

	code := run([]string{"--no-progress", "--no-color"})
	require.Equal(t, runner.ExitTestFailed, code)
}

func TestMainPrintsGenerateGuideAndExitsOK(t *testing.T) {
	code := run([]string{"--help-generate"})
	require.Equal(t, runner.ExitOK, code)
}
