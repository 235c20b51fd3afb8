package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/domain-lead-pipeline/internal/model"
)

func TestParseStatuses(t *testing.T) {
	got := parseStatuses([]string{"new", " skipped ", "", "rdap_error"})
	assert.Equal(t, []model.DomainStatus{
		model.StatusNew, model.StatusSkipped, model.StatusRDAPError,
	}, got)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{
		"serve", "run", "import", "sync", "classify", "enrich",
		"verify", "score", "export", "daily-target", "jobs",
	} {
		assert.True(t, names[want], "command %s not registered", want)
	}
}
