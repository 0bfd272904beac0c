package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

func TestRunChecks(t *testing.T) {
	color.NoColor = true

	t.Run("all pass", func(t *testing.T) {
		var buf bytes.Buffer
		err := runChecks(t.Context(), &buf, []checkItem{
			{name: "policy", run: func(context.Context) (string, error) { return "defaults", nil }},
			{name: "analyzer", run: func(context.Context) (string, error) { return "disabled", nil }},
		})
		gt.NoError(t, err)
		gt.S(t, buf.String()).Contains("✔ policy")
		gt.S(t, buf.String()).Contains("disabled")
	})

	t.Run("one failure fails the run but every item is reported", func(t *testing.T) {
		var buf bytes.Buffer
		err := runChecks(t.Context(), &buf, []checkItem{
			{name: "repository", run: func(context.Context) (string, error) { return "", goerr.New("connection refused") }},
			{name: "queue", run: func(context.Context) (string, error) { return "inline", nil }},
		})
		gt.Error(t, err).Is(ErrCheckFailed)
		gt.S(t, buf.String()).Contains("✘ repository")
		gt.S(t, buf.String()).Contains("connection refused")
		gt.S(t, buf.String()).Contains("✔ queue")
	})
}
