package document

import (
	"context"
	"slices"

	"github.com/rs/zerolog"
)

// UsesOutdatedRuntime reports whether any aws:executeScript step in the
// document declares a runtime present in denylist. It short-circuits on the
// first match; nil content or a document without steps is never a match.
func UsesOutdatedRuntime(ctx context.Context, content *Content, denylist []string) bool {
	if content == nil {
		return false
	}

	for _, step := range content.MainSteps {
		if step.Action != ExecuteScriptAction {
			continue
		}

		runtime := step.Runtime()
		if runtime == "" || !slices.Contains(denylist, runtime) {
			continue
		}

		stepName := step.Name
		if stepName == "" {
			stepName = "UnnamedStep"
		}
		zerolog.Ctx(ctx).Debug().
			Str("runtime", runtime).
			Str("step", stepName).
			Msg("Found outdated runtime")
		return true
	}

	return false
}
