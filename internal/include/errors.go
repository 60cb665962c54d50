// File: internal/include/errors.go
// Brief: Typed failures of include expansion.

package include

import (
	"fmt"
	"strings"
)

// UnresolvedRepoError reports an include naming a repository id that no document
// processed so far declares and that the repo lookup does not know.
type UnresolvedRepoError struct {
	Repo string
	File string
	From string
}

func (e *UnresolvedRepoError) Error() string {
	return fmt.Sprintf("%s: include %q refers to unknown repository %q", e.From, e.File, e.Repo)
}

// IncludeCycleError reports a document that includes itself, directly or transitively.
// Chain is the include path from the first root to the repeated document, which
// appears twice: where it was first entered and as the last element.
type IncludeCycleError struct {
	Chain []string
}

func (e *IncludeCycleError) Error() string {
	return "include cycle: " + strings.Join(e.Chain, " -> ")
}
