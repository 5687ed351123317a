package mutate

import (
	"fmt"

	"github.com/google/uuid"
)

// clipNamespace is the fixed UUID namespace for derived clip ids.
// Derived ids are SHA-1 (version 5) UUIDs so that replaying a command
// regenerates byte-identical ids.
var clipNamespace = uuid.MustParse("9c1f3b52-7a14-4a64-a1d0-6f1f6f3f9e21")

// DeriveClipID deterministically derives an id for a clip produced from a
// parent clip (split remainders, duplicates).
func DeriveClipID(parent, side string, startFrames int64) string {
	name := fmt.Sprintf("%s/%s/%d", parent, side, startFrames)
	return uuid.NewSHA1(clipNamespace, []byte(name)).String()
}

// CommandClipID derives the id for the nth clip created by the command
// with the given sequence number. Executors use it so undo/redo replay
// mints identical ids.
func CommandClipID(seq int64, n int) string {
	name := fmt.Sprintf("cmd/%d/clip/%d", seq, n)
	return uuid.NewSHA1(clipNamespace, []byte(name)).String()
}
