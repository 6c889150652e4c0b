package duel

import "errors"

// ErrStaleLoad is returned to a LoadNextPair caller whose result was
// discarded because a newer load, theme change or reset started meanwhile.
var ErrStaleLoad = errors.New("load superseded by a newer request")
