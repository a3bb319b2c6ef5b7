// Package lexid implements a scheme for numeric ids which are ordered both
// numerically and lexically.
//
// Throughout a sequence of ids this expression remains true, whether you are
// dealing with integers or strings:
//
//	olderID < newerID
//
// The left-most character/digit is only used to maintain lexical order, so
// that the position in the sequence is kept in the remaining digits:
//
//	lexical   sequence position
//	0001                      1
//	0999                    999
//	11000                  1000
//	19999                  9999
//	220000                20000
//	...
//	9999999999999  999999999999   (maximum value)
//
// Adding leading zeros delays the width expansion and increases the maximum
// possible value. The ids don't have any arithmetical meaning; the only
// relation they have to each other is that ids generated later in the
// sequence are greater than ones generated earlier.
package lexid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MinimumID is the lowest valid id of the sequence.
const MinimumID = "0"

// ErrOverflow is returned when an id consists only of nines, which is the
// hard ceiling of the sequence for any given starting width.
var ErrOverflow = errors.New("max lexical id reached")

// NextID returns the id that follows prev in the sequence. The result always
// compares greater than prev, both as a string and as a number. When the
// increment would change the leading digit, the id width grows by one digit
// instead, preserving lexical order across the width change.
func NextID(prev string) (string, error) {
	if strings.Count(prev, "9") == len(prev) {
		return "", fmt.Errorf("%w: %q", ErrOverflow, prev)
	}

	prevN, err := strconv.ParseUint(prev, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid lexical id %q: %w", prev, err)
	}

	nextN := prevN + 1
	next := fmt.Sprintf("%0*d", len(prev), nextN)
	if prev[0] != next[0] {
		next = strconv.FormatUint(nextN*11, 10)
	}
	return next, nil
}

// OrdVal returns the position of an id in the sequence.
func OrdVal(id string) (uint64, error) {
	digits := id
	if len(id) > 1 {
		digits = id[1:]
	}
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid lexical id %q: %w", id, err)
	}
	return n, nil
}
