package def

import "errors"

// Parse failure sentinels (spec.md §7). Wrapped with the offending token's
// text where available so callers still get a useful message, while
// errors.Is(err, def.ErrExpectedInteger) keeps working.
var (
	ErrUnknownDirective   = errors.New("def: unknown directive")
	ErrExpectedIdentifier = errors.New("def: expected identifier")
	ErrExpectedInteger    = errors.New("def: expected integer")
	ErrExpectedEqual      = errors.New("def: expected equal")
)
