package recordsource

import "errors"

var errRowWidth = errors.New("recordsource: row field count does not match the configured record length")
