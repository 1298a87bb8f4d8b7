package orchestrator

import (
	"fmt"

	"github.com/paramexchange/core/internal/errs"
)

func errNoKeyForIndex(otIndex int) error {
	return errs.ProtocolError("orchestrator.IngestBatch", fmt.Errorf("no key retrieved for ot_index %d", otIndex))
}
