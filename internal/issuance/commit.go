package issuance

import (
	"context"

	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

// CommitDraft hands a verified draft to the committer. A failure is never
// retried here; the draft is dropped and the caller starts over.
func CommitDraft(ctx context.Context, d *Draft, c Committer) (types.Hash, error) {
	id, err := c.CommitTransaction(ctx, d.Tx)
	if err != nil {
		return types.Hash{}, &CommitError{TxID: d.Tx.Hash(), Err: err}
	}
	return id, nil
}
