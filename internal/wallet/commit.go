package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/HUSKI3/Neblio-Node/internal/storage"
	"github.com/HUSKI3/Neblio-Node/internal/utxo"
	"github.com/HUSKI3/Neblio-Node/pkg/tx"
	"github.com/HUSKI3/Neblio-Node/pkg/types"
)

// ErrTxNotFound is returned for transactions the wallet never recorded.
var ErrTxNotFound = errors.New("transaction not found in wallet")

// TxRecord is a wallet transaction as stored.
type TxRecord struct {
	Tx     *tx.Transaction `json:"tx"`
	Height uint64          `json:"height"` // 0 while unconfirmed
	Fee    uint64          `json:"fee,omitempty"`
	Time   time.Time       `json:"time"`
}

// GetTransaction returns a recorded transaction.
func (w *Wallet) GetTransaction(txid types.Hash) (*TxRecord, error) {
	data, err := w.txs.Get(txid[:])
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTxNotFound, txid)
	}
	if err != nil {
		return nil, err
	}
	var rec TxRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("tx record %s: %w", txid, err)
	}
	return &rec, nil
}

// CommitTransaction adds t to the mempool, records it in the wallet and
// relays it. A relay failure is logged; the transaction stays committed.
func (w *Wallet) CommitTransaction(ctx context.Context, t *tx.Transaction) (types.Hash, error) {
	txid := t.Hash()

	w.mu.Lock()
	fee, err := w.pool.Add(t)
	if err != nil {
		w.mu.Unlock()
		return types.Hash{}, fmt.Errorf("mempool rejected %s: %w", txid, err)
	}
	if err := w.recordLocked(t, 0, fee); err != nil {
		w.pool.Remove(txid)
		w.mu.Unlock()
		return types.Hash{}, err
	}
	w.mu.Unlock()

	if err := w.RefreshBalances(ctx); err != nil {
		w.logger.Warn().Err(err).Msg("Balance refresh after commit failed")
	}

	w.bmu.RLock()
	b := w.broadcaster
	w.bmu.RUnlock()
	if b != nil {
		if err := b.Broadcast(ctx, t); err != nil {
			w.logger.Warn().Err(err).Str("txid", txid.String()).Msg("Broadcast failed")
		}
	}

	w.logger.Info().Str("txid", txid.String()).Uint64("fee", fee).Msg("Transaction committed")
	return txid, nil
}

// AddTransaction ingests a transaction seen elsewhere (peer relay or
// import). Token effects are indexed for every valid transaction; wallet
// state changes only when t spends or pays the wallet. It reports whether
// the wallet was affected.
func (w *Wallet) AddTransaction(ctx context.Context, t *tx.Transaction, height uint64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := t.Validate(); err != nil {
		return false, err
	}
	txid := t.Hash()

	w.mu.Lock()
	if has, err := w.txs.Has(txid[:]); err != nil || has {
		w.mu.Unlock()
		return false, err
	}
	relevant, err := w.relevantLocked(t)
	if err != nil {
		w.mu.Unlock()
		return false, err
	}
	if !relevant {
		d, err := w.decoder.Decode(t, w.tokens)
		if err == nil {
			err = w.tokens.Index(d)
		}
		w.mu.Unlock()
		return false, err
	}
	err = w.recordLocked(t, height, 0)
	w.mu.Unlock()
	if err != nil {
		return false, err
	}

	if err := w.RefreshBalances(ctx); err != nil {
		w.logger.Warn().Err(err).Msg("Balance refresh after import failed")
	}
	w.logger.Info().Str("txid", txid.String()).Uint64("height", height).Msg("Wallet transaction added")
	return true, nil
}

func (w *Wallet) relevantLocked(t *tx.Transaction) (bool, error) {
	for _, out := range t.Outputs {
		if addr, ok := out.Script.Address(); ok && w.ownsLocked(addr) {
			return true, nil
		}
	}
	for _, in := range t.Inputs {
		has, err := w.utxos.Has(in.PrevOut)
		if err != nil {
			return false, err
		}
		if has {
			return true, nil
		}
	}
	return false, nil
}

// recordLocked decodes t, stores it, applies it to the UTXO set and
// indexes its token balances. Everything is staged before anything is
// written; if a write fails, the writes already made are reverted so the
// wallet is left as it was.
func (w *Wallet) recordLocked(t *tx.Transaction, height, fee uint64) error {
	txid := t.Hash()
	d, err := w.decoder.Decode(t, w.tokens)
	if err != nil {
		return fmt.Errorf("decode %s: %w", txid, err)
	}
	data, err := json.Marshal(&TxRecord{Tx: t, Height: height, Fee: fee, Time: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", txid, err)
	}

	tokens := w.tokens.NewJournal()
	if err := w.tokens.StageIndex(tokens, d); err != nil {
		return fmt.Errorf("index tokens of %s: %w", txid, err)
	}
	coins := w.utxos.NewJournal()
	if _, err := w.utxos.StageTx(coins, t, height, w.ownsLocked); err != nil {
		return err
	}
	record := storage.NewJournal(w.txs)
	if err := record.Put(txid[:], data); err != nil {
		return fmt.Errorf("record %s: %w", txid, err)
	}
	return w.commitJournals(txid, tokens, coins, record)
}

// commitJournals commits js in order. When one fails, it and every journal
// before it are reverted, newest first.
func (w *Wallet) commitJournals(txid types.Hash, js ...*storage.Journal) error {
	for i, j := range js {
		err := j.Commit()
		if err == nil {
			continue
		}
		for k := i; k >= 0; k-- {
			if rerr := js[k].Revert(); rerr != nil {
				w.logger.Error().Err(rerr).Str("txid", txid.String()).Msg("Rollback of wallet write failed")
			}
		}
		return fmt.Errorf("write %s: %w", txid, err)
	}
	return nil
}

// LookupFunding returns the coin value of a wallet output and the tokens
// it holds. When the wallet knows the creating transaction the tokens
// come from decoding it; otherwise from the token balance index.
func (w *Wallet) LookupFunding(ctx context.Context, op types.Outpoint) (uint64, []types.TokenData, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	w.mu.RLock()
	defer w.mu.RUnlock()

	u, err := w.utxos.Get(op)
	if errors.Is(err, utxo.ErrNotFound) {
		return 0, nil, fmt.Errorf("%w: %s", ErrUnknownOutput, op)
	}
	if err != nil {
		return 0, nil, err
	}

	rec, err := w.GetTransaction(op.TxID)
	if errors.Is(err, ErrTxNotFound) {
		tokens, err := w.tokens.TokenBalances(op)
		if err != nil {
			return 0, nil, err
		}
		return u.Value, tokens, nil
	}
	if err != nil {
		return 0, nil, err
	}
	d, err := w.decoder.Decode(rec.Tx, w.tokens)
	if err != nil {
		return 0, nil, fmt.Errorf("decode source %s: %w", op.TxID, err)
	}
	return u.Value, types.CloneTokens(d.TokensAt(int(op.Index))), nil
}
