package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/Wakhungu1234/Wakhungu28Ai/internal/types"
)

// Key layout:
//
//	bot/<id>              BotSpec JSON
//	trade/<botID>/<seq>   TradeRecord JSON, seq zero-padded for ordering
//	tradeseq/<botID>      monotonic trade counter
//	recovery/<botID>      RecoveryState JSON
//	tick/<symbol>/<epoch> Tick JSON, stored with a TTL
type badgerRepository struct {
	db *badger.DB
}

// NewBadgerRepository opens (or creates) a BadgerDB database at dbPath.
// inMemory skips the disk entirely, which tests rely on.
func NewBadgerRepository(dbPath string, inMemory bool) (Repository, error) {
	opts := badger.DefaultOptions(dbPath).WithInMemory(inMemory)
	// Badger's own logging is noisy; errors still surface from operations.
	opts.Logger = nil
	if inMemory {
		opts.Dir = ""
		opts.ValueDir = ""
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open badger: %v", types.ErrStorage, err)
	}
	return &badgerRepository{db: db}, nil
}

func botKey(id string) []byte      { return []byte("bot/" + id) }
func recoveryKey(id string) []byte { return []byte("recovery/" + id) }
func tradeSeqKey(id string) []byte { return []byte("tradeseq/" + id) }

func tradeKey(botID string, seq uint64) []byte {
	return []byte(fmt.Sprintf("trade/%s/%020d", botID, seq))
}

func tickKey(symbol string, epoch int64) []byte {
	return []byte(fmt.Sprintf("tick/%s/%020d", symbol, epoch))
}

func (r *badgerRepository) setJSON(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", types.ErrStorage, key, err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("%w: set %s: %v", types.ErrStorage, key, err)
	}
	return nil
}

// getJSON unmarshals the value at key into out. Absent keys return
// (false, nil).
func (r *badgerRepository) getJSON(key []byte, out any) (bool, error) {
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: get %s: %v", types.ErrStorage, key, err)
	}
	return true, nil
}

func (r *badgerRepository) SaveBot(spec *types.BotSpec) error {
	return r.setJSON(botKey(spec.ID), spec)
}

func (r *badgerRepository) LoadBot(id string) (*types.BotSpec, error) {
	var spec types.BotSpec
	found, err := r.getJSON(botKey(id), &spec)
	if err != nil || !found {
		return nil, err
	}
	return &spec, nil
}

func (r *badgerRepository) ListBots() ([]*types.BotSpec, error) {
	var bots []*types.BotSpec
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte("bot/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var spec types.BotSpec
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &spec)
			})
			if err != nil {
				return err
			}
			bots = append(bots, &spec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list bots: %v", types.ErrStorage, err)
	}
	return bots, nil
}

func (r *badgerRepository) DeleteBot(id string) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(botKey(id))
	})
	if err != nil {
		return fmt.Errorf("%w: delete bot %s: %v", types.ErrStorage, id, err)
	}
	return nil
}

func (r *badgerRepository) AppendTrade(rec types.TradeRecord) (uint64, error) {
	var seq uint64
	err := r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(tradeSeqKey(rec.BotID))
		if err == nil {
			err = item.Value(func(val []byte) error {
				_, scanErr := fmt.Sscanf(string(val), "%d", &seq)
				return scanErr
			})
			if err != nil {
				return err
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		seq++

		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := txn.Set(tradeKey(rec.BotID, seq), data); err != nil {
			return err
		}
		return txn.Set(tradeSeqKey(rec.BotID), []byte(fmt.Sprintf("%d", seq)))
	})
	if err != nil {
		return 0, fmt.Errorf("%w: append trade for %s: %v", types.ErrStorage, rec.BotID, err)
	}
	return seq, nil
}

func (r *badgerRepository) RecentTrades(botID string, limit int) ([]types.TradeRecord, error) {
	var trades []types.TradeRecord
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte("trade/" + botID + "/")
		// Reverse iteration starts just past the highest sequence key.
		seek := append(append([]byte{}, prefix...), 0xff)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(trades) >= limit {
				break
			}
			var rec types.TradeRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			trades = append(trades, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: recent trades for %s: %v", types.ErrStorage, botID, err)
	}
	return trades, nil
}

func (r *badgerRepository) SaveRecovery(botID string, state types.RecoveryState) error {
	return r.setJSON(recoveryKey(botID), state)
}

func (r *badgerRepository) LoadRecovery(botID string) (*types.RecoveryState, error) {
	var state types.RecoveryState
	found, err := r.getJSON(recoveryKey(botID), &state)
	if err != nil || !found {
		return nil, err
	}
	return &state, nil
}

func (r *badgerRepository) DeleteRecovery(botID string) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(recoveryKey(botID))
	})
	if err != nil {
		return fmt.Errorf("%w: delete recovery %s: %v", types.ErrStorage, botID, err)
	}
	return nil
}

func (r *badgerRepository) SaveTick(tick types.Tick, ttl time.Duration) error {
	data, err := json.Marshal(tick)
	if err != nil {
		return fmt.Errorf("%w: marshal tick: %v", types.ErrStorage, err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(tickKey(tick.Symbol, tick.Epoch), data)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("%w: save tick %s: %v", types.ErrStorage, tick.Symbol, err)
	}
	return nil
}

func (r *badgerRepository) RecentTicks(symbol string, limit int) ([]types.Tick, error) {
	var ticks []types.Tick
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte("tick/" + symbol + "/")
		seek := append(append([]byte{}, prefix...), 0xff)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(ticks) >= limit {
				break
			}
			var tick types.Tick
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &tick)
			})
			if err != nil {
				return err
			}
			ticks = append(ticks, tick)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: recent ticks for %s: %v", types.ErrStorage, symbol, err)
	}
	// Oldest first for analysis windows.
	for i, j := 0, len(ticks)-1; i < j; i, j = i+1, j-1 {
		ticks[i], ticks[j] = ticks[j], ticks[i]
	}
	return ticks, nil
}

func (r *badgerRepository) Close() error {
	return r.db.Close()
}
