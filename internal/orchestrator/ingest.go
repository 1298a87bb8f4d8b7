package orchestrator

import (
	"context"

	"github.com/paramexchange/core/internal/record"
	"github.com/paramexchange/core/internal/transport"
)

// IngestBatch encrypts and stores a batch of provider-owned records,
// following spec.md §4.6's six-step ingest flow: fetch the hash key,
// compute each record's hash and OT index, OT-retrieve the corresponding
// encryption keys (chunked/parallelised exactly like Query's key-retrieval
// phase), encrypt, and hand the ciphertext tuples to the broker.
func (o *Orchestrator) IngestBatch(ctx context.Context, values [][]float64, owner string) error {
	done := o.Log.Phase("hash_key")
	hashKey, err := o.hashKey(ctx)
	done()
	if err != nil {
		return err
	}

	done = o.Log.Phase("hash")
	recs := make([]*record.Record, len(values))
	otIndices := make([]int, len(values))
	for i, v := range values {
		rec, err := record.New(o.RecordCfg, v, owner)
		if err != nil {
			done()
			return err
		}
		recs[i] = rec
		otIndices[i] = int(rec.OTIndex(hashKey).Int64())
	}
	done()

	done = o.Log.Phase("key_retrieval")
	keys, err := o.retrieveKeys(ctx, dedupeInts(otIndices))
	done()
	if err != nil {
		return err
	}

	done = o.Log.Phase("encrypt")
	reqs := make([]transport.StoreRecordRequest, len(recs))
	for i, rec := range recs {
		encKey, ok := keys[otIndices[i]]
		if !ok {
			done()
			return errNoKeyForIndex(otIndices[i])
		}
		env, err := rec.Encrypt(hashKey, encKey)
		if err != nil {
			done()
			return err
		}
		reqs[i] = transport.StoreRecordRequest{Envelope: env.B64()}
	}
	done()

	done = o.Log.Phase("store")
	err = o.Broker.BatchStoreRecords(ctx, reqs)
	done()
	return err
}
