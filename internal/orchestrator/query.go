package orchestrator

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/big"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/paramexchange/core/internal/bloom"
	"github.com/paramexchange/core/internal/cryptoutil"
	"github.com/paramexchange/core/internal/errs"
	"github.com/paramexchange/core/internal/psi"
	"github.com/paramexchange/core/internal/record"
	"github.com/paramexchange/core/internal/similarity"
)

// QueryRequest is one querier-side lookup: a query vector (only its leading
// IDLength values matter; the rest may be zero) and the similarity metric
// admitting candidates around it.
type QueryRequest struct {
	Query  []float64
	Metric string
	Mode   MatchMode
}

// Query runs the full six-phase retrieval flow described by spec.md §4.5:
// candidate generation, hash-key fetch, matching (bloom or PSI), OT key
// retrieval, ciphertext fetch, and decryption. Each phase is timed via
// logging.Phase.
func (o *Orchestrator) Query(ctx context.Context, req QueryRequest) ([]*record.Record, error) {
	policy, err := similarity.ParseMetric(req.Metric)
	if err != nil {
		return nil, err
	}

	done := o.Log.Phase("candidate_generation")
	idVec := req.Query[:o.RecordCfg.IDLength]
	it := similarity.NewIterator(policy, idVec, o.RecordCfg.RoundingVec)
	done()

	done = o.Log.Phase("hash_key")
	hashKey, err := o.hashKey(ctx)
	if err != nil {
		return nil, err
	}
	done()

	done = o.Log.Phase("matching")
	var matches []*record.Record
	switch req.Mode {
	case ModeBloom:
		matches, err = o.matchBloom(ctx, it, hashKey)
	case ModePSI:
		matches, err = o.matchPSI(ctx, it, hashKey)
	default:
		err = errs.ConfigError("orchestrator.Query", fmt.Errorf("unknown match mode %d", req.Mode))
	}
	done()
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}

	done = o.Log.Phase("key_retrieval")
	otIndices := make([]int, len(matches))
	for i, m := range matches {
		otIndices[i] = int(m.OTIndex(hashKey).Int64())
	}
	keys, err := o.retrieveKeys(ctx, dedupeInts(otIndices))
	done()
	if err != nil {
		return nil, err
	}

	done = o.Log.Phase("ciphertext_fetch")
	hashes := make([]string, len(matches))
	for i, m := range matches {
		h := m.LongHash(hashKey)
		hashes[i] = base64.StdEncoding.EncodeToString(h[:])
	}
	envelopes, err := o.Broker.BatchRetrieveRecords(ctx, hashes)
	done()
	if err != nil {
		return nil, err
	}

	done = o.Log.Phase("decrypt")
	results := make([]*record.Record, 0, len(envelopes))
	for i, raw := range envelopes {
		if raw == nil {
			continue
		}
		env, err := cryptoutil.EnvelopeFromB64(raw)
		if err != nil {
			return nil, err
		}
		otIndex := otIndices[i]
		encKey, ok := keys[otIndex]
		if !ok {
			return nil, errs.ProtocolError("orchestrator.Query: decrypt", fmt.Errorf("no key retrieved for ot_index %d", otIndex))
		}
		rec, err := record.FromCiphertext(o.RecordCfg, env, hashKey, encKey, "")
		if err != nil {
			if errs.Is(err, errs.Integrity) {
				o.Log.Warn("skipping record with integrity failure: %v", err)
				continue
			}
			return nil, err
		}
		results = append(results, rec)
	}
	done()

	return results, nil
}

// matchBloom downloads the broker's Bloom filter once and iterates the
// enumerator, optionally split across MAX_PROCS workers, emitting a
// candidate record for every long-hash present in the filter.
func (o *Orchestrator) matchBloom(ctx context.Context, it *similarity.Iterator, hashKey []byte) ([]*record.Record, error) {
	filterB64, err := o.Broker.Bloom(ctx)
	if err != nil {
		return nil, err
	}
	filter, err := bloom.FromBase64(filterB64)
	if err != nil {
		return nil, err
	}

	workers := o.Config.MaxProcs
	if workers <= 0 {
		workers = 1
	}
	if int64(workers) > it.Len() {
		workers = int(it.Len())
	}
	if workers < 1 {
		workers = 1
	}

	var mu sync.Mutex
	var out []*record.Record

	g, _ := errgroup.WithContext(ctx)
	for j := 0; j < workers; j++ {
		j := j
		sub := it.Split(workers, j)
		g.Go(func() error {
			for {
				candidate, ok := sub.Next()
				if !ok {
					return nil
				}
				rec, err := record.New(o.RecordCfg, padID(candidate, o.RecordCfg.RecordLength), "")
				if err != nil {
					return err
				}
				h := rec.LongHash(hashKey)
				tag := []byte(base64.StdEncoding.EncodeToString(h[:]))
				if filter.Test(tag) {
					mu.Lock()
					out = append(out, rec)
					mu.Unlock()
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// matchPSI materialises the enumerator to deduplicated PSI indices, rejects
// oversized inputs before any I/O, and runs the PSI client against the
// broker's data-plane endpoint.
func (o *Orchestrator) matchPSI(ctx context.Context, it *similarity.Iterator, hashKey []byte) ([]*record.Record, error) {
	candidates := make([]*record.Record, 0, int(it.Len()))
	items := make([]*big.Int, 0, int(it.Len()))
	seen := make(map[string]struct{})

	for {
		candidate, ok := it.Next()
		if !ok {
			break
		}
		rec, err := record.New(o.RecordCfg, padID(candidate, o.RecordCfg.RecordLength), "")
		if err != nil {
			return nil, err
		}
		idx := rec.PSIIndex(hashKey)
		key := idx.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		candidates = append(candidates, rec)
		items = append(items, idx)
	}

	if len(candidates) > o.Config.PSI.SetSize {
		return nil, errs.CapacityExceededError("orchestrator.matchPSI", fmt.Errorf("enumerator produced %d candidates, exceeds PSI_SETSIZE %d", len(candidates), o.Config.PSI.SetSize))
	}

	psiCfg, conn, err := o.dialPSI(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	if len(candidates) > psiCfg.SetSize {
		return nil, errs.CapacityExceededError("orchestrator.matchPSI", fmt.Errorf("enumerator produced %d candidates, exceeds server PSI_SETSIZE %d", len(candidates), psiCfg.SetSize))
	}

	hits, err := psi.RunClient(conn, items, psiCfg)
	if err != nil {
		return nil, err
	}

	out := make([]*record.Record, 0, len(hits))
	for _, idx := range hits {
		out = append(out, candidates[idx])
	}
	return out, nil
}

// padID extends an ID-length candidate vector with zeros to the full record
// length; only the leading IDLength values ever feed RoundedID/LongHash, so
// the padding never changes the derived indices.
func padID(id []float64, recordLength int) []float64 {
	out := make([]float64, recordLength)
	copy(out, id)
	return out
}
