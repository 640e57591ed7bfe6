package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"parchi/internal/core"
	"parchi/internal/storage"
)

// DefaultKey is the storage key of the ledger blob.
const DefaultKey = "parchi_pro_v11"

// Encode serialises entries as the stored JSON array.
func Encode(entries []core.Entry) ([]byte, error) {
	if entries == nil {
		entries = []core.Entry{}
	}
	return json.Marshal(entries)
}

// Decode parses a stored blob. An empty blob is an empty ledger.
func Decode(data []byte) ([]core.Entry, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []core.Entry{}, nil
	}
	var entries []core.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageParse, err)
	}
	if entries == nil {
		entries = []core.Entry{}
	}
	for i := range entries {
		if entries[i].Payments == nil {
			entries[i].Payments = []core.Payment{}
		}
	}
	return entries, nil
}

// Snapshot reads the ledger stored under key without opening a Store.
func Snapshot(ctx context.Context, blobs storage.BlobStore, key string) ([]core.Entry, error) {
	data, err := blobs.Load(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return []core.Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return Decode(data)
}
