package migrations

import (
	"encoding/json"

	"github.com/defistack/automate/model"
	"github.com/defistack/automate/storage"
)

// NormalizeContractAddresses lower-cases every catalogue row address.
// Early catalogue rows were written with checksummed addresses, which
// broke the reconciler's address diff.
func NormalizeContractAddresses(db storage.Storage) (int, error) {
	kvs, err := db.GetByPrefix([]byte("ct:"))
	if err != nil {
		return 0, err
	}

	updates := map[string][]byte{}
	for _, kv := range kvs {
		c := &model.Contract{}
		if err := json.Unmarshal(kv.Value, c); err != nil {
			// unreadable rows are left alone rather than destroyed
			continue
		}

		normalized := model.NormalizeAddress(c.Address)
		if normalized == c.Address {
			continue
		}

		c.Address = normalized
		b, err := json.Marshal(c)
		if err != nil {
			return 0, err
		}
		updates[string(kv.Key)] = b
	}

	if len(updates) == 0 {
		return 0, nil
	}
	if err := db.BatchWrite(updates); err != nil {
		return 0, err
	}
	return len(updates), nil
}
