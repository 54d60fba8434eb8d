package sqldb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aanand-mishra/users-api/internal/types"
)

var errNullAddress = errors.New("address is null")

// encodeAddress serializes the address for the address column.
func encodeAddress(a types.Address) (string, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("encode address: %w", err)
	}
	return string(b), nil
}

// decodeAddress parses a stored address column.
//
// A column holding a JSON string is unwrapped once and parsed again, which
// covers addresses that were double-encoded on the way in.
func decodeAddress(raw []byte) (types.Address, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return types.Address{}, err
		}
		raw = []byte(inner)
	}

	var a *types.Address
	if err := json.Unmarshal(raw, &a); err != nil {
		return types.Address{}, err
	}
	if a == nil {
		return types.Address{}, errNullAddress
	}
	return *a, nil
}

// addressOrFallback never fails: anything decodeAddress rejects becomes
// types.FallbackAddress, and the failure is logged against the row id.
func (s *Store) addressOrFallback(ctx context.Context, id int64, raw []byte) types.Address {
	a, err := decodeAddress(raw)
	if err != nil {
		s.log.WarnContext(ctx, "invalid address JSON, using fallback",
			"user_id", id,
			"error", err.Error())
		return types.FallbackAddress
	}
	return a
}
