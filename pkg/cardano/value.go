package cardano

import (
	"encoding/hex"
	"errors"
)

// AdaUnit is the conventional unit name for lovelace. Value does not use it
// as an asset-map key: like apollo/gouroboros, it keeps coin in its own Coin
// field, separate from the multi-asset map (see SPEC_FULL §5).
const AdaUnit = "lovelace"

// assetKey is policyId-hex + "." + assetName-hex, used as a flattened map
// key so Value can stay a simple Go map rather than a nested one.
func assetKey(policy PolicyId, asset []byte) string {
	return policy.Hex() + "." + hex.EncodeToString(asset)
}

// Value is the multi-asset bag described in spec §3: a mapping
// PolicyId -> AssetName -> positive quantity, plus lovelace in the Coin
// field.
type Value struct {
	Coin   int64
	assets map[string]assetEntry
}

type assetEntry struct {
	policy PolicyId
	asset  []byte
	amount int64
}

// NewValue creates a Value holding only lovelace.
func NewValue(coin int64) Value {
	return Value{Coin: coin}
}

// WithAsset returns a copy of v with amount added to policy/asset's quantity.
func (v Value) WithAsset(policy PolicyId, asset []byte, amount int64) Value {
	out := v.Clone()
	if out.assets == nil {
		out.assets = make(map[string]assetEntry)
	}
	key := assetKey(policy, asset)
	entry := out.assets[key]
	entry.policy = policy
	entry.asset = append([]byte(nil), asset...)
	entry.amount += amount
	if entry.amount == 0 {
		delete(out.assets, key)
	} else {
		out.assets[key] = entry
	}
	return out
}

// AssetAmount returns the quantity held of policy/asset (0 if absent).
func (v Value) AssetAmount(policy PolicyId, asset []byte) int64 {
	if v.assets == nil {
		return 0
	}
	return v.assets[assetKey(policy, asset)].amount
}

// Assets returns every (policy, asset, amount) triple with non-zero amount.
// Order is not guaranteed; callers needing canonical order must sort.
func (v Value) Assets() []struct {
	Policy PolicyId
	Asset  []byte
	Amount int64
} {
	out := make([]struct {
		Policy PolicyId
		Asset  []byte
		Amount int64
	}, 0, len(v.assets))
	for _, e := range v.assets {
		out = append(out, struct {
			Policy PolicyId
			Asset  []byte
			Amount int64
		}{e.policy, e.asset, e.amount})
	}
	return out
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	out := Value{Coin: v.Coin}
	if len(v.assets) > 0 {
		out.assets = make(map[string]assetEntry, len(v.assets))
		for k, e := range v.assets {
			cp := e
			cp.asset = append([]byte(nil), e.asset...)
			out.assets[k] = cp
		}
	}
	return out
}

// Add returns v + other.
func (v Value) Add(other Value) Value {
	out := v.Clone()
	out.Coin += other.Coin
	for _, e := range other.assets {
		out = out.WithAsset(e.policy, e.asset, e.amount)
	}
	return out
}

// Sub returns v - other. Returns an error if any resulting quantity (coin or
// asset) would go negative.
func (v Value) Sub(other Value) (Value, error) {
	out := v.Clone()
	out.Coin -= other.Coin
	if out.Coin < 0 {
		return Value{}, errors.New("cardano: coin underflow")
	}
	for _, e := range other.assets {
		out = out.WithAsset(e.policy, e.asset, -e.amount)
	}
	for _, e := range out.assets {
		if e.amount < 0 {
			return Value{}, errors.New("cardano: asset underflow")
		}
	}
	return out, nil
}

// GreaterOrEqual reports whether v has at least as much coin and at least as
// much of every asset in other.
func (v Value) GreaterOrEqual(other Value) bool {
	if v.Coin < other.Coin {
		return false
	}
	for _, e := range other.assets {
		if e.amount <= 0 {
			continue
		}
		if v.AssetAmount(e.policy, e.asset) < e.amount {
			return false
		}
	}
	return true
}

// IsZero reports whether v has no lovelace and no assets.
func (v Value) IsZero() bool {
	if v.Coin != 0 {
		return false
	}
	for _, e := range v.assets {
		if e.amount != 0 {
			return false
		}
	}
	return true
}

// HasAssets reports whether v carries any non-ada asset.
func (v Value) HasAssets() bool {
	for _, e := range v.assets {
		if e.amount != 0 {
			return true
		}
	}
	return false
}
