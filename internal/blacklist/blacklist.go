// Package blacklist implements the compliance sub-protocol's append-only
// blacklist model (spec §4.5, C5): same shape as the registry (package
// registry) but with a simpler {key, next} datum, plus non-membership
// proof construction used inside transfers.
package blacklist

import (
	"bytes"
	"sort"

	"github.com/rawblock/ctoken-engine/internal/engineerr"
	"github.com/rawblock/ctoken-engine/pkg/cardano"
)

// SentinelTerminator is the tail's "next" value: 30 bytes of 0xFF (spec §3).
var SentinelTerminator = bytes.Repeat([]byte{0xFF}, 30)

// Node is the datum of one blacklist UTxO: just {key, next} (spec §3
// BlacklistNode). Key is empty for the head sentinel.
type Node struct {
	Key  []byte
	Next []byte

	Outpoint cardano.Outpoint
}

func (n Node) isHead() bool { return len(n.Key) == 0 }
func (n Node) isTail() bool { return bytes.Equal(n.Next, SentinelTerminator) }

// View is a validated, in-memory snapshot of the on-chain blacklist linked
// list (spec §4.5).
type View struct {
	byKey   map[string]Node
	ordered []Node
}

// Load parses and validates nodes, applying the same invariants as the
// registry's Load (one head, one tail, sorted, unique keys, connected).
func Load(nodes []Node) (*View, error) {
	byKey := make(map[string]Node, len(nodes))
	heads, tails := 0, 0

	for _, n := range nodes {
		k := string(n.Key)
		if _, dup := byKey[k]; dup {
			return nil, engineerr.New(engineerr.RegistryInconsistent, "duplicate blacklist key")
		}
		byKey[k] = n
		if n.isHead() {
			heads++
		}
		if n.isTail() {
			tails++
		}
	}
	if heads != 1 {
		return nil, engineerr.New(engineerr.RegistryInconsistent, "blacklist must have exactly one head")
	}
	if tails != 1 {
		return nil, engineerr.New(engineerr.RegistryInconsistent, "blacklist must have exactly one tail")
	}
	for _, a := range nodes {
		if a.isTail() {
			continue
		}
		b, ok := byKey[string(a.Next)]
		if !ok {
			return nil, engineerr.New(engineerr.RegistryInconsistent, "dangling next pointer in blacklist")
		}
		if bytes.Compare(a.Key, b.Key) >= 0 {
			return nil, engineerr.New(engineerr.RegistryInconsistent, "blacklist nodes out of order")
		}
	}

	ordered := make([]Node, len(nodes))
	copy(ordered, nodes)
	sort.Slice(ordered, func(i, j int) bool { return bytes.Compare(ordered[i].Key, ordered[j].Key) < 0 })

	return &View{byKey: byKey, ordered: ordered}, nil
}

// Lookup returns the node with the given key, if present.
func (v *View) Lookup(key []byte) (Node, bool) {
	n, ok := v.byKey[string(key)]
	return n, ok
}

// LocatePredecessor returns the node p such that p.Key < key < p.Next
// (spec §4.5, shared shape with registry). Fails with Blacklisted if key is
// already a member — used by FreezeAddress to reject a no-op insertion.
func (v *View) LocatePredecessor(key []byte) (Node, error) {
	if _, exists := v.byKey[string(key)]; exists {
		return Node{}, engineerr.New(engineerr.Blacklisted, "key already blacklisted")
	}
	for _, n := range v.ordered {
		if bytes.Compare(n.Key, key) < 0 && bytes.Compare(key, n.Next) < 0 {
			return n, nil
		}
	}
	return Node{}, engineerr.New(engineerr.RegistryInconsistent, "no predecessor found in blacklist")
}

// NonMembershipProof returns the unique node n with n.Key < pkh < n.Next
// (spec §4.5). Its presence as a reference input proves pkh is absent.
// Fails with Blacklisted if pkh equals any node's key.
func (v *View) NonMembershipProof(pkh []byte) (Node, error) {
	if _, exists := v.byKey[string(pkh)]; exists {
		return Node{}, engineerr.New(engineerr.Blacklisted, "sender is blacklisted")
	}
	for _, n := range v.ordered {
		if bytes.Compare(n.Key, pkh) < 0 && bytes.Compare(pkh, n.Next) < 0 {
			return n, nil
		}
	}
	return Node{}, engineerr.New(engineerr.RegistryInconsistent, "no non-membership proof found")
}

// Nodes returns every node in sorted (Key-ascending) order.
func (v *View) Nodes() []Node {
	out := make([]Node, len(v.ordered))
	copy(out, v.ordered)
	return out
}

// Insertion mirrors registry.Insertion for the simpler blacklist datum.
type Insertion struct {
	UpdatedPredecessor Node
	NewNode            Node
}

// PlanInsertion computes the Insertion for inserting key between
// predecessor p and its existing successor.
func PlanInsertion(p Node, key []byte) Insertion {
	updated := p
	updated.Next = append([]byte(nil), key...)

	n := Node{
		Key:  append([]byte(nil), key...),
		Next: append([]byte(nil), p.Next...),
	}
	return Insertion{UpdatedPredecessor: updated, NewNode: n}
}
