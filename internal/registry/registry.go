// Package registry implements the registry model (spec §4.4, C4): a logical
// view over the set of UTxOs sitting at the registry-spend address, each
// carrying a registry NFT and a RegistryNode datum forming a sorted,
// singly-linked list of registered token policies.
package registry

import (
	"bytes"
	"sort"

	"github.com/rawblock/ctoken-engine/internal/engineerr"
	"github.com/rawblock/ctoken-engine/pkg/cardano"
)

// SentinelTerminator is the tail's "next" value: 30 bytes of 0xFF (spec §3).
var SentinelTerminator = bytes.Repeat([]byte{0xFF}, 30)

// Node is the datum of one registry UTxO (spec §3 RegistryNode). Key is
// empty for the head sentinel; Next equals SentinelTerminator for the tail.
type Node struct {
	Key                  []byte
	Next                 []byte
	TransferScriptHash   []byte
	ThirdPartyScriptHash []byte
	Metadata             []byte

	Outpoint cardano.Outpoint
}

func (n Node) isHead() bool { return len(n.Key) == 0 }
func (n Node) isTail() bool { return bytes.Equal(n.Next, SentinelTerminator) }

// View is a validated, in-memory snapshot of the on-chain registry linked
// list, indexed for fast lookup (spec §4.4 load/lookup/locate_predecessor).
type View struct {
	byKey   map[string]Node
	ordered []Node // sorted by Key, head first
}

// Load takes already-parsed nodes and checks the registry invariants
// (spec §4.4 load): exactly one head, one tail, no duplicate keys, every
// a.next = b.key implies b exists and a.key < b.key.
func Load(nodes []Node) (*View, error) {
	byKey := make(map[string]Node, len(nodes))
	heads, tails := 0, 0

	for _, n := range nodes {
		k := string(n.Key)
		if _, dup := byKey[k]; dup {
			return nil, engineerr.New(engineerr.RegistryInconsistent, "duplicate registry key "+hexOrSentinel(n.Key))
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
		return nil, engineerr.New(engineerr.RegistryInconsistent, "registry must have exactly one head")
	}
	if tails != 1 {
		return nil, engineerr.New(engineerr.RegistryInconsistent, "registry must have exactly one tail")
	}

	for _, a := range nodes {
		if a.isTail() {
			continue
		}
		b, ok := byKey[string(a.Next)]
		if !ok {
			return nil, engineerr.New(engineerr.RegistryInconsistent, "dangling next pointer from "+hexOrSentinel(a.Key))
		}
		if bytes.Compare(a.Key, b.Key) >= 0 {
			return nil, engineerr.New(engineerr.RegistryInconsistent, "registry nodes out of order at "+hexOrSentinel(a.Key))
		}
	}

	ordered := make([]Node, len(nodes))
	copy(ordered, nodes)
	sort.Slice(ordered, func(i, j int) bool { return bytes.Compare(ordered[i].Key, ordered[j].Key) < 0 })

	return &View{byKey: byKey, ordered: ordered}, nil
}

func hexOrSentinel(b []byte) string {
	if len(b) == 0 {
		return "<head>"
	}
	return bytesToHex(b)
}

func bytesToHex(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = digits[c>>4]
		out[i*2+1] = digits[c&0x0F]
	}
	return string(out)
}

// Lookup returns the node with the given key, if present.
func (v *View) Lookup(policyID []byte) (Node, bool) {
	n, ok := v.byKey[string(policyID)]
	return n, ok
}

// LocatePredecessor returns the unique node p such that p.Key < key < p.Next
// (spec §4.4). Fails with AlreadyRegistered if key already has a node.
func (v *View) LocatePredecessor(key []byte) (Node, error) {
	if _, exists := v.byKey[string(key)]; exists {
		return Node{}, engineerr.New(engineerr.AlreadyRegistered, "policy already registered").WithPolicyID(hexOrSentinel(key))
	}
	for _, n := range v.ordered {
		if bytes.Compare(n.Key, key) < 0 && bytes.Compare(key, n.Next) < 0 {
			return n, nil
		}
	}
	return Node{}, engineerr.New(engineerr.RegistryInconsistent, "no predecessor found for "+hexOrSentinel(key))
}

// IndexInSortedRefs returns the position of policyID's node outpoint within
// sortedRefs, a caller-supplied canonically sorted list of reference-input
// outpoints (spec §4.4, used to build redeemer arguments).
func (v *View) IndexInSortedRefs(policyID []byte, sortedRefs []cardano.Outpoint) (int, error) {
	n, ok := v.byKey[string(policyID)]
	if !ok {
		return 0, engineerr.New(engineerr.UtxoNotFound, "registry node not found").WithPolicyID(hexOrSentinel(policyID))
	}
	for i, ref := range sortedRefs {
		if cardano.Compare(ref, n.Outpoint) == 0 {
			return i, nil
		}
	}
	return 0, engineerr.New(engineerr.UtxoNotFound, "registry node outpoint not in reference list").WithPolicyID(hexOrSentinel(policyID))
}

// Nodes returns every node in sorted (Key-ascending) order.
func (v *View) Nodes() []Node {
	out := make([]Node, len(v.ordered))
	copy(out, v.ordered)
	return out
}

// Insertion describes the two UTxOs produced when inserting key into the
// registry between predecessor p and its existing successor s (spec §4.4
// "Insertion semantics"): p' with p'.Next = key, and a fresh node n with
// n.Key = key, n.Next = s.Key. s itself is left untouched.
type Insertion struct {
	UpdatedPredecessor Node
	NewNode            Node
}

// PlanInsertion computes the Insertion for inserting a new node with the
// given key and script hashes, spending predecessor p (as returned by
// LocatePredecessor).
func PlanInsertion(p Node, key, transferScriptHash, thirdPartyScriptHash []byte) Insertion {
	updated := p
	updated.Next = append([]byte(nil), key...)

	n := Node{
		Key:                  append([]byte(nil), key...),
		Next:                 append([]byte(nil), p.Next...),
		TransferScriptHash:   append([]byte(nil), transferScriptHash...),
		ThirdPartyScriptHash: append([]byte(nil), thirdPartyScriptHash...),
		Metadata:             nil,
	}
	return Insertion{UpdatedPredecessor: updated, NewNode: n}
}
