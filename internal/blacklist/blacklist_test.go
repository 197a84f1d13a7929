package blacklist

import (
	"errors"
	"testing"

	"github.com/rawblock/ctoken-engine/internal/engineerr"
	"github.com/rawblock/ctoken-engine/pkg/cardano"
)

func outpoint(b byte) cardano.Outpoint {
	var o cardano.Outpoint
	o.TxHash[0] = b
	return o
}

// threeNodeScenario mirrors spec §8 scenario 6: blacklist nodes at keys
// "" and "0x50...50", the second one's next being the 0xFF*30 terminator.
func threeNodeScenario() []Node {
	fifty := make([]byte, 28)
	for i := range fifty {
		fifty[i] = 0x50
	}
	head := Node{Key: nil, Next: fifty, Outpoint: outpoint(1)}
	mid := Node{Key: fifty, Next: SentinelTerminator, Outpoint: outpoint(2)}
	return []Node{head, mid}
}

func TestNonMembershipProofScenario(t *testing.T) {
	v, err := Load(threeNodeScenario())
	if err != nil {
		t.Fatal(err)
	}
	thirty := make([]byte, 28)
	for i := range thirty {
		thirty[i] = 0x30
	}
	proof, err := v.NonMembershipProof(thirty)
	if err != nil {
		t.Fatal(err)
	}
	if len(proof.Key) != 0 {
		t.Fatal("expected the head node to be the proof for a key between the head and the 0x50... node")
	}
}

func TestNonMembershipProofRejectsMember(t *testing.T) {
	v, err := Load(threeNodeScenario())
	if err != nil {
		t.Fatal(err)
	}
	fifty := make([]byte, 28)
	for i := range fifty {
		fifty[i] = 0x50
	}
	_, err = v.NonMembershipProof(fifty)
	var e *engineerr.Error
	if !errors.As(err, &e) || e.Kind != engineerr.Blacklisted {
		t.Fatalf("expected Blacklisted, got %v", err)
	}
}

func TestLocatePredecessorRejectsExistingMember(t *testing.T) {
	v, err := Load(threeNodeScenario())
	if err != nil {
		t.Fatal(err)
	}
	fifty := make([]byte, 28)
	for i := range fifty {
		fifty[i] = 0x50
	}
	_, err = v.LocatePredecessor(fifty)
	var e *engineerr.Error
	if !errors.As(err, &e) || e.Kind != engineerr.Blacklisted {
		t.Fatalf("expected Blacklisted, got %v", err)
	}
}

func TestPlanInsertion(t *testing.T) {
	v, err := Load(threeNodeScenario())
	if err != nil {
		t.Fatal(err)
	}
	thirty := make([]byte, 28)
	for i := range thirty {
		thirty[i] = 0x30
	}
	p, err := v.LocatePredecessor(thirty)
	if err != nil {
		t.Fatal(err)
	}
	ins := PlanInsertion(p, thirty)
	if string(ins.UpdatedPredecessor.Next) != string(thirty) {
		t.Fatal("expected predecessor to now point at the inserted key")
	}
}
