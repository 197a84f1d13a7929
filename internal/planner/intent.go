package planner

import (
	"github.com/rawblock/ctoken-engine/pkg/cardano"
)

// RegisterTokenIntent is the input to RegisterToken (spec §4.6.1).
type RegisterTokenIntent struct {
	RegistrarAddress      cardano.Address
	SubstandardID         string
	IssueContractTitle    string
	TransferContractTitle string
	ThirdPartyTitle       string // optional, empty when absent
	AssetNameBytes        []byte
	Quantity              int64
	RecipientAddress      *cardano.Address  // optional, defaults to registrar
	AdminPkh              []byte            // optional
	BlacklistNodePolicyID *cardano.PolicyId // optional, required for freeze-and-seize
	ChainingInput         *cardano.Outpoint // optional
}

// MintTokenIntent is the input to MintToken (spec §4.6.2).
type MintTokenIntent struct {
	PolicyID         cardano.PolicyId
	AssetNameBytes   []byte
	Quantity         int64
	RecipientAddress cardano.Address
	RegistrarAddress cardano.Address
}

// TransferTokenIntent is the input to TransferToken, both substandards
// (spec §4.6.3, §4.6.4).
type TransferTokenIntent struct {
	SubstandardID         string
	PolicyID              cardano.PolicyId
	AssetNameBytes        []byte
	Quantity              int64
	SenderStakeKeyHash    []byte
	RecipientStakeKeyHash []byte
	SenderBaseAddress     cardano.Address
	BlacklistNodePolicyID *cardano.PolicyId // required for freeze-and-seize
}

// InitBlacklistIntent is the input to InitBlacklist (spec §4.6.5).
type InitBlacklistIntent struct {
	BootstrapTxInput cardano.Outpoint
	AdminPkh         []byte
	FunderAddress    cardano.Address
}

// FreezeAddressIntent is the input to FreezeAddress (spec §4.6.6).
type FreezeAddressIntent struct {
	TargetStakeKeyHash []byte
	AdminAddress       cardano.Address
}

// SeizeIntent is the input to Seize (spec §4.6.6).
type SeizeIntent struct {
	TargetStakeKeyHash []byte
	PolicyID           cardano.PolicyId
	AssetNameBytes     []byte
	AdminAddress       cardano.Address
}
