package core

import (
	"google.golang.org/protobuf/types/known/timestamppb"
)

// This file declares the fixed §6 RPC message shapes as plain Go
// structs. The protobuf wire schema itself is an external contract
// (spec §1) generated elsewhere; these types exist so a generated
// MarketController server can marshal to/from the domain layer without
// this package depending on generated code. Field names/numbers are
// not modeled here (that belongs to the .proto); only the shape and
// the use of the real well-known Timestamp type for time fields.

// OfferSpecificationMsg mirrors market_pb2.OfferSpecification.
type OfferSpecificationMsg struct {
	IAID              string
	IsCore            bool
	NotBefore         *timestamppb.Timestamp
	NotAfter          *timestamppb.Timestamp
	ReachablePaths    string
	QosClass          int32
	PricePerUnit      float64
	BWProfile         string
	BRAddressTemplate string
	BRMTU             int32
	BRLinkTo          string
	Signature         []byte
}

// OfferMsg mirrors market_pb2.Offer.
type OfferMsg struct {
	ID    int64
	Specs OfferSpecificationMsg
}

// PurchaseRequestMsg mirrors market_pb2.PurchaseRequest. The newer
// wire schema embeds the full offer (Offer, non-nil) rather than just
// OfferID, enabling the staleness detection of §4.4 step 2.
type PurchaseRequestMsg struct {
	Offer      *OfferMsg
	OfferID    int64
	BuyerIAID  string
	Signature  []byte
	BWProfile  string
	StartingOn *timestamppb.Timestamp
}

// ContractMsg mirrors market_pb2.Contract.
type ContractMsg struct {
	ContractID        int64
	ContractTimestamp *timestamppb.Timestamp
	ContractSignature []byte
	Offer             OfferSpecificationMsg
	BuyerIAID         string
	BuyerStartingOn   *timestamppb.Timestamp
	BuyerBWProfile    string
	BuyerSignature    []byte
	BRAddress         string
}

// GetContractRequestMsg mirrors market_pb2.GetContractRequest.
type GetContractRequestMsg struct {
	ContractID         int64
	RequesterIAID      string
	RequesterSignature []byte
}

// OfferToWire projects a domain Offer into its wire message.
func OfferToWire(o *Offer) *OfferMsg {
	return &OfferMsg{
		ID: o.ID,
		Specs: OfferSpecificationMsg{
			IAID:              o.IAID,
			IsCore:            o.IsCore,
			NotBefore:         timestamppb.New(o.NotBefore),
			NotAfter:          timestamppb.New(o.NotAfter),
			ReachablePaths:    o.ReachablePaths,
			QosClass:          o.QosClass,
			PricePerUnit:      o.PricePerUnit,
			BWProfile:         o.BWProfile,
			BRAddressTemplate: o.BRAddressTemplate,
			BRMTU:             o.BRMTU,
			BRLinkTo:          o.BRLinkTo,
			Signature:         o.Signature,
		},
	}
}

// OfferFromWire reconstructs a domain Offer from its wire message
// (ID included; Deprecates is never carried on the wire and is left
// nil — it is server-assigned lineage state).
func OfferFromWire(m *OfferMsg) *Offer {
	return &Offer{
		ID:                m.ID,
		IAID:              m.Specs.IAID,
		IsCore:            m.Specs.IsCore,
		Signature:         m.Specs.Signature,
		NotBefore:         m.Specs.NotBefore.AsTime(),
		NotAfter:          m.Specs.NotAfter.AsTime(),
		ReachablePaths:    m.Specs.ReachablePaths,
		QosClass:          m.Specs.QosClass,
		PricePerUnit:      m.Specs.PricePerUnit,
		BWProfile:         m.Specs.BWProfile,
		BRAddressTemplate: m.Specs.BRAddressTemplate,
		BRMTU:             m.Specs.BRMTU,
		BRLinkTo:          m.Specs.BRLinkTo,
	}
}

// ContractToWire assembles the full contract projection §4.5 returns,
// embedding the offer specification the contract was minted against.
func ContractToWire(c *Contract, po *PurchaseOrder, offer *Offer) *ContractMsg {
	return &ContractMsg{
		ContractID:        c.ID,
		ContractTimestamp: timestamppb.New(c.Timestamp),
		ContractSignature: c.SignatureBroker,
		Offer: OfferSpecificationMsg{
			IAID:              offer.IAID,
			IsCore:            offer.IsCore,
			NotBefore:         timestamppb.New(offer.NotBefore),
			NotAfter:          timestamppb.New(offer.NotAfter),
			ReachablePaths:    offer.ReachablePaths,
			QosClass:          offer.QosClass,
			PricePerUnit:      offer.PricePerUnit,
			BWProfile:         offer.BWProfile,
			BRAddressTemplate: offer.BRAddressTemplate,
			BRMTU:             offer.BRMTU,
			BRLinkTo:          offer.BRLinkTo,
			Signature:         offer.Signature,
		},
		BuyerIAID:       po.BuyerIAID,
		BuyerStartingOn: timestamppb.New(po.StartingOn),
		BuyerBWProfile:  po.BWProfile,
		BuyerSignature:  po.Signature,
		BRAddress:       c.BRAddress,
	}
}
