package core

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MarketService is the broker's transactional application layer: it
// implements every buyer/seller-facing operation of §4 on top of a
// Store and the broker's signing identity. purchaseMu serializes
// Purchase end to end (§4.4, §5) so two concurrent buyers racing for
// the same lineage tip cannot both observe it as available.
type MarketService struct {
	store      Store
	brokerKey  *BrokerCache
	purchaseMu sync.Mutex
	log        *zap.Logger
}

// NewMarketService wires a MarketService over store, signing with the
// broker identity cached in cache. log may be nil, in which case a
// no-op logger is used.
func NewMarketService(store Store, cache *BrokerCache, log *zap.Logger) *MarketService {
	if log == nil {
		log = zap.NewNop()
	}
	return &MarketService{store: store, brokerKey: cache, log: log}
}

// AddOffer implements §4.3: it validates and persists a seller-signed
// lineage root, then mints the broker-signed successor that buyers
// actually see as "available" (an offer is never itself both
// seller-signed and listed for sale — the broker always re-signs
// before listing).
func (m *MarketService) AddOffer(root Offer) (*Offer, error) {
	tx := m.store.Begin()
	defer tx.Rollback()

	root.Deprecates = nil
	if err := root.ValidateInvariants(); err != nil {
		return nil, err
	}
	sellerCert, err := ASCertificate(tx, root.IAID)
	if err != nil {
		return nil, err
	}
	if err := SignatureValidateBytes(sellerCert, root.Signature, root.SerializeToBytes(false)); err != nil {
		return nil, err
	}
	root.ID = nextOfferID(tx)
	if err := PutOffer(tx, &root); err != nil {
		return nil, err
	}

	listed, err := m.signSuccessor(tx, &root)
	if err != nil {
		return nil, err
	}
	if err := PutOffer(tx, listed); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	m.log.Info("offer added", zap.String("iaid", root.IAID), zap.Int64("root_id", root.ID), zap.Int64("listed_id", listed.ID))
	return listed, nil
}

// signSuccessor clones src into a broker-signed successor with a new
// ID and Deprecates pointer. The clone's Signature field is cleared
// before signing since the signed bytes never include the signature
// itself (§6).
func (m *MarketService) signSuccessor(tx *Tx, src *Offer) (*Offer, error) {
	_, key, err := m.brokerKey.Get(tx)
	if err != nil {
		return nil, err
	}
	next := src.Clone()
	next.Signature = nil
	pred := src.ID
	next.Deprecates = &pred
	next.ID = nextOfferID(tx)
	sigBytes, err := SignatureCreateBytes(key, next.SerializeToBytes(false))
	if err != nil {
		return nil, err
	}
	next.Signature = sigBytes
	return next, nil
}

// ListOffers returns every available offer (every lineage tip) whose
// window covers asOf (§4.6). Pass the zero time to skip the window
// filter and list every available offer regardless of validity period.
func (m *MarketService) ListOffers(asOf time.Time) ([]*Offer, error) {
	tx := m.store.Begin()
	defer tx.Rollback()

	var out []*Offer
	var iterErr error
	tx.Iterate("offer:", func(key string, value []byte) bool {
		var o Offer
		if err := json.Unmarshal(value, &o); err != nil {
			iterErr = err
			return false
		}
		if !IsAvailable(tx, &o) {
			return true
		}
		if !asOf.IsZero() && (asOf.Before(o.NotBefore) || !asOf.Before(o.NotAfter)) {
			return true
		}
		cp := o
		out = append(out, &cp)
		return true
	})
	if iterErr != nil {
		return nil, iterErr
	}
	return out, nil
}

// PurchaseResult is the outcome of a successful Purchase (§4.4 step 8).
type PurchaseResult struct {
	Contract      *Contract
	PurchaseOrder *PurchaseOrder
	SoldOffer     *Offer // the available offer actually sold (== requested unless a race already replaced it and the buyer's bytes still matched)
	Residual      *Offer // the new lineage tip; minted on every successful purchase, even when every slot of its profile is zero
}

// Purchase implements the §4.4 critical section end to end: locate the
// current lineage tip for the requested offer, confirm the buyer's
// presented bytes still match it (OFFER_STALE otherwise), run the offer
// algebra (PROFILE_UNSATISFIABLE on NONE), verify the buyer's
// signature, allocate a border-router address, mint the purchase order
// and contract, and list the signed residual offer as the new lineage
// tip (an all-zero residual is listed too).
func (m *MarketService) Purchase(requestedOfferID int64, requestedOfferBytes []byte, buyerIA, buyerBWProfile string, startingOn time.Time, buyerSignature []byte) (*PurchaseResult, error) {
	m.purchaseMu.Lock()
	defer m.purchaseMu.Unlock()

	tx := m.store.Begin()
	defer tx.Rollback()

	available, err := CurrentAvailable(tx, requestedOfferID)
	if err != nil {
		return nil, err
	}
	if string(available.SerializeToBytes(true)) != string(requestedOfferBytes) {
		return nil, newErr(KindOfferStale, "the requested offer is no longer the current available offer in its lineage")
	}

	buyerCert, err := ASCertificate(tx, buyerIA)
	if err != nil {
		return nil, err
	}
	residualProfile, ok, err := available.Purchase(buyerBWProfile, startingOn)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newErr(KindProfileUnsatisfiable, "the requested bw_profile cannot be satisfied by this offer starting at the requested time")
	}

	// The purchase order binds to the offer's canonical bytes WITHOUT
	// its signature (§6); the staleness check above already confirmed
	// requestedOfferBytes (which include the signature) equal
	// available's signed bytes, so available's own unsigned encoding
	// is exactly the prefix the buyer signed over.
	offerBytesNoSig := available.SerializeToBytes(false)
	po := &PurchaseOrder{
		OfferID:    available.ID,
		BuyerIAID:  buyerIA,
		Signature:  buyerSignature,
		BWProfile:  buyerBWProfile,
		StartingOn: startingOn,
	}
	if err := SignatureValidateBytes(buyerCert, buyerSignature, po.SerializeToBytes(offerBytesNoSig)); err != nil {
		return nil, err
	}

	brAddress, err := FindAvailableBRAddress(tx, available)
	if err != nil {
		return nil, err
	}

	po.ID = nextPurchaseOrderID(tx)
	if err := PutPurchaseOrder(tx, po); err != nil {
		return nil, err
	}

	_, brokerPrivKey, err := m.brokerKey.Get(tx)
	if err != nil {
		return nil, err
	}
	contract := &Contract{
		PurchaseOrderID: po.ID,
		Timestamp:       time.Now().UTC(),
		BRAddress:       brAddress,
	}
	contractSig, err := SignatureCreateBytes(brokerPrivKey, contract.SerializeToBytes(po.SerializeToBytes(offerBytesNoSig), buyerSignature))
	if err != nil {
		return nil, err
	}
	contract.SignatureBroker = contractSig
	contract.ID = nextContractID(tx)
	if err := PutContract(tx, contract); err != nil {
		return nil, err
	}

	var residual *Offer
	if residualProfile != "" {
		next := available.Clone()
		next.BWProfile = residualProfile
		signed, err := m.signSuccessor(tx, next)
		if err != nil {
			return nil, err
		}
		if err := PutOffer(tx, signed); err != nil {
			return nil, err
		}
		residual = signed
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	m.log.Info("purchase completed",
		zap.Int64("offer_id", available.ID),
		zap.String("buyer_iaid", buyerIA),
		zap.Int64("contract_id", contract.ID),
	)
	return &PurchaseResult{Contract: contract, PurchaseOrder: po, SoldOffer: available, Residual: residual}, nil
}

// GetContract implements §4.5: only the buyer or seller on a contract
// may retrieve it.
func (m *MarketService) GetContract(contractID int64, requesterIA string, requesterSignature []byte) (*Contract, *PurchaseOrder, *Offer, error) {
	tx := m.store.Begin()
	defer tx.Rollback()

	requesterCert, err := ASCertificate(tx, requesterIA)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := SignatureValidateBytes(requesterCert, requesterSignature, SerializeGetContractRequest(contractID, requesterIA, nil)); err != nil {
		return nil, nil, nil, err
	}

	c, err := GetContractRecord(tx, contractID)
	if err != nil {
		return nil, nil, nil, err
	}
	po, err := GetPurchaseOrder(tx, c.PurchaseOrderID)
	if err != nil {
		return nil, nil, nil, err
	}
	offer, err := GetOffer(tx, po.OfferID)
	if err != nil {
		return nil, nil, nil, err
	}
	if requesterIA != po.BuyerIAID && requesterIA != offer.IAID {
		return nil, nil, nil, newErr(KindForbidden, "requester is neither the buyer nor the seller on this contract")
	}
	return c, po, offer, nil
}
