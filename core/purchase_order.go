package core

import (
	"fmt"
	"strconv"
	"time"
)

// PurchaseOrder is a buyer-signed request binding an intent to a
// specific offer (§3). One-to-one with the offer it consumes.
type PurchaseOrder struct {
	ID         int64     `json:"id"`
	OfferID    int64     `json:"offer_id"`
	BuyerIAID  string    `json:"buyer_iaid"`
	Signature  []byte    `json:"signature"`
	BWProfile  string    `json:"bw_profile"`
	StartingOn time.Time `json:"starting_on"`
}

func purchaseOrderKey(id int64) string { return "purchase_order:" + strconv.FormatInt(id, 10) }

const poByOfferPrefix = "purchase_order_by_offer:"

func purchaseOrderByOfferKey(offerID int64) string {
	return poByOfferPrefix + strconv.FormatInt(offerID, 10)
}

const purchaseOrderIDCounterKey = "meta:next_po_id"

func nextPurchaseOrderID(tx *Tx) int64 {
	var next int64 = 1
	if raw, ok := tx.Get(purchaseOrderIDCounterKey); ok {
		next, _ = strconv.ParseInt(string(raw), 10, 64)
	}
	tx.Put(purchaseOrderIDCounterKey, []byte(strconv.FormatInt(next+1, 10)))
	return next
}

// SerializeToBytes builds the canonical purchase-order byte string,
// bound to requestedOfferBytes (the *requested* offer's canonical
// encoding without its signature), per §4.4 step 4 and §6.
func (p *PurchaseOrder) SerializeToBytes(requestedOfferBytes []byte) []byte {
	return SerializePurchaseOrderFields(requestedOfferBytes, p.BWProfile, p.BuyerIAID, p.StartingOn.Unix())
}

// PutPurchaseOrder persists p and its one-to-one offer index entry. A
// second purchase order for the same offer is a logic error the
// purchase mutex is supposed to prevent; PutPurchaseOrder still
// refuses it defensively.
func PutPurchaseOrder(tx *Tx, p *PurchaseOrder) error {
	if _, ok := tx.Get(purchaseOrderByOfferKey(p.OfferID)); ok {
		return newErr(KindConflict, fmt.Sprintf("offer %d already has a purchase order", p.OfferID))
	}
	if err := tx.PutJSON(purchaseOrderKey(p.ID), p); err != nil {
		return err
	}
	tx.Put(purchaseOrderByOfferKey(p.OfferID), []byte(strconv.FormatInt(p.ID, 10)))
	return nil
}

// GetPurchaseOrder fetches a purchase order by ID.
func GetPurchaseOrder(tx *Tx, id int64) (*PurchaseOrder, error) {
	var p PurchaseOrder
	ok, err := tx.GetJSON(purchaseOrderKey(id), &p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newErr(KindNotFound, fmt.Sprintf("purchase order %d not found", id))
	}
	return &p, nil
}

// GetPurchaseOrderByOffer looks up the (at most one) purchase order
// that consumed offerID.
func GetPurchaseOrderByOffer(tx *Tx, offerID int64) (*PurchaseOrder, bool, error) {
	raw, ok := tx.Get(purchaseOrderByOfferKey(offerID))
	if !ok {
		return nil, false, nil
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return nil, false, wrapErr(KindInternal, "decode purchase order index", err)
	}
	p, err := GetPurchaseOrder(tx, id)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}
