package core

import (
	"fmt"
	"strconv"
	"time"
)

// Contract is a broker-signed record of a completed purchase (§3).
type Contract struct {
	ID              int64     `json:"id"`
	PurchaseOrderID int64     `json:"purchase_order_id"`
	Timestamp       time.Time `json:"timestamp"`
	BRAddress       string    `json:"br_address"`
	SignatureBroker []byte    `json:"signature_broker"`
}

func contractKey(id int64) string { return "contract:" + strconv.FormatInt(id, 10) }

const contractByPOPrefix = "contract_by_po:"

func contractByPOKey(poID int64) string { return contractByPOPrefix + strconv.FormatInt(poID, 10) }

const contractIDCounterKey = "meta:next_contract_id"

func nextContractID(tx *Tx) int64 {
	var next int64 = 1
	if raw, ok := tx.Get(contractIDCounterKey); ok {
		next, _ = strconv.ParseInt(string(raw), 10, 64)
	}
	tx.Put(contractIDCounterKey, []byte(strconv.FormatInt(next+1, 10)))
	return next
}

// SerializeToBytes builds the canonical contract byte string, bound
// to the purchase order's canonical bytes and the buyer's signature
// over it (§4.4 step 7, §6).
func (c *Contract) SerializeToBytes(purchaseOrderBytes, buyerSignature []byte) []byte {
	return SerializeContractFields(purchaseOrderBytes, buyerSignature, c.Timestamp.Unix(), c.BRAddress)
}

// PutContract persists c and its one-to-one purchase-order index.
func PutContract(tx *Tx, c *Contract) error {
	if err := tx.PutJSON(contractKey(c.ID), c); err != nil {
		return err
	}
	tx.Put(contractByPOKey(c.PurchaseOrderID), []byte(strconv.FormatInt(c.ID, 10)))
	return nil
}

// GetContractRecord fetches a contract by ID.
func GetContractRecord(tx *Tx, id int64) (*Contract, error) {
	var c Contract
	ok, err := tx.GetJSON(contractKey(id), &c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newErr(KindNotFound, fmt.Sprintf("contract %d not found", id))
	}
	return &c, nil
}

// GetContractByPurchaseOrder looks up the contract minted for poID.
func GetContractByPurchaseOrder(tx *Tx, poID int64) (*Contract, error) {
	raw, ok := tx.Get(contractByPOKey(poID))
	if !ok {
		return nil, newErr(KindNotFound, fmt.Sprintf("no contract for purchase order %d", poID))
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return nil, wrapErr(KindInternal, "decode contract index", err)
	}
	return GetContractRecord(tx, id)
}
