package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// BWPeriod is the system-wide bandwidth slicing period (§3, §6).
const BWPeriod = 600 * time.Second

// Valid br_link_to values (§3).
const (
	LinkCore   = "CORE"
	LinkParent = "PARENT"
	LinkPeer   = "PEER"
)

func validLinkTo(s string) bool {
	return s == LinkCore || s == LinkParent || s == LinkPeer
}

// Offer is a time-sliced bandwidth advertisement (§3). Offers are
// never deleted: DeleteOffer always returns an error so past
// contracts stay verifiable.
type Offer struct {
	ID                int64     `json:"id"`
	IAID              string    `json:"iaid"`
	IsCore            bool      `json:"is_core"`
	Signature         []byte    `json:"signature"`
	NotBefore         time.Time `json:"notbefore"`
	NotAfter          time.Time `json:"notafter"`
	ReachablePaths    string    `json:"reachable_paths"`
	QosClass          int32     `json:"qos_class"`
	PricePerUnit      float64   `json:"price_per_unit"`
	BWProfile         string    `json:"bw_profile"`
	BRAddressTemplate string    `json:"br_address_template"`
	BRMTU             int32     `json:"br_mtu"`
	BRLinkTo          string    `json:"br_link_to"`
	Deprecates        *int64    `json:"deprecates"` // predecessor this offer supersedes, nil for a lineage root
}

func offerKey(id int64) string { return "offer:" + strconv.FormatInt(id, 10) }

const offerIDCounterKey = "meta:next_offer_id"

// nextOfferID allocates the next monotonic offer id.
func nextOfferID(tx *Tx) int64 {
	var next int64 = 1
	if raw, ok := tx.Get(offerIDCounterKey); ok {
		next, _ = strconv.ParseInt(string(raw), 10, 64)
	}
	tx.Put(offerIDCounterKey, []byte(strconv.FormatInt(next+1, 10)))
	return next
}

// ParseBWProfile parses a comma-separated list of non-negative
// integers.
func ParseBWProfile(csv string) ([]int64, error) {
	parts := strings.Split(csv, ",")
	out := make([]int64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, wrapErr(KindInvalidArgument, fmt.Sprintf("invalid bw_profile %q", csv), err)
		}
		out[i] = v
	}
	return out, nil
}

// FormatBWProfile renders a profile back to CSV.
func FormatBWProfile(profile []int64) string {
	parts := make([]string, len(profile))
	for i, v := range profile {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, ",")
}

// ValidateInvariants checks every §3 Offer invariant except signature
// verification (which needs the signer's certificate and is done by
// the caller).
func (o *Offer) ValidateInvariants() error {
	if err := ValidateIA(o.IAID); err != nil {
		return err
	}
	if !o.NotAfter.After(o.NotBefore) {
		return newErr(KindInvalidArgument, "notafter must happen after notbefore")
	}
	lifespan := o.NotAfter.Sub(o.NotBefore)
	if lifespan%BWPeriod != 0 {
		return newErr(KindInvalidArgument, fmt.Sprintf("the life span of the offer must be a multiple of BW_PERIOD (%s)", BWPeriod))
	}
	profile, err := ParseBWProfile(o.BWProfile)
	if err != nil {
		return err
	}
	wantLen := int64(lifespan / BWPeriod)
	if int64(len(profile)) != wantLen {
		return newErr(KindInvalidArgument, fmt.Sprintf("bw_profile should contain exactly %d values; contains %d", wantLen, len(profile)))
	}
	for _, v := range profile {
		if v < 0 {
			return newErr(KindInvalidArgument, "bw_profile values must be non-negative")
		}
	}
	if _, err := ParseIPPortRange(o.BRAddressTemplate); err != nil {
		return err
	}
	if o.BRMTU < 100 || o.BRMTU > 65534 {
		return newErr(KindInvalidArgument, fmt.Sprintf("br_mtu out of range [100,65534]: %d", o.BRMTU))
	}
	if !validLinkTo(o.BRLinkTo) {
		return newErr(KindInvalidArgument, fmt.Sprintf("invalid br_link_to %q", o.BRLinkTo))
	}
	return nil
}

// SerializeToBytes returns the canonical byte encoding of o.
// includeSignature controls whether o.Signature is appended (false
// when producing the bytes to sign or compare pre-signature).
func (o *Offer) SerializeToBytes(includeSignature bool) []byte {
	var sig []byte
	if includeSignature {
		sig = o.Signature
	}
	return SerializeOfferFields(
		o.IAID,
		o.NotBefore.Unix(),
		o.NotAfter.Unix(),
		o.ReachablePaths,
		o.QosClass,
		o.PricePerUnit,
		o.BWProfile,
		o.BRAddressTemplate,
		o.BRMTU,
		o.BRLinkTo,
		sig,
	)
}

// Clone returns a deep-enough copy suitable for deriving a successor
// offer (new ID, new Deprecates, new Signature are set by the caller).
func (o *Offer) Clone() *Offer {
	c := *o
	sig := make([]byte, len(o.Signature))
	copy(sig, o.Signature)
	c.Signature = sig
	return &c
}

// PutOffer persists o (insert or overwrite by ID — callers never
// reuse an ID for a different offer in practice, since IDs are
// allocated monotonically).
func PutOffer(tx *Tx, o *Offer) error {
	return tx.PutJSON(offerKey(o.ID), o)
}

// GetOffer fetches an offer by ID.
func GetOffer(tx *Tx, id int64) (*Offer, error) {
	var o Offer
	ok, err := tx.GetJSON(offerKey(id), &o)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newErr(KindNotFound, fmt.Sprintf("offer %d not found", id))
	}
	return &o, nil
}

// DeleteOffer always fails: offers are never deleted so that past
// contracts remain verifiable (§3, §7, §8).
func DeleteOffer(tx *Tx, id int64) error {
	return newErr(KindInvalidArgument, "offers are never deleted")
}

// successorOf returns the offer whose Deprecates points at id, if
// any. The invariant "every predecessor has exactly one successor"
// means at most one such offer exists.
func successorOf(tx *Tx, id int64) (*Offer, bool) {
	var found *Offer
	tx.Iterate("offer:", func(key string, value []byte) bool {
		var o Offer
		if err := json.Unmarshal(value, &o); err != nil {
			return true
		}
		if o.Deprecates != nil && *o.Deprecates == id {
			found = &o
			return false
		}
		return true
	})
	if found == nil {
		return nil, false
	}
	return found, true
}

// CurrentAvailable walks forward from startID through the successor
// chain and returns the lineage's tip: the unique offer with no
// successor (§4.4 step 1).
func CurrentAvailable(tx *Tx, startID int64) (*Offer, error) {
	id := startID
	for {
		succ, ok := successorOf(tx, id)
		if !ok {
			break
		}
		id = succ.ID
	}
	return GetOffer(tx, id)
}

// IsAvailable reports whether o has no successor.
func IsAvailable(tx *Tx, o *Offer) bool {
	_, ok := successorOf(tx, o.ID)
	return !ok
}

// Purchase implements the offer algebra of §4.2. It returns the
// residual profile (CSV) and true on success, or ("", false, nil) for
// the NONE outcomes the spec enumerates (misaligned start, short
// profile, negative/over-budget request, zero-volume purchase). A
// non-nil error means the inputs themselves were malformed.
func (o *Offer) Purchase(buyerProfile string, startingOn time.Time) (string, bool, error) {
	orig, err := ParseBWProfile(o.BWProfile)
	if err != nil {
		return "", false, err
	}
	want, err := ParseBWProfile(buyerProfile)
	if err != nil {
		return "", false, err
	}
	offset := startingOn.Sub(o.NotBefore)
	if offset < 0 || offset%BWPeriod != 0 {
		return "", false, nil
	}
	k := int(offset / BWPeriod)
	if len(want) > len(orig)-k {
		return "", false, nil
	}
	newVals := make([]int64, len(want))
	var total int64
	for i, w := range want {
		if w < 0 || w > orig[k+i] {
			return "", false, nil
		}
		newVals[i] = orig[k+i] - w
		total += w
	}
	if total == 0 {
		return "", false, nil
	}
	residual := make([]int64, len(orig))
	copy(residual, orig)
	copy(residual[k:k+len(newVals)], newVals)
	return FormatBWProfile(residual), true, nil
}

// FindAvailableBRAddress implements the §4.2 port walker: starting
// from offer's br_address_template, find the first predecessor with a
// sold contract (deprecates chain) and return the next free port
// after the one it used; if none, return the template's min port.
func FindAvailableBRAddress(tx *Tx, offer *Offer) (string, error) {
	rng, err := ParseIPPortRange(offer.BRAddressTemplate)
	if err != nil {
		return "", err
	}
	port := rng.MinPort
	for predID := offer.Deprecates; predID != nil; {
		pred, err := GetOffer(tx, *predID)
		if err != nil {
			return "", err
		}
		if po, ok, err := GetPurchaseOrderByOffer(tx, pred.ID); err != nil {
			return "", err
		} else if ok {
			c, err := GetContractByPurchaseOrder(tx, po.ID)
			if err != nil {
				return "", err
			}
			addr, err := ParseIPPort(c.BRAddress)
			if err != nil {
				return "", err
			}
			port = addr.Port + 1
			break
		}
		predID = pred.Deprecates
	}
	if port > rng.MaxPort {
		return "", newErr(KindResourceExhausted, fmt.Sprintf("cannot find a free port with template %s", offer.BRAddressTemplate))
	}
	return IPPort{IP: rng.IP, Port: port}.String(), nil
}
