package core

import (
	"strconv"
)

// This file is the wire-compatibility contract (§4.1, §6): the exact
// byte layouts over which RSA-PSS signatures are computed. Any change
// here breaks every signature ever minted, so it is ported byte-for-byte
// from the original Python serializer (util/serialize.py) rather than
// "improved". The canonical offer schema is pinned to the variant that
// omits is_core (Open Question (i) in spec.md §9).

// formatPrice renders a float the same way Python's "{:e}".format does:
// a six-digit mantissa and a signed, at-least-two-digit exponent.
func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'e', 6, 64)
}

// SerializeOfferFields builds the canonical byte string for an offer.
// signature is appended raw; pass nil/empty when signing (the spec
// requires "signature:" to be followed by the empty byte string when
// producing the bytes that get signed).
func SerializeOfferFields(
	iaid string,
	notbefore, notafter int64,
	reachablePaths string,
	qosClass int32,
	pricePerUnit float64,
	bwProfile string,
	brAddressTemplate string,
	brMTU int32,
	brLinkTo string,
	signature []byte,
) []byte {
	s := "ia:" + iaid + strconv.FormatInt(notbefore, 10) + strconv.FormatInt(notafter, 10) +
		"reachable:" + reachablePaths + strconv.FormatInt(int64(qosClass), 10) + formatPrice(pricePerUnit) +
		"profile:" + bwProfile + "br_address_template:" + brAddressTemplate +
		"br_mtu:" + strconv.FormatInt(int64(brMTU), 10) + "br_link_to:" + brLinkTo + "signature:"
	return append([]byte(s), signature...)
}

// SerializePurchaseOrderFields builds the canonical byte string for a
// purchase order. offerBytes is the offer's canonical encoding
// WITHOUT its signature (i.e. SerializeOfferFields(..., nil)).
func SerializePurchaseOrderFields(offerBytes []byte, bwProfile, buyerIA string, startingOn int64) []byte {
	b := append([]byte("offer:"), offerBytes...)
	b = append(b, []byte("bw_profile:"+bwProfile+"buyer:"+buyerIA+"starting_on:"+strconv.FormatInt(startingOn, 10))...)
	return b
}

// SerializeContractFields builds the canonical byte string for a
// contract.
func SerializeContractFields(purchaseOrderBytes []byte, buyerSignature []byte, timestamp int64, brAddress string) []byte {
	b := append([]byte("order:"), purchaseOrderBytes...)
	b = append(b, []byte("signature_buyer:")...)
	b = append(b, buyerSignature...)
	b = append(b, []byte("timestamp:"+strconv.FormatInt(timestamp, 10)+"br_address:"+brAddress)...)
	return b
}

// SerializeGetContractRequest builds the canonical byte string for a
// GetContractRequest. This ALSO serializes the signature, matching the
// original: pass nil when producing bytes to sign.
func SerializeGetContractRequest(contractID int64, requesterIA string, signature []byte) []byte {
	b := append([]byte("contract_id:"+strconv.FormatInt(contractID, 10)+"signature:"), signature...)
	b = append(b, []byte("requester_ia:"+requesterIA)...)
	return b
}
