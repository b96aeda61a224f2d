package core

import (
	"crypto/x509"
	"fmt"
)

// AS is an autonomous system participating in the marketplace, either
// as a seller, a buyer, or both (§3).
type AS struct {
	IAID           string `json:"iaid"`
	CertificatePEM string `json:"certificate_pem"`
	Name           string `json:"name"`
}

func asKey(iaid string) string { return "as:" + iaid }

// CreateAS validates and persists a new AS. Invariant: the
// certificate's Common Name must equal iaid. ASes are created once by
// an admin command and never silently replaced — CreateAS fails if
// one already exists for iaid unless force is set.
func CreateAS(tx *Tx, a AS, force bool) error {
	if err := ValidateIA(a.IAID); err != nil {
		return err
	}
	cert, err := LoadCertificatePEM(a.CertificatePEM)
	if err != nil {
		return err
	}
	cn, err := CommonName(cert)
	if err != nil {
		return err
	}
	if cn != a.IAID {
		return newErr(KindInvalidArgument, fmt.Sprintf("certificate CN %q does not match iaid %q", cn, a.IAID))
	}
	if !force {
		if ok, _ := tx.GetJSON(asKey(a.IAID), &AS{}); ok {
			return newErr(KindConflict, fmt.Sprintf("AS %s already exists", a.IAID))
		}
	}
	return tx.PutJSON(asKey(a.IAID), &a)
}

// GetAS fetches an AS by its IA id.
func GetAS(tx *Tx, iaid string) (*AS, error) {
	var a AS
	ok, err := tx.GetJSON(asKey(iaid), &a)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newErr(KindNotFound, fmt.Sprintf("AS %s not found", iaid))
	}
	return &a, nil
}

// ASCertificate loads and returns the X.509 certificate for iaid.
func ASCertificate(tx *Tx, iaid string) (*x509.Certificate, error) {
	a, err := GetAS(tx, iaid)
	if err != nil {
		return nil, err
	}
	cert, err := LoadCertificatePEM(a.CertificatePEM)
	if err != nil {
		return nil, err
	}
	return cert, nil
}
