package core

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"time"
)

// LoadCertificate parses data as a PEM or DER-encoded X.509
// certificate. data may be raw PEM bytes or a DER blob.
func LoadCertificate(data []byte) (*x509.Certificate, error) {
	if block, _ := pem.Decode(data); block != nil {
		data = block.Bytes
	}
	cert, err := x509.ParseCertificate(data)
	if err != nil {
		return nil, wrapErr(KindInvalidArgument, "not a valid DER or PEM certificate", err)
	}
	return cert, nil
}

// LoadCertificatePEM is a convenience wrapper for PEM text.
func LoadCertificatePEM(pemStr string) (*x509.Certificate, error) {
	return LoadCertificate([]byte(pemStr))
}

// LoadPrivateKey parses data as a PEM or DER-encoded PKCS#1/PKCS#8 RSA
// private key.
func LoadPrivateKey(data []byte) (*rsa.PrivateKey, error) {
	if block, _ := pem.Decode(data); block != nil {
		data = block.Bytes
	}
	if key, err := x509.ParsePKCS1PrivateKey(data); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(data)
	if err != nil {
		return nil, wrapErr(KindInvalidArgument, "not a valid DER or PEM private key", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, newErr(KindInvalidArgument, "private key is not RSA")
	}
	return rsaKey, nil
}

// LoadPrivateKeyPEM is a convenience wrapper for PEM text.
func LoadPrivateKeyPEM(pemStr string) (*rsa.PrivateKey, error) {
	return LoadPrivateKey([]byte(pemStr))
}

// CertificateToPEM renders cert as a PEM block.
func CertificateToPEM(cert *x509.Certificate) string {
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}))
}

// KeyToPEM renders key as a PKCS#1 PEM block.
func KeyToPEM(key *rsa.PrivateKey) string {
	return string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}))
}

// GenerateSelfSignedIdentity creates a fresh RSA key pair and a
// self-signed X.509 certificate (issuer == subject) with the given
// common name, valid from now for validity. Used by the broker
// bootstrap command to mint the marketplace authority's own identity,
// the way the original tooling's create_key()/create_certificate()
// pair did.
func GenerateSelfSignedIdentity(commonName string, validity time.Duration) (certPEM, keyPEM string, err error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return "", "", wrapErr(KindInternal, "generate key", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return "", "", wrapErr(KindInternal, "generate serial number", err)
	}
	name := pkix.Name{
		Country:            []string{"CH"},
		Organization:       []string{"Netsec"},
		OrganizationalUnit: []string{"ETH"},
		CommonName:         commonName,
	}
	notBefore := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject:      name,
		Issuer:       name,
		NotBefore:    notBefore,
		NotAfter:     notBefore.Add(validity),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return "", "", wrapErr(KindInternal, "create certificate", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return "", "", wrapErr(KindInternal, "parse generated certificate", err)
	}
	return CertificateToPEM(cert), KeyToPEM(key), nil
}

// CommonName returns the certificate's single Common Name, erroring if
// there isn't exactly one (§3 AS invariant: CN == iaid).
func CommonName(cert *x509.Certificate) (string, error) {
	cnCount := 0
	for _, atv := range cert.Subject.Names {
		if atv.Type.Equal(asn1.ObjectIdentifier{2, 5, 4, 3}) {
			cnCount++
		}
	}
	if cnCount > 1 {
		return "", newErr(KindInvalidArgument, "certificate has more than one common name")
	}
	if cert.Subject.CommonName == "" {
		return "", newErr(KindInvalidArgument, "certificate has no common name")
	}
	return cert.Subject.CommonName, nil
}

// signPSS is the exact padding scheme required by §6: RSA-PSS, MGF1
// with SHA-256, digest SHA-256, salt length equal to the maximum the
// key size allows (mirrors Python cryptography's padding.PSS.MAX_LENGTH).
func signPSS(key *rsa.PrivateKey, data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	sig, err := rsa.SignPSS(rand.Reader, key, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		return nil, wrapErr(KindInternal, "sign", err)
	}
	return sig, nil
}

func verifyPSS(pub *rsa.PublicKey, sig, data []byte) error {
	digest := sha256.Sum256(data)
	err := rsa.VerifyPSS(pub, crypto.SHA256, digest[:], sig, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		return newErr(KindSignatureInvalid, "invalid signature")
	}
	return nil
}

// SignatureCreate signs data with key and returns the standard-base64
// encoded signature, as placed on the wire per §6.
func SignatureCreate(key *rsa.PrivateKey, data []byte) (string, error) {
	sig, err := signPSS(key, data)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// SignatureCreateBytes signs data with key and returns the raw
// signature bytes, for callers that store signatures decoded rather
// than as base64 text (e.g. Offer.Signature, Contract.SignatureBroker).
func SignatureCreateBytes(key *rsa.PrivateKey, data []byte) ([]byte, error) {
	return signPSS(key, data)
}

// SignatureValidate decodes b64sig from standard base64 and verifies it
// against data under cert's public key.
func SignatureValidate(cert *x509.Certificate, b64sig string, data []byte) error {
	sig, err := base64.StdEncoding.DecodeString(b64sig)
	if err != nil {
		return newErr(KindSignatureInvalid, "invalid signature encoding")
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return newErr(KindInvalidArgument, "certificate does not hold an RSA public key")
	}
	return verifyPSS(pub, sig, data)
}

// SignatureValidateBytes is like SignatureValidate but takes a raw
// (already-decoded) signature, used when the signature bytes were
// never base64-framed (e.g. freshly produced, pre-wire values).
func SignatureValidateBytes(cert *x509.Certificate, sig, data []byte) error {
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return newErr(KindInvalidArgument, "certificate does not hold an RSA public key")
	}
	return verifyPSS(pub, sig, data)
}
