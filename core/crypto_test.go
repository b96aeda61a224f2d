package core

import "testing"

func TestGenerateSelfSignedIdentityRoundTrip(t *testing.T) {
	certPEM, keyPEM, err := GenerateSelfSignedIdentity("broker", 24*3600*1e9)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	cert, err := LoadCertificatePEM(certPEM)
	if err != nil {
		t.Fatalf("load cert: %v", err)
	}
	if _, err := LoadPrivateKeyPEM(keyPEM); err != nil {
		t.Fatalf("load key: %v", err)
	}
	cn, err := CommonName(cert)
	if err != nil {
		t.Fatalf("common name: %v", err)
	}
	if cn != "broker" {
		t.Fatalf("common name = %q, want broker", cn)
	}
}

func TestSignatureCreateAndValidate(t *testing.T) {
	certPEM, keyPEM, err := GenerateSelfSignedIdentity("1-ff00:0:110", 24*3600*1e9)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	key, err := LoadPrivateKeyPEM(keyPEM)
	if err != nil {
		t.Fatalf("load key: %v", err)
	}
	cert, err := LoadCertificatePEM(certPEM)
	if err != nil {
		t.Fatalf("load cert: %v", err)
	}

	data := []byte("hello broker")
	sig, err := SignatureCreate(key, data)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := SignatureValidate(cert, sig, data); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := SignatureValidate(cert, sig, []byte("different data")); err == nil {
		t.Fatalf("expected validation failure for mismatched data")
	}
	if err := SignatureValidate(cert, "not-base64!!", data); err == nil {
		t.Fatalf("expected validation failure for malformed signature encoding")
	}
}

func TestSignatureBytesRoundTrip(t *testing.T) {
	certPEM, keyPEM, err := GenerateSelfSignedIdentity("broker", 24*3600*1e9)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	key, err := LoadPrivateKeyPEM(keyPEM)
	if err != nil {
		t.Fatalf("load key: %v", err)
	}
	cert, err := LoadCertificatePEM(certPEM)
	if err != nil {
		t.Fatalf("load cert: %v", err)
	}

	data := []byte("some offer bytes")
	sig, err := SignatureCreateBytes(key, data)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := SignatureValidateBytes(cert, sig, data); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := SignatureValidateBytes(cert, sig, []byte("tampered")); err == nil {
		t.Fatalf("expected validation failure for tampered data")
	}
}
