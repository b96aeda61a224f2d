package core

import (
	"crypto/rsa"
	"crypto/x509"
	"sync"
)

// Broker is the singleton marketplace authority: it signs every
// available offer and every contract (§3).
type Broker struct {
	CertificatePEM string `json:"certificate_pem"`
	KeyPEM         string `json:"key_pem"`
}

const brokerKey = "broker:singleton"

// CreateBroker persists the singleton broker row. At most one broker
// row may ever exist (§3 invariant); mutation invalidates the
// process-wide cache.
func CreateBroker(tx *Tx, b Broker, cache *BrokerCache) error {
	var existing Broker
	if ok, _ := tx.GetJSON(brokerKey, &existing); ok {
		return newErr(KindConflict, "a broker already exists: at most one broker row is allowed")
	}
	if _, err := LoadCertificatePEM(b.CertificatePEM); err != nil {
		return err
	}
	if _, err := LoadPrivateKeyPEM(b.KeyPEM); err != nil {
		return err
	}
	if err := tx.PutJSON(brokerKey, &b); err != nil {
		return err
	}
	if cache != nil {
		cache.Invalidate()
	}
	return nil
}

// RemoveBroker deletes the singleton broker row and invalidates the
// cache. Unlike Offer, the Broker row is administrative state, not a
// verifiable historical record, so removal is permitted.
func RemoveBroker(tx *Tx, cache *BrokerCache) error {
	tx.Delete(brokerKey)
	if cache != nil {
		cache.Invalidate()
	}
	return nil
}

// GetBroker loads the singleton broker row. More than one broker row
// present is a fatal invariant violation (§4.9) — this store's schema
// makes that structurally impossible (single fixed key), but a real
// relational persistence layer must enforce it with a uniqueness
// constraint or startup check.
func GetBroker(tx *Tx) (*Broker, error) {
	var b Broker
	ok, err := tx.GetJSON(brokerKey, &b)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newErr(KindNotFound, "no broker configured")
	}
	return &b, nil
}

// BrokerCache is a process-wide, lazily-populated memo of the
// broker's key and certificate, invalidated whenever the broker row
// is mutated (§4.9, §9 "Singleton with lazy cache"). It is passed
// into services as an explicit dependency rather than kept as package
// global mutable state.
type BrokerCache struct {
	mu   sync.Mutex
	cert *x509.Certificate
	key  *rsa.PrivateKey
}

// NewBrokerCache returns an empty cache.
func NewBrokerCache() *BrokerCache { return &BrokerCache{} }

// Invalidate drops any cached key/certificate, forcing the next Get to
// reload from the store.
func (c *BrokerCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cert = nil
	c.key = nil
}

// Get returns the broker's certificate and private key, loading and
// caching them on first use.
func (c *BrokerCache) Get(tx *Tx) (*x509.Certificate, *rsa.PrivateKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cert != nil && c.key != nil {
		return c.cert, c.key, nil
	}
	b, err := GetBroker(tx)
	if err != nil {
		return nil, nil, err
	}
	cert, err := LoadCertificatePEM(b.CertificatePEM)
	if err != nil {
		return nil, nil, err
	}
	key, err := LoadPrivateKeyPEM(b.KeyPEM)
	if err != nil {
		return nil, nil, err
	}
	c.cert, c.key = cert, key
	return cert, key, nil
}
