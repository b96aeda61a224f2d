package core

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FixtureManifest is a YAML bootstrap document: a broker identity and
// a set of AS identities to seed a fresh Store with, grounded on
// original_source's create_fixtures.py (which did the same thing with
// hardcoded Python paths). This is a supplemented feature: the
// original only ever ran fixtures from a test harness; exposing it as
// a loadable YAML document lets an operator stand up a deployment or
// integration-test environment without writing Go.
type FixtureManifest struct {
	Broker *FixtureBroker `yaml:"broker"`
	ASes   []FixtureAS    `yaml:"ases"`
}

// FixtureBroker names the PEM files for the broker's identity.
type FixtureBroker struct {
	CertificateFile string `yaml:"certificate_file"`
	KeyFile         string `yaml:"key_file"`
}

// FixtureAS names an AS identity to register.
type FixtureAS struct {
	IAID            string `yaml:"iaid"`
	CertificateFile string `yaml:"certificate_file"`
}

// LoadFixtureManifest parses a fixture manifest from path.
func LoadFixtureManifest(path string) (*FixtureManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapErr(KindInvalidArgument, fmt.Sprintf("read fixture manifest %s", path), err)
	}
	var m FixtureManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, wrapErr(KindInvalidArgument, fmt.Sprintf("parse fixture manifest %s", path), err)
	}
	return &m, nil
}

// Apply seeds store with the broker identity and every AS named in
// the manifest, in a single transaction. force lets re-applying the
// same manifest against an already-seeded store overwrite rather than
// conflict, mirroring create_fixtures.py's "tear down and recreate"
// use in integration tests.
func (m *FixtureManifest) Apply(store Store, cache *BrokerCache, force bool) error {
	tx := store.Begin()
	defer tx.Rollback()

	if m.Broker != nil {
		certPEM, err := os.ReadFile(m.Broker.CertificateFile)
		if err != nil {
			return wrapErr(KindInvalidArgument, "read broker certificate", err)
		}
		keyPEM, err := os.ReadFile(m.Broker.KeyFile)
		if err != nil {
			return wrapErr(KindInvalidArgument, "read broker key", err)
		}
		if force {
			if err := RemoveBroker(tx, cache); err != nil {
				return err
			}
		}
		if err := CreateBroker(tx, Broker{CertificatePEM: string(certPEM), KeyPEM: string(keyPEM)}, cache); err != nil {
			return err
		}
	}

	for _, a := range m.ASes {
		certPEM, err := os.ReadFile(a.CertificateFile)
		if err != nil {
			return wrapErr(KindInvalidArgument, fmt.Sprintf("read certificate for %s", a.IAID), err)
		}
		if err := CreateAS(tx, AS{IAID: a.IAID, CertificatePEM: string(certPEM), Name: a.IAID}, force); err != nil {
			return err
		}
	}

	return tx.Commit()
}
