// Package topology mutates the local SCION-style router topology
// document in response to activated/deactivated purchase contracts
// (§4.7, §4.8). The document itself is an external collaborator's
// format; this package only reads, merges, and atomically rewrites it.
package topology

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/juagargi/esdx-scion/core"
)

// Underlay is a border-router interface's public/remote address pair.
type Underlay struct {
	Public string `json:"public"`
	Remote string `json:"remote"`
}

// Interface is one border-router interface entry.
type Interface struct {
	Underlay Underlay `json:"underlay"`
	ISDAS    string   `json:"isd_as"`
	LinkTo   string   `json:"link_to"`
	MTU      int      `json:"mtu"`
}

// BorderRouter groups a set of interfaces behind one internal address.
type BorderRouter struct {
	InternalAddr string               `json:"internal_addr"`
	Interfaces   map[string]Interface `json:"interfaces"`
}

// Document is the on-disk topology file (§3).
type Document struct {
	ISDAS         string                  `json:"isd_as"`
	BorderRouters map[string]BorderRouter `json:"border_routers"`
}

// esdxSuffix names the synthetic border router every activated
// contract is spliced into, regardless of which interface ids are
// already in use (Open Question (iii)).
const esdxSuffix = "-1111"

// ESDXRouterName derives the ESDX border router name for localIAID
// (colons replaced with underscores, per §3).
func ESDXRouterName(localIAID string) string {
	return "br" + core.FSPath(localIAID) + esdxSuffix
}

// Load reads and parses a topology document from path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.WrapError(core.KindInternal, fmt.Sprintf("read topology %s", path), err)
	}
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, core.WrapError(core.KindInternal, fmt.Sprintf("parse topology %s", path), err)
	}
	if d.BorderRouters == nil {
		d.BorderRouters = map[string]BorderRouter{}
	}
	return &d, nil
}

// Save atomically rewrites the topology document at path: pretty
// printed with a two-space indent and trailing newline (§6), written
// to a uniquely-named temp file in the same directory and renamed into
// place so a reader never observes a partial write.
func (d *Document) Save(path string) error {
	raw, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return core.WrapError(core.KindInternal, "marshal topology", err)
	}
	raw = append(raw, '\n')

	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return core.WrapError(core.KindInternal, "write topology temp file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return core.WrapError(core.KindInternal, "rename topology temp file", err)
	}
	return nil
}

// lowestFreeInterfaceID scans every border router's interfaces for the
// lowest unused id >= 1 (Open Question (iii): the scan is global, the
// ESDX router's name is not).
func (d *Document) lowestFreeInterfaceID() string {
	used := map[int]bool{}
	for _, br := range d.BorderRouters {
		for ifid := range br.Interfaces {
			var n int
			if _, err := fmt.Sscanf(ifid, "%d", &n); err == nil {
				used[n] = true
			}
		}
	}
	for id := 1; ; id++ {
		if !used[id] {
			return fmt.Sprintf("%d", id)
		}
	}
}

// lowestFreePort scans every interface whose underlay.public names
// localIP for the lowest free port in [minPort, maxPort].
func (d *Document) lowestFreePort(localIP string, minPort, maxPort int) (int, error) {
	used := map[int]bool{}
	for _, br := range d.BorderRouters {
		for _, iface := range br.Interfaces {
			addr, err := core.ParseIPPort(iface.Underlay.Public)
			if err != nil || addr.IP != localIP {
				continue
			}
			used[addr.Port] = true
		}
	}
	for port := minPort; port <= maxPort; port++ {
		if !used[port] {
			return port, nil
		}
	}
	return 0, core.NewError(core.KindResourceExhausted, fmt.Sprintf("no free port for %s in [%d,%d]", localIP, minPort, maxPort))
}
