package topology

import (
	"fmt"
	"net"
	"time"

	"github.com/juagargi/esdx-scion/core"
)

// TopoInfo is the information a contract contributes to a topology
// mutation, viewed from one of the two parties (§4.7).
type TopoInfo struct {
	RemoteIA       string
	RemoteUnderlay string
	MTU            int32
	LinkTo         string
}

// DeriveTopoInfo determines which party localIA is (seller or buyer)
// and returns the corresponding view of the contract. Both views use
// the contract's concrete br_address as the remote underlay — the
// buyer has no border-router address of its own in this model, so the
// seller's allocated address is what either side splices in. Neither
// side matching is a caller error: the contract is unrelated to this
// topology file.
func DeriveTopoInfo(localIA string, contract *core.Contract, offer *core.Offer, po *core.PurchaseOrder) (TopoInfo, error) {
	switch localIA {
	case offer.IAID:
		return TopoInfo{RemoteIA: po.BuyerIAID, RemoteUnderlay: contract.BRAddress, MTU: offer.BRMTU, LinkTo: offer.BRLinkTo}, nil
	case po.BuyerIAID:
		return TopoInfo{RemoteIA: offer.IAID, RemoteUnderlay: contract.BRAddress, MTU: offer.BRMTU, LinkTo: offer.BRLinkTo}, nil
	default:
		return TopoInfo{}, core.NewError(core.KindInvalidArgument, fmt.Sprintf("local IA %s is neither the seller nor the buyer on this contract", localIA))
	}
}

// RemoteToLocalIP maps a remote peer's IP to the local interface IP
// that should be used to reach it.
type RemoteToLocalIP func(remoteIP string) string

// DefaultRemoteToLocalIP returns "127.0.0.1" for IPv4 peers and "::1"
// for IPv6 peers (§4.7).
func DefaultRemoteToLocalIP(remoteIP string) string {
	ip := net.ParseIP(remoteIP)
	if ip != nil && ip.To4() == nil {
		return "::1"
	}
	return "127.0.0.1"
}

// Mutator applies activate/deactivate state transitions to one
// topology file under its file lock (§4.7).
type Mutator struct {
	path          string
	internalAddr  string
	minPort       int
	maxPort       int
	remoteToLocal RemoteToLocalIP
	lock          *Lock
}

// NewMutator builds a Mutator for the topology file at path. If the
// ESDX border router for the document's own isd_as does not yet
// exist, it will be created on first Activate with internalAddr as
// its internal_addr; construction fails if internalAddr already
// belongs to a different, non-ESDX router in the document.
func NewMutator(path, internalAddr string, minPort, maxPort int, remoteToLocal RemoteToLocalIP, lockAttempts int, lockSleep time.Duration) (*Mutator, error) {
	if remoteToLocal == nil {
		remoteToLocal = DefaultRemoteToLocalIP
	}
	doc, err := Load(path)
	if err != nil {
		return nil, err
	}
	esdxName := ESDXRouterName(doc.ISDAS)
	for name, br := range doc.BorderRouters {
		if name != esdxName && br.InternalAddr == internalAddr {
			return nil, core.NewError(core.KindInvalidArgument, fmt.Sprintf("internal_addr %s already used by router %s", internalAddr, name))
		}
	}
	return &Mutator{
		path:          path,
		internalAddr:  internalAddr,
		minPort:       minPort,
		maxPort:       maxPort,
		remoteToLocal: remoteToLocal,
		lock:          NewLock(path, lockAttempts, lockSleep),
	}, nil
}

// Activate splices a new interface for contract into the ESDX border
// router, creating the router if this is its first interface (§4.7).
func (m *Mutator) Activate(contract *core.Contract, offer *core.Offer, po *core.PurchaseOrder) error {
	return WithLock(m.lock, func() error {
		doc, err := Load(m.path)
		if err != nil {
			return err
		}
		info, err := DeriveTopoInfo(doc.ISDAS, contract, offer, po)
		if err != nil {
			return err
		}
		remoteAddr, err := core.ParseIPPort(info.RemoteUnderlay)
		if err != nil {
			return err
		}
		localIP := m.remoteToLocal(remoteAddr.IP)

		esdxName := ESDXRouterName(doc.ISDAS)
		br, exists := doc.BorderRouters[esdxName]
		if !exists {
			br = BorderRouter{InternalAddr: m.internalAddr, Interfaces: map[string]Interface{}}
		}

		port, err := doc.lowestFreePort(localIP, m.minPort, m.maxPort)
		if err != nil {
			return err
		}
		ifid := doc.lowestFreeInterfaceID()
		br.Interfaces[ifid] = Interface{
			Underlay: Underlay{
				Public: core.IPPort{IP: localIP, Port: port}.String(),
				Remote: info.RemoteUnderlay,
			},
			ISDAS:  info.RemoteIA,
			LinkTo: info.LinkTo,
			MTU:    int(info.MTU),
		}
		doc.BorderRouters[esdxName] = br
		return doc.Save(m.path)
	})
}

// Deactivate removes the interface whose underlay.remote equals
// contract.BRAddress (§4.7). If that was the ESDX router's last
// interface, the router entry itself is removed.
func (m *Mutator) Deactivate(contract *core.Contract) error {
	return WithLock(m.lock, func() error {
		doc, err := Load(m.path)
		if err != nil {
			return err
		}
		esdxName := ESDXRouterName(doc.ISDAS)
		br, exists := doc.BorderRouters[esdxName]
		if !exists {
			return core.NewError(core.KindNotFound, fmt.Sprintf("no ESDX router %s in topology", esdxName))
		}
		var found string
		for ifid, iface := range br.Interfaces {
			if iface.Underlay.Remote == contract.BRAddress {
				found = ifid
				break
			}
		}
		if found == "" {
			return core.NewError(core.KindNotFound, fmt.Sprintf("no interface with remote underlay %s", contract.BRAddress))
		}
		delete(br.Interfaces, found)
		if len(br.Interfaces) == 0 {
			delete(doc.BorderRouters, esdxName)
		} else {
			doc.BorderRouters[esdxName] = br
		}
		return doc.Save(m.path)
	})
}
