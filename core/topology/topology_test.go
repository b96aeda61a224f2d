package topology

import (
	"testing"
	"time"

	"github.com/juagargi/esdx-scion/core"
	"github.com/juagargi/esdx-scion/internal/testutil"
)

func TestDeriveTopoInfoSellerAndBuyerViews(t *testing.T) {
	offer := &core.Offer{IAID: "1-ff00:0:110", BRMTU: 1500, BRLinkTo: core.LinkCore}
	po := &core.PurchaseOrder{BuyerIAID: "1-ff00:0:111"}
	contract := &core.Contract{BRAddress: "192.0.2.1:50000"}

	sellerInfo, err := DeriveTopoInfo("1-ff00:0:110", contract, offer, po)
	if err != nil {
		t.Fatalf("seller view: %v", err)
	}
	if sellerInfo.RemoteIA != "1-ff00:0:111" || sellerInfo.RemoteUnderlay != "192.0.2.1:50000" {
		t.Fatalf("unexpected seller view: %+v", sellerInfo)
	}

	buyerInfo, err := DeriveTopoInfo("1-ff00:0:111", contract, offer, po)
	if err != nil {
		t.Fatalf("buyer view: %v", err)
	}
	if buyerInfo.RemoteIA != "1-ff00:0:110" || buyerInfo.RemoteUnderlay != "192.0.2.1:50000" {
		t.Fatalf("unexpected buyer view: %+v", buyerInfo)
	}

	if _, err := DeriveTopoInfo("1-ff00:0:999", contract, offer, po); err == nil {
		t.Fatalf("expected an unrelated local IA to error")
	}
}

func TestMutatorActivateCreatesESDXRouterAndDeactivateRemovesIt(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("sandbox: %v", err)
	}
	defer sb.Cleanup()

	path := sb.Path("topo.json")
	doc := &Document{ISDAS: "1-ff00:0:110", BorderRouters: map[string]BorderRouter{}}
	if err := doc.Save(path); err != nil {
		t.Fatalf("save initial topology: %v", err)
	}

	mut, err := NewMutator(path, "127.0.0.1:30042", 50000, 51000, func(string) string { return "127.0.0.1" }, 3, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("new mutator: %v", err)
	}

	offer := &core.Offer{IAID: "1-ff00:0:110", BRMTU: 1500, BRLinkTo: core.LinkCore}
	po := &core.PurchaseOrder{BuyerIAID: "1-ff00:0:111"}
	contract := &core.Contract{BRAddress: "192.0.2.1:50000"}

	if err := mut.Activate(contract, offer, po); err != nil {
		t.Fatalf("activate: %v", err)
	}

	doc2, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	esdxName := ESDXRouterName("1-ff00:0:110")
	br, ok := doc2.BorderRouters[esdxName]
	if !ok {
		t.Fatalf("expected ESDX router %s to exist", esdxName)
	}
	if len(br.Interfaces) != 1 {
		t.Fatalf("expected exactly one interface, got %d", len(br.Interfaces))
	}
	var iface Interface
	for _, v := range br.Interfaces {
		iface = v
	}
	if iface.Underlay.Remote != "192.0.2.1:50000" {
		t.Fatalf("unexpected remote underlay: %+v", iface)
	}
	if iface.ISDAS != "1-ff00:0:111" {
		t.Fatalf("unexpected isd_as: %+v", iface)
	}

	if err := mut.Deactivate(contract); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	doc3, err := Load(path)
	if err != nil {
		t.Fatalf("reload after deactivate: %v", err)
	}
	if _, ok := doc3.BorderRouters[esdxName]; ok {
		t.Fatalf("expected ESDX router to be removed once its last interface is gone")
	}
}

func TestMutatorRejectsConflictingInternalAddr(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("sandbox: %v", err)
	}
	defer sb.Cleanup()

	path := sb.Path("topo.json")
	doc := &Document{
		ISDAS: "1-ff00:0:110",
		BorderRouters: map[string]BorderRouter{
			"br-other": {InternalAddr: "127.0.0.1:40000", Interfaces: map[string]Interface{}},
		},
	}
	if err := doc.Save(path); err != nil {
		t.Fatalf("save initial topology: %v", err)
	}

	if _, err := NewMutator(path, "127.0.0.1:40000", 50000, 51000, nil, 3, 10*time.Millisecond); err == nil {
		t.Fatalf("expected internal_addr conflict to be rejected")
	}
}

func TestDefaultRemoteToLocalIP(t *testing.T) {
	if got := DefaultRemoteToLocalIP("192.0.2.1"); got != "127.0.0.1" {
		t.Fatalf("ipv4 mapping = %q", got)
	}
	if got := DefaultRemoteToLocalIP("2001:db8::1"); got != "::1" {
		t.Fatalf("ipv6 mapping = %q", got)
	}
}
