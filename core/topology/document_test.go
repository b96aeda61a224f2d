package topology

import (
	"path/filepath"
	"testing"

	"github.com/juagargi/esdx-scion/internal/testutil"
)

func writeTopology(t *testing.T, sb *testutil.Sandbox, name, isdas string) string {
	t.Helper()
	path := sb.Path(name)
	doc := &Document{ISDAS: isdas, BorderRouters: map[string]BorderRouter{}}
	if err := doc.Save(path); err != nil {
		t.Fatalf("save initial topology: %v", err)
	}
	return path
}

func TestESDXRouterName(t *testing.T) {
	if got := ESDXRouterName("1-ff00:0:110"); got != "br1-ff00_0_110-1111" {
		t.Fatalf("ESDXRouterName = %q", got)
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("sandbox: %v", err)
	}
	defer sb.Cleanup()

	path := writeTopology(t, sb, "topo.json", "1-ff00:0:110")
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.ISDAS != "1-ff00:0:110" {
		t.Fatalf("isd_as = %q", doc.ISDAS)
	}
	if doc.BorderRouters == nil {
		t.Fatalf("border_routers should never be nil after Load")
	}
}

func TestLowestFreeInterfaceIDScansAllRouters(t *testing.T) {
	doc := &Document{
		ISDAS: "1-ff00:0:110",
		BorderRouters: map[string]BorderRouter{
			"br1": {Interfaces: map[string]Interface{"1": {}, "3": {}}},
			"br2": {Interfaces: map[string]Interface{"2": {}}},
		},
	}
	if got := doc.lowestFreeInterfaceID(); got != "4" {
		t.Fatalf("lowestFreeInterfaceID = %q, want 4", got)
	}
}

func TestLowestFreePortSkipsUsedAndIgnoresOtherIPs(t *testing.T) {
	doc := &Document{
		ISDAS: "1-ff00:0:110",
		BorderRouters: map[string]BorderRouter{
			"br1": {Interfaces: map[string]Interface{
				"1": {Underlay: Underlay{Public: "127.0.0.1:50000"}},
				"2": {Underlay: Underlay{Public: "127.0.0.1:50001"}},
				"3": {Underlay: Underlay{Public: "10.0.0.1:50000"}},
			}},
		},
	}
	port, err := doc.lowestFreePort("127.0.0.1", 50000, 50010)
	if err != nil {
		t.Fatalf("lowestFreePort: %v", err)
	}
	if port != 50002 {
		t.Fatalf("port = %d, want 50002", port)
	}
}

func TestLowestFreePortIPv6(t *testing.T) {
	doc := &Document{
		ISDAS: "1-ff00:0:110",
		BorderRouters: map[string]BorderRouter{
			"br1": {Interfaces: map[string]Interface{
				"1": {Underlay: Underlay{Public: "[::1]:50000"}},
			}},
		},
	}
	port, err := doc.lowestFreePort("::1", 50000, 50010)
	if err != nil {
		t.Fatalf("lowestFreePort: %v", err)
	}
	if port != 50001 {
		t.Fatalf("port = %d, want 50001", port)
	}
}

func TestLowestFreePortExhausted(t *testing.T) {
	doc := &Document{
		ISDAS: "1-ff00:0:110",
		BorderRouters: map[string]BorderRouter{
			"br1": {Interfaces: map[string]Interface{
				"1": {Underlay: Underlay{Public: "127.0.0.1:50000"}},
			}},
		},
	}
	if _, err := doc.lowestFreePort("127.0.0.1", 50000, 50000); err == nil {
		t.Fatalf("expected resource-exhausted error")
	}
}

func TestSaveIsAtomic(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("sandbox: %v", err)
	}
	defer sb.Cleanup()

	path := writeTopology(t, sb, "topo.json", "1-ff00:0:110")
	entries, err := filepath.Glob(filepath.Join(sb.Root, ".topo.json.*.tmp"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("temp file left behind after Save: %v", entries)
	}
}
