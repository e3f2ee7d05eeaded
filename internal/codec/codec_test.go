package codec

import (
	"bytes"
	"strings"
	"testing"

	"intratel/internal/domain"
)

func cabledSnapshot(t *testing.T) *domain.Snapshot {
	t.Helper()
	topo := domain.NewSeedTopology()
	if _, err := topo.AddLink(domain.SeedRouterID, 0, domain.SeedSwitchID, 0); err != nil {
		t.Fatalf("router link: %v", err)
	}
	if _, err := topo.AddLink(domain.SeedPCID, 0, domain.SeedSwitchID, 1); err != nil {
		t.Fatalf("pc link: %v", err)
	}
	if err := topo.SetPortConfig(domain.SeedRouterID, domain.InterfaceFa00, "192.168.1.1", "255.255.255.0", domain.PortStatusUp); err != nil {
		t.Fatalf("port config: %v", err)
	}
	return topo.Snapshot()
}

func TestFormatLookup(t *testing.T) {
	tests := []struct {
		format   string
		importer string
		exporter string
	}{
		{"json", "json", "json"},
		{"YAML", "yaml", "yaml"},
		{"", "yaml", "yaml"},
		{"ansible", "", "ansible-inventory"},
		{"xml", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			imp, err := ImporterFor(tt.format)
			if tt.importer == "" {
				if err == nil {
					t.Errorf("expected no importer for %q", tt.format)
				}
			} else if err != nil || imp.Format() != tt.importer {
				t.Errorf("ImporterFor(%q) = %v, %v", tt.format, imp, err)
			}

			exp, err := ExporterFor(tt.format)
			if tt.exporter == "" {
				if err == nil {
					t.Errorf("expected no exporter for %q", tt.format)
				}
			} else if err != nil || exp.Format() != tt.exporter {
				t.Errorf("ExporterFor(%q) = %v, %v", tt.format, exp, err)
			}
		})
	}
}

func TestYAMLRestoresIntoTopology(t *testing.T) {
	snap := cabledSnapshot(t)
	c := NewYAMLCodec()

	var buf bytes.Buffer
	if err := c.Export(snap, &buf); err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	if !strings.Contains(buf.String(), "R1:0") {
		t.Errorf("expected node:port links in output:\n%s", buf.String())
	}

	parsed, err := c.Parse(&buf)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	topo := domain.NewSeedTopology()
	if err := topo.Restore(parsed); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	if !topo.CablingOK() {
		t.Error("expected restored topology to be cabled")
	}
	uplink, ok := topo.RouterUplink()
	if !ok || uplink.IP != "192.168.1.1" || uplink.Status != domain.PortStatusUp {
		t.Errorf("unexpected uplink %+v", uplink)
	}
}

func TestYAMLParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown type", "nodes:\n  - id: X\n    type: toaster\n"},
		{"bad endpoint", "nodes: []\nlinks:\n  - a: R1\n    b: S1:0\n"},
		{"bad port", "nodes: []\nlinks:\n  - a: R1:x\n    b: S1:0\n"},
		{"not yaml", "nodes: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewYAMLCodec().Parse(strings.NewReader(tt.doc)); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestJSONExportParse(t *testing.T) {
	snap := cabledSnapshot(t)
	c := NewJSONCodec()

	var buf bytes.Buffer
	if err := c.Export(snap, &buf); err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	parsed, err := c.Parse(&buf)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(parsed.Nodes) != 3 || len(parsed.Links) != 2 {
		t.Errorf("got %d nodes and %d links", len(parsed.Nodes), len(parsed.Links))
	}
	if parsed.Links[0].ID != snap.Links[0].ID {
		t.Errorf("link ID = %s, want %s", parsed.Links[0].ID, snap.Links[0].ID)
	}

	if _, err := c.Parse(strings.NewReader("{")); err == nil {
		t.Error("expected error for truncated JSON")
	}
}

func TestJSONParseValidation(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown field", `{"links": [], "cables": []}`},
		{"trailing document", `{"links": []} {"links": []}`},
		{"unknown node type", `{"nodes": [{"id": "H1", "type": "hub", "ports": []}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewJSONCodec().Parse(strings.NewReader(tt.doc)); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestJSONParseFillsLinkIDs(t *testing.T) {
	doc := `{"links": [{"a": {"node_id": "R1", "port": 0}, "b": {"node_id": "S1", "port": 0}}]}`
	snap, err := NewJSONCodec().Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if snap.Nodes == nil || len(snap.Links) != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.Links[0].ID == "" || snap.Links[0].ID != snap.Links[0].GenerateID() {
		t.Errorf("link ID = %q, want generated ID", snap.Links[0].ID)
	}
	if err := domain.NewSeedTopology().Restore(snap); err != nil {
		t.Errorf("Restore() error: %v", err)
	}
}

func TestAnsibleExport(t *testing.T) {
	var buf bytes.Buffer
	if err := NewAnsibleCodec().Export(cabledSnapshot(t), &buf); err != nil {
		t.Fatalf("Export() error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"routers:",
		"switches:",
		"pcs:",
		"ansible_host: 192.168.1.1",
		"ansible_network_os: cisco.ios.ios",
		"name: fa0/0",
		"0 -> S1:0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in inventory:\n%s", want, out)
		}
	}
}
