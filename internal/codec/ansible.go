package codec

import (
	"fmt"
	"io"
	"sort"

	"intratel/internal/domain"

	"gopkg.in/yaml.v3"
)

// AnsibleCodec exports a lab as an Ansible inventory, one group per node type.
// Routers carry their configured interfaces as host vars.
type AnsibleCodec struct{}

// NewAnsibleCodec creates a new Ansible codec
func NewAnsibleCodec() *AnsibleCodec {
	return &AnsibleCodec{}
}

// Format returns the codec format identifier
func (c *AnsibleCodec) Format() string {
	return "ansible-inventory"
}

// ansibleInventory represents the Ansible inventory structure
type ansibleInventory struct {
	All ansibleGroup `yaml:"all"`
}

type ansibleGroup struct {
	Children map[string]ansibleGroupDef `yaml:"children,omitempty"`
}

type ansibleGroupDef struct {
	Hosts map[string]ansibleHost `yaml:"hosts,omitempty"`
	Vars  map[string]interface{} `yaml:"vars,omitempty"`
}

type ansibleHost struct {
	AnsibleHost string                 `yaml:"ansible_host,omitempty"`
	Vars        map[string]interface{} `yaml:",inline"`
}

type ansibleInterface struct {
	Name    string `yaml:"name"`
	IP      string `yaml:"ip,omitempty"`
	Mask    string `yaml:"mask,omitempty"`
	Enabled bool   `yaml:"enabled"`
}

// Export exports a snapshot to Ansible inventory format
func (c *AnsibleCodec) Export(snap *domain.Snapshot, w io.Writer) error {
	inv := ansibleInventory{
		All: ansibleGroup{
			Children: make(map[string]ansibleGroupDef),
		},
	}

	for _, node := range snap.Nodes {
		groupName := groupFor(node.Type)
		group, ok := inv.All.Children[groupName]
		if !ok {
			group = ansibleGroupDef{Hosts: make(map[string]ansibleHost)}
			if node.Type == domain.NodeTypeRouter {
				group.Vars = map[string]interface{}{
					"ansible_network_os": "cisco.ios.ios",
					"ansible_connection": "ansible.netcommon.network_cli",
				}
			}
		}

		host := ansibleHost{Vars: map[string]interface{}{"label": node.Label}}
		if node.Type == domain.NodeTypeRouter {
			var ifaces []ansibleInterface
			for _, p := range node.Ports {
				if p.Name == "" {
					continue
				}
				if p.IP != "" && host.AnsibleHost == "" {
					host.AnsibleHost = p.IP
				}
				ifaces = append(ifaces, ansibleInterface{
					Name:    p.Name,
					IP:      p.IP,
					Mask:    p.Mask,
					Enabled: p.Status == domain.PortStatusUp,
				})
			}
			host.Vars["interfaces"] = ifaces
		}
		if peers := linkedPeers(snap, node.ID); len(peers) > 0 {
			host.Vars["links"] = peers
		}

		group.Hosts[node.ID] = host
		inv.All.Children[groupName] = group
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&inv); err != nil {
		return fmt.Errorf("failed to encode Ansible inventory: %w", err)
	}

	return nil
}

func groupFor(t domain.NodeType) string {
	if t == domain.NodeTypeSwitch {
		return "switches"
	}
	return string(t) + "s"
}

// linkedPeers lists "port -> node:port" for every working link of nodeID
func linkedPeers(snap *domain.Snapshot, nodeID string) []string {
	var peers []string
	for _, l := range snap.Links {
		if !l.OK {
			continue
		}
		switch nodeID {
		case l.A.NodeID:
			peers = append(peers, fmt.Sprintf("%d -> %s", l.A.Port, l.B))
		case l.B.NodeID:
			peers = append(peers, fmt.Sprintf("%d -> %s", l.B.Port, l.A))
		}
	}
	sort.Strings(peers)
	return peers
}
