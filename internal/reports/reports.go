package reports

import (
	"sort"

	"staffdir/internal/directory"
)

// OrgNode is one employee in the manager forest. The tree is built
// from manager_id scalars only; employees never hold references to
// each other.
type OrgNode struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Position   string     `json:"position"`
	Department string     `json:"department,omitempty"`
	Level      string     `json:"permissionLevel"`
	Reports    []*OrgNode `json:"reports,omitempty"`
}

// BuildOrgChart arranges employees into their manager forest. Roots
// are employees without a manager; an employee whose manager is
// missing from the input is treated as a root rather than dropped.
func BuildOrgChart(employees []directory.Employee) []*OrgNode {
	nodes := make(map[int64]*OrgNode, len(employees))
	for _, emp := range employees {
		nodes[emp.ID] = &OrgNode{
			ID:         emp.ID,
			Name:       emp.FirstName + " " + emp.LastName,
			Position:   emp.Position,
			Department: emp.Department,
			Level:      emp.PermissionLevel.String(),
		}
	}

	var roots []*OrgNode
	for _, emp := range employees {
		node := nodes[emp.ID]
		if emp.ManagerID != nil {
			if parent, ok := nodes[*emp.ManagerID]; ok {
				parent.Reports = append(parent.Reports, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	sortNodes(roots)
	return roots
}

func sortNodes(nodes []*OrgNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	for _, node := range nodes {
		sortNodes(node.Reports)
	}
}
