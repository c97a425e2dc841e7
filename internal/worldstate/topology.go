package worldstate

import "github.com/fyrsmithlabs/scenariod/internal/scenario"

// DefaultTopology returns the built-in exercise environment: a small
// corporate network with a domain controller, file and database servers,
// workstations, and the dependency edges between them.
func DefaultTopology() ([]scenario.Entity, map[string][]string) {
	entities := []scenario.Entity{
		{ID: "dc-01", Name: "Primary Domain Controller", Type: "domain_controller", Status: scenario.EntityActive, Critical: true},
		{ID: "db-01", Name: "Customer Database", Type: "database", Status: scenario.EntityActive, Critical: true},
		{ID: "fs-01", Name: "Finance File Server", Type: "file_server", Status: scenario.EntityActive, Critical: true},
		{ID: "app-01", Name: "Order Processing Service", Type: "application", Status: scenario.EntityActive, Critical: true},
		{ID: "mail-01", Name: "Mail Gateway", Type: "mail", Status: scenario.EntityActive},
		{ID: "vpn-01", Name: "VPN Concentrator", Type: "network", Status: scenario.EntityActive},
		{ID: "ws-101", Name: "Finance Workstation 101", Type: "workstation", Status: scenario.EntityActive},
		{ID: "ws-102", Name: "HR Workstation 102", Type: "workstation", Status: scenario.EntityActive},
		{ID: "ws-103", Name: "Engineering Workstation 103", Type: "workstation", Status: scenario.EntityActive},
		{ID: "bak-01", Name: "Backup Appliance", Type: "backup", Status: scenario.EntityActive},
	}

	// id -> ids that depend on it
	deps := map[string][]string{
		"dc-01":  {"app-01", "fs-01", "ws-101", "ws-102", "ws-103"},
		"db-01":  {"app-01"},
		"fs-01":  {"ws-101"},
		"vpn-01": {"ws-103"},
		"bak-01": {"fs-01", "db-01"},
	}
	return entities, deps
}
