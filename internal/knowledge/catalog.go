package knowledge

import "github.com/fyrsmithlabs/scenariod/internal/scenario"

// CatalogEntry ties a technique descriptor to the phase it belongs to.
type CatalogEntry struct {
	Phase     scenario.Phase
	Technique scenario.Technique
}

// DefaultCatalog is the built-in technique catalog used to seed the store.
func DefaultCatalog() []CatalogEntry {
	return []CatalogEntry{
		{scenario.PhaseNormal, scenario.Technique{ID: "RECON-T1595", Name: "Active Scanning", Description: "External scanning of exposed services and address ranges."}},
		{scenario.PhaseNormal, scenario.Technique{ID: "RECON-T1598", Name: "Phishing for Information", Description: "Pretext messages probing staff for internal details."}},
		{scenario.PhaseInitialAccess, scenario.Technique{ID: "PHISH-T1566", Name: "Spearphishing Attachment", Description: "Targeted mail with a weaponized attachment."}},
		{scenario.PhaseInitialAccess, scenario.Technique{ID: "ACCESS-T1078", Name: "Valid Accounts", Description: "Login with stolen or purchased credentials."}},
		{scenario.PhaseEscalation, scenario.Technique{ID: "PRIVESC-T1068", Name: "Exploitation for Privilege Escalation", Description: "Local exploit elevating to administrative rights."}},
		{scenario.PhaseEscalation, scenario.Technique{ID: "PERSIST-T1053", Name: "Scheduled Task", Description: "Persistence via scheduled task creation."}},
		{scenario.PhaseLateral, scenario.Technique{ID: "LATMOVE-T1021", Name: "Remote Services", Description: "Movement over SMB, RDP, or SSH with captured credentials."}},
		{scenario.PhaseLateral, scenario.Technique{ID: "C2-T1071", Name: "Application Layer Protocol", Description: "Command traffic blended into HTTPS."}},
		{scenario.PhaseExfiltration, scenario.Technique{ID: "EXFIL-T1041", Name: "Exfiltration Over C2 Channel", Description: "Staged data leaves over the existing command channel."}},
		{scenario.PhaseExfiltration, scenario.Technique{ID: "RANSOM-T1486", Name: "Data Encrypted for Impact", Description: "Mass encryption of reachable file shares."}},
		{scenario.PhaseContainment, scenario.Technique{ID: "DEFEND-ISOLATE", Name: "Network Isolation", Description: "Defenders segment and isolate affected hosts."}},
		{scenario.PhaseContainment, scenario.Technique{ID: "DEFEND-REVOKE", Name: "Credential Revocation", Description: "Mass reset of exposed credentials and sessions."}},
		{scenario.PhaseRecovery, scenario.Technique{ID: "RESTORE-BACKUP", Name: "Restore From Backup", Description: "Staged restoration of services from clean backups."}},
		{scenario.PhaseRecovery, scenario.Technique{ID: "RESTORE-REVIEW", Name: "Post-Incident Review", Description: "Validation sweeps and lessons-learned reporting."}},
	}
}

// FallbackTechniques returns the fixed per-phase candidates served when the
// store is empty or unavailable.
func FallbackTechniques(p scenario.Phase) []scenario.Technique {
	var out []scenario.Technique
	for _, e := range DefaultCatalog() {
		if e.Phase == p {
			out = append(out, e.Technique)
		}
	}
	return out
}
