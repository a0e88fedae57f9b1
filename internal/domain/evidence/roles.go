package evidence

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleInvestigator Role = "investigator"
	RoleAuditor      Role = "auditor"
	RoleViewer       Role = "public_viewer"
)

// Account is the user directory's view of a wallet-identified principal.
type Account struct {
	Wallet string
	Role   Role
	Active bool
}

// Capability names evaluated by the authorization policy.
const (
	CapUpload      = "evidence:upload"
	CapExport      = "evidence:export"
	CapViewHistory = "evidence:history"
)
