package constant

// Casbin objects. Each maps to one row group in access_policies.
const (
	PermOTPTokens      = "otp.tokens"
	PermAccountProfile = "account.profile"
)

// Casbin actions.
const (
	PermActRead   = "read"
	PermActExport = "export"
)
