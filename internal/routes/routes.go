package routes

const (
	// Health
	Health = "/health"

	// User management
	UserList          = "/user/list"
	UserAdd           = "/user/add"
	UserRemove        = "/user/remove/{id}"
	UserRename        = "/user/rename/{id}"
	UserRefresh       = "/user/refresh/{id}"
	UserAuto          = "/user/auto/{id}"
	UserAbsenceAdd    = "/user/absence/{id}"
	UserAbsenceRemove = "/user/absence/remove/{id}"

	// Check-in
	Signin        = "/signin"
	SigninDigital = "/signin-digital"

	// History
	HistorySignin = "/history/signin"
	HistoryScan   = "/history/scan"

	// Misc
	RepoURL = "/backend/repo/url"
)
