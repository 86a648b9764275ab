package config

// DefaultTrackedDomains is the built-in allow-list used when the config file
// does not provide tracking.domains.
var DefaultTrackedDomains = []string{
	"atlassian.net",
	"asana.com",
	"box.com",
	"canva.com",
	"dropbox.com",
	"figma.com",
	"github.com",
	"gitlab.com",
	"hubspot.com",
	"linear.app",
	"miro.com",
	"monday.com",
	"notion.so",
	"salesforce.com",
	"slack.com",
	"trello.com",
	"zendesk.com",
	"zoom.us",
}

// DefaultAuthCookiePatterns are matched case-insensitively against cookie names.
var DefaultAuthCookiePatterns = []string{
	"session",
	"sess",
	"auth",
	"token",
	"sid",
	"jwt",
	"logged_?in",
	"login",
	"user_?id",
	"remember",
}
