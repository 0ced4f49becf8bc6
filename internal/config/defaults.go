package config

import "time"

const (
	DefaultLogLevel = "info"

	DefaultServerAddr          = ":8080"
	DefaultServerReadTimeout   = 10 * time.Second
	DefaultServerWriteTimeout  = 10 * time.Second
	DefaultServerHandleTimeout = 30 * time.Second

	DefaultGroupMeBaseURL = "https://api.groupme.com/v3"
	DefaultGroupMeTimeout = 15 * time.Second

	DefaultTrigger   = "memebot"
	DefaultThreshold = 70

	DefaultMemeEndpoint           = "https://meme-api.com/gimme"
	DefaultMemeTimeout            = 10 * time.Second
	DefaultMemeAttempts           = 3
	DefaultMemeBreakerFailures    = 5
	DefaultMemeBreakerOpenTimeout = 30 * time.Second

	DefaultDatabasePath = "memebot.db"

	DefaultAwardsWindow     = "week"
	DefaultHandledRetention = 30 * 24 * time.Hour
)

var defaults = map[string]any{
	"log.level": DefaultLogLevel,
	"log.json":  false,

	"server.addr":           DefaultServerAddr,
	"server.read_timeout":   DefaultServerReadTimeout,
	"server.write_timeout":  DefaultServerWriteTimeout,
	"server.handle_timeout": DefaultServerHandleTimeout,

	"groupme.base_url": DefaultGroupMeBaseURL,
	"groupme.timeout":  DefaultGroupMeTimeout,

	"memebot.trigger":                 DefaultTrigger,
	"memebot.threshold":               DefaultThreshold,
	"memebot.messages.low_confidence": "I'm not sure what you said (confidence is only %d%%). Try saying '%s help'",
	"memebot.messages.best_post":      "Best post of the last %s by %s with %d likes:\n%s",
	"memebot.messages.no_posts":       "No posts found in the last %s.",
	"memebot.messages.awards":         "MEME AWARDS\n%s",
	"memebot.messages.general_error":  "Something went wrong, try again in a bit.",

	"meme.endpoint":             DefaultMemeEndpoint,
	"meme.timeout":              DefaultMemeTimeout,
	"meme.allow_nsfw":           false,
	"meme.attempts":             DefaultMemeAttempts,
	"meme.breaker.max_failures": DefaultMemeBreakerFailures,
	"meme.breaker.open_timeout": DefaultMemeBreakerOpenTimeout,

	"database.path": DefaultDatabasePath,

	"scheduler.awards_window":     DefaultAwardsWindow,
	"scheduler.handled_retention": DefaultHandledRetention,
	"scheduler.tasks": map[string]any{
		"meme_awards":     map[string]any{"enabled": false, "schedule": "0 18 * * 5"},
		"sql_maintenance": map[string]any{"enabled": true, "schedule": "0 4 * * 0"},
	},
}
