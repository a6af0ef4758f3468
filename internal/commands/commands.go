// Package commands is the bot's built-in command set.
package commands

import (
	"time"

	"github.com/keshon/botcore/internal/command"
	"github.com/keshon/botcore/internal/settings"
	"github.com/keshon/botcore/pkg/jobmgr"
)

// Categories, ordered in help listings by weight. Commands without a
// category are listed first as "General".
var (
	Tags        = &command.Category{Name: "Tags", GuildOnly: true, Weight: 10}
	Settings    = &command.Category{Name: "Settings", Level: command.Administrator, GuildOnly: true, Weight: 80}
	Maintenance = &command.Category{Name: "Maintenance", OperatorOnly: true, Weight: 90}
)

// categories that guilds may switch off.
var toggleable = []*command.Category{Tags}

// Deps are the services commands use. Store is required; the rest are
// optional and the commands needing them reply with an error when missing.
type Deps struct {
	Store   *settings.Store
	Jobs    *jobmgr.Manager
	Latency func() time.Duration
	Restart func()
	Started time.Time
}

// All returns the specs of every built-in command.
func All(deps Deps) []*command.Spec {
	return []*command.Spec{
		pingSpec(deps),
		helpSpec(),
		tagSpec(deps),
		settingsSpec(deps),
		historySpec(deps),
		jobsSpec(deps),
		restartSpec(deps),
	}
}
