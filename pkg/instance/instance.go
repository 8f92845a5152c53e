package instance

import "github.com/angelmondragon/partnerhub-backend/pkg/env"

const fallbackID = "local"

// GetID names the running process in logs. Heroku-style DYNO and container
// HOSTNAME are used when no explicit id is set.
func GetID() string {
	return env.Get("PARTNERHUB_INSTANCE_ID", env.Get("DYNO", env.Get("HOSTNAME", fallbackID)))
}
