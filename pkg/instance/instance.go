package instance

import "github.com/angelmondragon/medorders-backend/pkg/env"

// GetID returns the process instance identifier used in logs: the explicit
// MEDORDERS_INSTANCE_ID, the Cloud Run revision, the dyno name, or "local".
func GetID() string {
	if id := env.First("MEDORDERS_INSTANCE_ID", "K_REVISION", "DYNO"); id != "" {
		return id
	}
	return "local"
}
