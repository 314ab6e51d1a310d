// Command issue_token mints a dashboard access token signed with JWT_SECRET for local
// testing against the API.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/station-compliance-api/internal/models"
	"github.com/noah-isme/station-compliance-api/internal/service"
	"github.com/noah-isme/station-compliance-api/pkg/config"
)

func main() {
	var (
		userID    string
		name      string
		role      string
		stationID string
		expiry    time.Duration
	)
	flag.StringVar(&userID, "user", "", "user id (random when empty)")
	flag.StringVar(&name, "name", "Local Developer", "display name stamped on offline changes")
	flag.StringVar(&role, "role", string(models.RoleStationManager), "admin, station_manager or viewer")
	flag.StringVar(&stationID, "station", "", "restrict the token to one station")
	flag.DurationVar(&expiry, "expiry", 0, "token lifetime (defaults to JWT_EXPIRY)")
	flag.Parse()

	switch models.UserRole(role) {
	case models.RoleAdmin, models.RoleStationManager, models.RoleViewer:
	default:
		log.Fatalf("unknown role %q", role)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if expiry <= 0 {
		expiry = cfg.JWT.Expiry
	}
	if userID == "" {
		userID = uuid.NewString()
	}

	tokens := service.NewTokenService(cfg.JWT.Secret, expiry)
	token, expiresAt, err := tokens.Issue(userID, name, models.UserRole(role), stationID)
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}
	fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.Format(time.RFC3339))
	fmt.Println(token)
}
