package user

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nekogravitycat/cleaner-booking-backend/internal/auth"
)

// seedUser is one entry of a seed file.
type seedUser struct {
	ID            string          `json:"id"`
	DisplayName   string          `json:"display_name"`
	Role          auth.Role       `json:"role"`
	HourlyRate    decimal.Decimal `json:"hourly_rate"`
	CompletedJobs int             `json:"completed_jobs"`
	IsActive      *bool           `json:"is_active"`
}

// LoadSeedFile reads the users of the memory backend from a JSON array.
// Ids must be UUIDs, matching what the Postgres backend accepts. is_active defaults to true.
func LoadSeedFile(path string) ([]*User, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var entries []seedUser
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}

	now := time.Now().UTC()
	seen := make(map[string]bool, len(entries))
	users := make([]*User, 0, len(entries))
	for i, e := range entries {
		id := strings.ToLower(strings.TrimSpace(e.ID))
		if _, err := uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("seed user %d: id %q is not a uuid", i, e.ID)
		}
		if seen[id] {
			return nil, fmt.Errorf("seed user %d: duplicate id %s", i, id)
		}
		seen[id] = true

		if !e.Role.Valid() {
			return nil, fmt.Errorf("seed user %s: unknown role %q", id, e.Role)
		}
		if e.HourlyRate.IsNegative() {
			return nil, fmt.Errorf("seed user %s: negative hourly rate", id)
		}

		active := true
		if e.IsActive != nil {
			active = *e.IsActive
		}
		users = append(users, &User{
			ID:            id,
			DisplayName:   strings.TrimSpace(e.DisplayName),
			Role:          e.Role,
			HourlyRate:    e.HourlyRate,
			CompletedJobs: e.CompletedJobs,
			IsActive:      active,
			CreatedAt:     now,
		})
	}
	return users, nil
}
