package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# LAMF Engine Configuration

[engine]
# Parallel workers for batch sweeps
sweep_workers = 8
# Days per year for interest accrual: 360 or 365
day_count_basis = 365

[policy]
# Days a borrower gets to cure a margin call
margin_call_grace_days = 3
# GST on foreclosure penalty
penalty_tax_percent = 18.0
# Foreclosure penalty waived after this many months
penalty_waiver_months = 12
# LTV band above max LTV that maps to MEDIUM urgency
medium_urgency_band_percent = 5.0

[server]
# Operational endpoint listen address
addr = ":8086"
# Gin mode: "release" or "debug"
mode = "release"

[database]
# SQLite database path (default: <config dir>/lamf.db)
path = ""

[notifications]
enabled = false

[notifications.webhook]
enabled = false
url = ""

[ui]
color_enabled = true
date_format = "02-Jan-2006"
`

// createTemplateConfig writes a default config file if none exists.
func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}
