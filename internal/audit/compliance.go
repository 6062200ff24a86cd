package audit

import "fmt"

const (
	// MaxIdleDelay is the longest allowed inactivity period in seconds.
	MaxIdleDelay = 300
	// RequiredLockDelay is the only allowed delay between screensaver and lock.
	RequiredLockDelay = 0
)

// Finding describes one violated screen lock requirement.
type Finding struct {
	Description string
	Remediation []string
}

// Verdict is the outcome of evaluating a set of settings.
type Verdict struct {
	Findings  []Finding
	Compliant bool
}

// IsCompliant reports whether all three requirements hold. There is no partial credit.
func IsCompliant(s Settings) bool {
	return s.IdleDelay <= MaxIdleDelay && s.LockDelay == RequiredLockDelay && s.LockEnabled
}

// Evaluate checks each requirement and explains the ones that fail.
func Evaluate(s Settings) Verdict {
	var findings []Finding

	if s.IdleDelay > MaxIdleDelay {
		findings = append(findings, timeoutFinding(s.IdleDelay, "Screen idle delay too long", idleDelayRemediation()))
	}
	if s.LockDelay != RequiredLockDelay {
		findings = append(findings, Finding{
			Description: fmt.Sprintf("Screen lock delay not immediate (%s)", formatSeconds(s.LockDelay)),
			Remediation: lockDelayRemediation(),
		})
	}
	if !s.LockEnabled {
		findings = append(findings, Finding{
			Description: "GNOME screen lock disabled",
			Remediation: lockEnabledRemediation(),
		})
	}

	return Verdict{Compliant: IsCompliant(s), Findings: findings}
}

// timeoutFinding creates a finding for timeout values that are too long.
func timeoutFinding(seconds int, description string, remediation []string) Finding {
	return Finding{
		Description: fmt.Sprintf("%s (%s, policy requires ≤5 min)", description, formatSeconds(seconds)),
		Remediation: remediation,
	}
}

func formatSeconds(seconds int) string {
	minutes := seconds / 60
	hours := minutes / 60

	switch {
	case hours > 0:
		pluralS := ""
		if hours != 1 {
			pluralS = "s"
		}
		return fmt.Sprintf("%d hour%s", hours, pluralS)
	case minutes > 0:
		return fmt.Sprintf("%d minutes", minutes)
	default:
		return fmt.Sprintf("%d seconds", seconds)
	}
}

func idleDelayRemediation() []string {
	return []string{
		"Open Settings > Privacy > Screen Lock",
		"Set 'Blank Screen Delay' to 5 minutes or less",
		"Or use: gsettings set org.gnome.desktop.session idle-delay 300",
	}
}

func lockDelayRemediation() []string {
	return []string{
		"Open Settings > Privacy > Screen Lock",
		"Set 'Lock screen after blank for' to 'Screen Turns Off'",
		"Or use: gsettings set org.gnome.desktop.screensaver lock-delay 0",
	}
}

func lockEnabledRemediation() []string {
	return []string{
		"Open Settings > Privacy > Screen Lock",
		"Turn on 'Automatic Screen Lock'",
		"Or use: gsettings set org.gnome.desktop.screensaver lock-enabled true",
	}
}
