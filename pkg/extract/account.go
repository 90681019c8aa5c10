package extract

import (
	"regexp"
	"strings"
)

const defaultCurrency = "Tk"

var (
	reSeparatorLine = regexp.MustCompile(`^[▔═\-_]+$`)
	reNameValue     = regexp.MustCompile(`[a-zA-Z\s]+`)
	reNumberValue   = regexp.MustCompile(`[\d.]+`)
)

// accountLabels gate the recognizer: a reply without any of them is not
// an account status message.
var accountLabels = []string{"name", "due", "balance", "limit"}

// ParseAccountStatus recognizes an account balance reply. The record is
// only returned when a user name was recovered, even if every wallet
// field is absent.
func ParseAccountStatus(text string) *AccountStatus {
	if text == "" {
		return nil
	}

	lines := accountLines(text)
	if !hasAccountLabel(lines) {
		return nil
	}

	status := &AccountStatus{Currency: defaultCurrency}

	for _, line := range lines {
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		label = strings.ToLower(strings.TrimSpace(label))
		value = strings.TrimSpace(value)

		switch {
		case strings.Contains(label, "name"):
			if m := reNameValue.FindString(value); strings.TrimSpace(m) != "" {
				status.User.Name = strings.TrimSpace(m)
			}
		case strings.Contains(label, "due") && strings.Contains(label, "limit"):
			if m := reNumberValue.FindString(value); m != "" {
				status.Wallet.DueLimit = parseFloat(m)
			}
		case strings.Contains(label, "due"):
			if m := reNumberValue.FindString(fixDigits(value)); m != "" {
				status.Wallet.Due = parseFloat(m)
			}
		case strings.Contains(label, "balance"):
			if m := reNumberValue.FindString(value); m != "" {
				status.Wallet.Balance = parseFloat(m)
			}
		}
	}

	if status.User.Name == "" {
		return nil
	}

	return status
}

// accountLines drops separator and empty lines.
func accountLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || reSeparatorLine.MatchString(line) {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func hasAccountLabel(lines []string) bool {
	for _, line := range lines {
		lower := strings.ToLower(line)
		for _, label := range accountLabels {
			if strings.Contains(lower, label) {
				return true
			}
		}
	}
	return false
}
